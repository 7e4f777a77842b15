package processor

import (
	"strings"

	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/executor"
	"github.com/fusionn-dub/internal/media"
	"github.com/fusionn-dub/internal/synthesis"
	"github.com/fusionn-dub/internal/timeline"
	"github.com/fusionn-dub/internal/translation"
)

// EnginesFromConfig builds the production collaborators for cfg.
func EnginesFromConfig(cfg *config.Config, runner executor.Runner) Engines {
	ext := ".wav"
	if strings.EqualFold(cfg.TTS.Provider, "openai") {
		ext = ".mp3"
	}
	poll := synthesis.Poll{Attempts: cfg.TTS.PollAttempts, Interval: cfg.TTS.PollInterval}

	return Engines{
		Transcriber: executor.NewWhisper(cfg.Whisper),
		Translator:  translation.New(executor.NewTranslator(cfg.Translate), translation.OptionsFromConfig(cfg)),
		Synthesizer: synthesis.New(executor.NewTTS(cfg.TTS), poll, ext),
		Compositor:  timeline.New(runner, cfg.Media.FFmpeg),
		Media:       media.New(runner, cfg.Media),
	}
}
