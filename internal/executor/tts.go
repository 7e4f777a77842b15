package executor

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/pkg/logger"
)

const (
	// baseWordsPerMinute is the assumed narration pace before adjustment.
	baseWordsPerMinute = 160
	// Voice-over runs 15% faster than the estimate by default.
	baseRatePercent = 15
	minRatePercent  = -30
	maxRatePercent  = 100
)

// TTS drives the speech synthesis engine: the local edge-tts service or the
// OpenAI speech API. Both write the clip to a caller-chosen path.
type TTS struct {
	cfg    config.TTSConfig
	http   *resty.Client
	openai *openai.Client
}

// NewTTS creates a new TTS executor.
func NewTTS(cfg config.TTSConfig) *TTS {
	t := &TTS{
		cfg:  cfg,
		http: resty.New().SetBaseURL(strings.TrimRight(cfg.URL, "/")).SetTimeout(cfg.Timeout),
	}
	if strings.EqualFold(cfg.Provider, "openai") {
		t.openai = newOpenAIClient(cfg.APIKey, cfg.BaseURL)
	}
	return t
}

type synthesizeRequest struct {
	Text           string  `json:"text"`
	OutputPath     string  `json:"output_path"`
	Language       string  `json:"language"`
	TargetDuration float64 `json:"target_duration,omitempty"`
}

type synthesizeResponse struct {
	Success   bool   `json:"success"`
	AudioPath string `json:"audio_path"`
	Error     string `json:"error"`
}

// Health checks that the synthesis engine is reachable.
func (t *TTS) Health(ctx context.Context) error {
	if t.openai != nil {
		return nil
	}
	return probe(ctx, t.http, "tts service", "/health")
}

// Synthesize renders text to outputPath, aiming for targetDuration seconds.
// A zero targetDuration lets the engine pick its natural pace.
func (t *TTS) Synthesize(ctx context.Context, text, language string, targetDuration float64, outputPath string) error {
	if t.openai != nil {
		return t.synthesizeOpenAI(ctx, text, targetDuration, outputPath)
	}
	return t.synthesizeLocal(ctx, text, language, targetDuration, outputPath)
}

func (t *TTS) synthesizeLocal(ctx context.Context, text, language string, targetDuration float64, outputPath string) error {
	var out synthesizeResponse
	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(synthesizeRequest{
			Text:           text,
			OutputPath:     outputPath,
			Language:       domain.BaseLanguage(language),
			TargetDuration: targetDuration,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/synthesize-to-file")
	if err != nil {
		return fmt.Errorf("%w: tts request: %v", domain.ErrCollaboratorUnavailable, err)
	}
	if resp.IsError() {
		msg := out.Error
		if msg == "" {
			msg = resp.String()
		}
		return fmt.Errorf("tts error (%d): %s", resp.StatusCode(), msg)
	}
	logger.Debugf("🗣️ Synthesized %s", filepath.Base(outputPath))
	return nil
}

func (t *TTS) synthesizeOpenAI(ctx context.Context, text string, targetDuration float64, outputPath string) error {
	resp, err := t.openai.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(t.cfg.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(t.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          SpeakingRate(text, targetDuration),
	})
	if err != nil {
		return fmt.Errorf("create speech: %s", apiError(err))
	}
	defer resp.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create clip: %w", err)
	}
	if _, err := io.Copy(f, resp); err != nil {
		f.Close()
		return fmt.Errorf("write clip: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close clip: %w", err)
	}
	logger.Debugf("🗣️ Synthesized %s", filepath.Base(outputPath))
	return nil
}

// SpeakingRate converts a target duration into a speed multiplier.
// The text's natural length is estimated at 160 words per minute; the
// result includes the 15% voice-over boost and is clamped to [0.7, 2.0].
// Without a target it returns the boosted default.
func SpeakingRate(text string, targetDuration float64) float64 {
	percent := baseRatePercent
	words := len(strings.Fields(text))
	if targetDuration > 0 && words > 0 {
		estimated := float64(words) / baseWordsPerMinute * 60
		percent = int((estimated/targetDuration-1)*100) + baseRatePercent
		percent = max(minRatePercent, min(maxRatePercent, percent))
	}
	return math.Round((1+float64(percent)/100)*100) / 100
}
