// Package processor runs one dubbing job from upload to finished video.
package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fusionn-dub/internal/client/apprise"
	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/events"
	"github.com/fusionn-dub/internal/fileops"
	"github.com/fusionn-dub/internal/queue"
	"github.com/fusionn-dub/internal/segment"
	"github.com/fusionn-dub/internal/synthesis"
	"github.com/fusionn-dub/pkg/logger"
)

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	Health(ctx context.Context) error
	Transcribe(ctx context.Context, audioPath string) (domain.Transcript, error)
}

// Translator never fails: degraded results carry the original text.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) domain.TranslationResult
}

// Synthesizer renders translated segments to positioned clips.
type Synthesizer interface {
	Health(ctx context.Context) error
	SynthesizeAll(ctx context.Context, jobID string, segments []domain.TranslatedSegment, language, dir string) (synthesis.Result, error)
}

// Compositor mixes clips onto a timeline of the given length.
type Compositor interface {
	Compose(ctx context.Context, clips []domain.AudioClip, total float64, outputPath string) (string, error)
}

// Media is the transcoding boundary.
type Media interface {
	ExtractAudio(ctx context.Context, videoPath, outputPath string) (string, error)
	Probe(ctx context.Context, videoPath string) domain.MediaInfo
	Remux(ctx context.Context, videoPath, audioPath, outputPath string) (string, error)
}

// Cleanup schedules deletion of a job's transient artifacts. Register holds
// paths without a timer; Schedule starts the retention window.
type Cleanup interface {
	Register(jobID string, paths ...string)
	Schedule(jobID string, delay time.Duration, paths ...string)
	Track(jobID string, paths ...string) bool
}

// Engines groups the collaborators that depend on configuration.
type Engines struct {
	Transcriber Transcriber
	Translator  Translator
	Synthesizer Synthesizer
	Compositor  Compositor
	Media       Media
}

// Settings are the per-job knobs read from configuration.
type Settings struct {
	Folders   config.FoldersConfig
	Retention time.Duration
	// PublicURL prefixes the download reference ("" = relative).
	PublicURL string
	// SourceLanguage is the transcription hint, used when the engine does
	// not report a detected language.
	SourceLanguage string
}

// SettingsFromConfig reads Settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Folders:        cfg.Folders,
		Retention:      cfg.Pipeline.Retention,
		PublicURL:      cfg.Server.PublicURL,
		SourceLanguage: cfg.Whisper.Language,
	}
}

// Service handles the dubbing pipeline.
type Service struct {
	mu       sync.RWMutex
	engines  Engines
	settings Settings

	cleanup  Cleanup
	observer events.Observer
	apprise  *apprise.Client
}

// New creates a processor service. observer and notifier may be nil.
func New(engines Engines, settings Settings, cleanup Cleanup, observer events.Observer, notifier *apprise.Client) *Service {
	if observer == nil {
		observer = events.ObserverFunc(func(events.Event) {})
	}
	return &Service{
		engines:  engines,
		settings: settings,
		cleanup:  cleanup,
		observer: observer,
		apprise:  notifier,
	}
}

// Reload swaps engines and settings for subsequent jobs. A job already
// running keeps what it started with.
func (s *Service) Reload(engines Engines, settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines = engines
	s.settings = settings
}

func (s *Service) current() (Engines, Settings) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engines, s.settings
}

// DownloadPath is the retrieval reference for a job's finished video.
func DownloadPath(jobID string) string {
	return "/api/v1/download/" + jobID
}

// OutputPath is where a job's finished video is written.
func OutputPath(folders config.FoldersConfig, jobID string) string {
	return filepath.Join(folders.Output, jobID+"-dubbed.mp4")
}

// stepTimer tracks timing for a processing step.
type stepTimer struct {
	name  string
	start time.Time
	log   interface{ Infof(string, ...interface{}) }
}

func startStep(log interface{ Infof(string, ...interface{}) }, name string) *stepTimer {
	return &stepTimer{name: name, start: time.Now(), log: log}
}

func (s *stepTimer) done() time.Duration {
	elapsed := time.Since(s.start)
	s.log.Infof("   ⏱️  %s: %v", s.name, formatDuration(elapsed))
	return elapsed
}

// formatDuration formats duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

// Process implements queue.Processor. It always leaves job in a terminal
// state. Artifacts are held while the job runs and the retention window
// starts once Process returns.
func (s *Service) Process(ctx context.Context, job *queue.Job) error {
	eng, st := s.current()
	log := logger.WithJob(job.ID)
	totalStart := time.Now()

	s.cleanup.Register(job.ID, job.SourcePath)
	defer s.cleanup.Schedule(job.ID, st.Retention)

	log.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Infof("🎬 Starting job: %s → %s", job.FileName, job.TargetLanguage)
	log.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	durations := make(map[string]time.Duration)
	audioPath := filepath.Join(st.Folders.Temp, fmt.Sprintf("audio_%s.wav", job.ID))
	voicePath := filepath.Join(st.Folders.Temp, fmt.Sprintf("voice_%s.wav", job.ID))
	outputPath := OutputPath(st.Folders, job.ID)
	s.cleanup.Track(job.ID, audioPath, voicePath)

	// Extract audio
	s.enter(job, domain.StateExtractingAudio, "Extracting audio")
	t := startStep(log, "Audio extraction")
	if _, err := eng.Media.ExtractAudio(ctx, job.SourcePath, audioPath); err != nil {
		return s.fail(ctx, job, domain.StateExtractingAudio, err, outputPath)
	}
	info := eng.Media.Probe(ctx, job.SourcePath)
	log.Infof("📐 Source duration: %.2fs (probed: %v)", info.Duration, info.Probed)
	durations["extraction"] = t.done()

	// Transcribe
	s.enter(job, domain.StateTranscribing, "Transcribing speech")
	t = startStep(log, "Transcription")
	if err := eng.Transcriber.Health(ctx); err != nil {
		return s.fail(ctx, job, domain.StateTranscribing, err, outputPath)
	}
	transcript, err := eng.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return s.fail(ctx, job, domain.StateTranscribing, err, outputPath)
	}
	if strings.TrimSpace(transcript.Text) == "" && len(transcript.Segments) == 0 {
		return s.fail(ctx, job, domain.StateTranscribing,
			fmt.Errorf("%w: no speech detected", domain.ErrFatalInput), outputPath)
	}
	log.Infof("📝 Transcribed %d segments (%s)", len(transcript.Segments), transcript.Language)
	durations["transcription"] = t.done()

	// Translate
	s.enter(job, domain.StateTranslating, fmt.Sprintf("Translating to %s", domain.LanguageName(job.TargetLanguage)))
	t = startStep(log, "Translation")
	source := transcript.Language
	if source == "" {
		source = st.SourceLanguage
	}
	result := eng.Translator.Translate(ctx, transcript.Text, source, job.TargetLanguage)
	if result.Degraded {
		log.Warnf("⚠️ %v: %s", domain.ErrTranslationDegraded, result.DegradedReason)
	}
	log.Infof("📊 Translation quality: %d (%s)", result.Quality.Score, result.Quality.Rating)
	durations["translation"] = t.done()

	// Synthesize
	s.enter(job, domain.StateSynthesizingVoice, "Synthesizing voice")
	t = startStep(log, "Synthesis")
	segments := distribute(transcript.Segments, result.TranslatedText, info.Duration)
	log.Infof("🧩 %d original segments → %d translated segments", len(transcript.Segments), len(segments))
	if err := eng.Synthesizer.Health(ctx); err != nil {
		return s.fail(ctx, job, domain.StateSynthesizingVoice, err, outputPath)
	}
	synth, err := eng.Synthesizer.SynthesizeAll(ctx, job.ID, segments, job.TargetLanguage, st.Folders.Temp)
	for _, c := range synth.Clips {
		s.cleanup.Track(job.ID, c.Path)
	}
	if err != nil {
		return s.fail(ctx, job, domain.StateSynthesizingVoice, err, outputPath)
	}
	durations["synthesis"] = t.done()

	// Compose
	s.enter(job, domain.StateCompositing, fmt.Sprintf("Compositing %d clips", len(synth.Clips)))
	t = startStep(log, "Composition")
	if _, err := eng.Compositor.Compose(ctx, synth.Clips, info.Duration, voicePath); err != nil {
		return s.fail(ctx, job, domain.StateCompositing, err, outputPath)
	}
	durations["composition"] = t.done()

	// Remux
	s.enter(job, domain.StateMuxing, "Muxing final video")
	t = startStep(log, "Remux")
	if _, err := eng.Media.Remux(ctx, job.SourcePath, voicePath, outputPath); err != nil {
		return s.fail(ctx, job, domain.StateMuxing, err, outputPath)
	}
	job.SetOutputPath(outputPath)
	durations["remux"] = t.done()

	job.Advance(domain.StateCompleted)
	download := st.PublicURL + DownloadPath(job.ID)
	s.observer.OnProgress(events.Event{
		Type:        events.TypeComplete,
		JobID:       job.ID,
		Step:        domain.StateCompleted.Step(),
		Progress:    100,
		Message:     "Dubbing completed",
		DownloadURL: download,
	})

	totalDuration := time.Since(totalStart)
	s.notifySuccess(ctx, job, formatDuration(totalDuration), download)

	log.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Infof("✅ Job completed: %s", job.FileName)
	log.Infof("⏱️  Total time: %s", formatDuration(totalDuration))
	log.Infof("   Transcription: %s | Translation: %s | Synthesis: %s",
		formatDuration(durations["transcription"]),
		formatDuration(durations["translation"]),
		formatDuration(durations["synthesis"]))
	if synth.Failed > 0 {
		log.Infof("   Skipped segments: %d", synth.Failed)
	}
	log.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// distribute maps the translation onto the transcript's timing. Without
// segments the whole text becomes one segment spanning the video.
func distribute(originals []domain.OriginalSegment, translated string, total float64) []domain.TranslatedSegment {
	if len(originals) == 0 {
		return []domain.TranslatedSegment{{
			Text:         strings.TrimSpace(translated),
			Start:        0,
			End:          total,
			OriginalText: strings.TrimSpace(translated),
		}}
	}
	return segment.Distribute(originals, translated)
}

// enter advances job to state and announces it.
func (s *Service) enter(job *queue.Job, state domain.State, message string) {
	if !job.Advance(state) {
		return
	}
	s.observer.OnProgress(events.Event{
		Type:     events.TypeProgress,
		JobID:    job.ID,
		Step:     state.Step(),
		Progress: job.Progress(),
		Message:  message,
	})
}

// fail marks job failed, emits the single error event, removes any partial
// output and notifies. Transient artifacts stay registered for cleanup.
func (s *Service) fail(ctx context.Context, job *queue.Job, stage domain.State, err error, outputPath string) error {
	fullErr := domain.Fatal(stage, err)
	if errors.Is(err, context.Canceled) {
		fullErr = domain.Fatal(stage, fmt.Errorf("cancelled: %w", err))
	}
	logger.WithJob(job.ID).Errorf("❌ %v", fullErr)

	job.Fail(fullErr)
	_ = fileops.Remove(outputPath)

	s.observer.OnProgress(events.Event{
		Type:     events.TypeError,
		JobID:    job.ID,
		Step:     stage.Step(),
		Progress: job.Progress(),
		Message:  fullErr.Error(),
	})
	s.notifyError(ctx, job, stage.Step(), err)
	return fullErr
}

func (s *Service) notifySuccess(ctx context.Context, job *queue.Job, elapsed, download string) {
	if !s.apprise.Enabled() {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.apprise.DubReady(nctx, job.FileName, job.TargetLanguage, elapsed, download); err != nil {
		logger.Warnf("⚠️ Failed to send notification: %v", err)
	}
}

func (s *Service) notifyError(ctx context.Context, job *queue.Job, step string, err error) {
	if !s.apprise.Enabled() {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if notifyErr := s.apprise.DubFailed(nctx, job.FileName, step, err); notifyErr != nil {
		logger.Warnf("⚠️ Failed to send error notification: %v", notifyErr)
	}
}
