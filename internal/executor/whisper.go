package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/pkg/logger"
)

// Whisper handles transcription via the local faster-whisper service or the OpenAI API.
type Whisper struct {
	cfg    config.WhisperConfig
	http   *resty.Client
	openai *openai.Client
}

// NewWhisper creates a new Whisper executor.
func NewWhisper(cfg config.WhisperConfig) *Whisper {
	w := &Whisper{
		cfg:  cfg,
		http: resty.New().SetBaseURL(strings.TrimRight(cfg.URL, "/")).SetTimeout(cfg.Timeout),
	}
	if strings.EqualFold(cfg.Provider, "openai") {
		w.openai = newOpenAIClient(cfg.APIKey, cfg.BaseURL)
	}
	return w
}

// localTranscription is the local service's response body.
type localTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Error string `json:"error"`
}

// Health checks that the transcription engine is reachable.
// The OpenAI provider has no probe and always reports healthy.
func (w *Whisper) Health(ctx context.Context) error {
	if w.openai != nil {
		return nil
	}
	return probe(ctx, w.http, "transcription service", "/health")
}

// Transcribe turns an extracted audio file into text plus timed segments.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (domain.Transcript, error) {
	if w.openai != nil {
		return w.transcribeOpenAI(ctx, audioPath)
	}
	return w.transcribeLocal(ctx, audioPath)
}

func (w *Whisper) language() string {
	if w.cfg.Language == "" || strings.EqualFold(w.cfg.Language, "auto") {
		return ""
	}
	return w.cfg.Language
}

func (w *Whisper) transcribeLocal(ctx context.Context, audioPath string) (domain.Transcript, error) {
	logger.Infof("🎤 Transcribing (faster-whisper): %s", filepath.Base(audioPath))

	req := w.http.R().
		SetContext(ctx).
		SetFile("audio", audioPath).
		SetResult(&localTranscription{}).
		SetError(&localTranscription{})
	if lang := w.language(); lang != "" {
		req.SetFormData(map[string]string{"language": lang})
	}

	resp, err := req.Post("/transcribe")
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("%w: transcription request: %v", domain.ErrCollaboratorUnavailable, err)
	}
	if resp.IsError() {
		msg := resp.String()
		if e, ok := resp.Error().(*localTranscription); ok && e.Error != "" {
			msg = e.Error
		}
		return domain.Transcript{}, fmt.Errorf("transcription service error (%d): %s", resp.StatusCode(), msg)
	}

	body := resp.Result().(*localTranscription)
	tr := domain.Transcript{
		Text:     strings.TrimSpace(body.Text),
		Language: body.Language,
		Duration: body.Duration,
		Segments: make([]domain.OriginalSegment, 0, len(body.Segments)),
	}
	for _, s := range body.Segments {
		tr.Segments = append(tr.Segments, domain.OriginalSegment{
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start,
			End:   s.End,
		})
	}

	logger.Infof("✅ Transcription complete: %s (%d segments)", tr.Language, len(tr.Segments))
	return tr, nil
}

func (w *Whisper) transcribeOpenAI(ctx context.Context, audioPath string) (domain.Transcript, error) {
	logger.Infof("🎤 Transcribing (OpenAI API): %s", filepath.Base(audioPath))

	model := w.cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	resp, err := w.openai.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: w.language(),
	})
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("transcription: %s", apiError(err))
	}

	tr := domain.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: make([]domain.OriginalSegment, 0, len(resp.Segments)),
	}
	for _, s := range resp.Segments {
		tr.Segments = append(tr.Segments, domain.OriginalSegment{
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start,
			End:   s.End,
		})
	}

	logger.Infof("✅ Transcription complete: %s (%d segments)", tr.Language, len(tr.Segments))
	return tr, nil
}
