package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/pkg/logger"
)

// Translator sends prompts to the language model behind translation:
// a local Ollama instance or an OpenAI chat model.
type Translator struct {
	cfg     config.TranslateConfig
	http    *resty.Client
	openai  *openai.Client
	limiter *rate.Limiter
}

// NewTranslator creates a new Translator executor.
func NewTranslator(cfg config.TranslateConfig) *Translator {
	t := &Translator{
		cfg:  cfg,
		http: resty.New().SetBaseURL(strings.TrimRight(cfg.URL, "/")),
	}
	if strings.EqualFold(cfg.Provider, "openai") {
		t.openai = newOpenAIClient(cfg.APIKey, cfg.BaseURL)
	}

	// Set up rate limiter if configured
	if cfg.RateLimitRPM > 0 {
		// Convert RPM to rate per second
		rps := float64(cfg.RateLimitRPM) / 60.0
		t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		logger.Infof("🚦 Translator rate limit: %d RPM", cfg.RateLimitRPM)
	}

	return t
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Health checks that the model server is reachable.
func (t *Translator) Health(ctx context.Context) error {
	if t.openai != nil {
		return nil
	}
	return probe(ctx, t.http, "ollama", "/api/tags")
}

// Complete sends prompt and returns the model's raw reply. maxTokens bounds
// the reply length. Callers own the deadline through ctx.
func (t *Translator) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := t.WaitForRateLimit(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	if t.openai != nil {
		return t.completeOpenAI(ctx, prompt, maxTokens)
	}
	return t.completeOllama(ctx, prompt, maxTokens)
}

func (t *Translator) completeOllama(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var out ollamaGenerateResponse
	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(ollamaGenerateRequest{
			Model:  t.cfg.Model,
			Prompt: prompt,
			Stream: false,
			Options: ollamaOptions{
				Temperature: 0.1,
				TopP:        0.9,
				NumPredict:  maxTokens,
			},
		}).
		SetResult(&out).
		SetError(&out).
		Post("/api/generate")
	if err != nil {
		return "", fmt.Errorf("%w: ollama request: %v", domain.ErrCollaboratorUnavailable, err)
	}
	if resp.IsError() {
		msg := out.Error
		if msg == "" {
			msg = resp.String()
		}
		return "", fmt.Errorf("ollama error (%d): %s", resp.StatusCode(), msg)
	}
	return out.Response, nil
}

func (t *Translator) completeOpenAI(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := t.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		TopP:        0.9,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %s", apiError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// WaitForRateLimit blocks until the rate limiter allows the next request.
func (t *Translator) WaitForRateLimit(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
