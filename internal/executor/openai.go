package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/fusionn-dub/internal/domain"
)

// newOpenAIClient builds an OpenAI client, pointing it at baseURL when set.
func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// probe issues a GET against a local engine and maps any failure to
// domain.ErrCollaboratorUnavailable.
func probe(ctx context.Context, client *resty.Client, name, url string) error {
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrCollaboratorUnavailable, name, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s: health returned %d", domain.ErrCollaboratorUnavailable, name, resp.StatusCode())
	}
	return nil
}

// apiError extracts the message from an OpenAI error response.
func apiError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("openai api error (%d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return err.Error()
}
