// Package apprise sends job notifications through an Apprise API server.
package apprise

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/pkg/logger"
)

// Notification types understood by Apprise.
const (
	TypeInfo    = "info"
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeFailure = "failure"
)

// Client wraps the Apprise API.
type Client struct {
	cfg    config.AppriseConfig
	client *resty.Client
}

// NewClient creates a new Apprise client.
func NewClient(cfg config.AppriseConfig) *Client {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &Client{
		cfg:    cfg,
		client: client,
	}
}

// NotifyRequest is the request body for Apprise.
type NotifyRequest struct {
	Body  string `json:"body"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"` // info, success, warning, failure
	Tag   string `json:"tag,omitempty"`
}

// Enabled reports whether notifications will be sent.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled && c.cfg.BaseURL != ""
}

// Notify sends a notification via Apprise. A disabled client is a no-op.
func (c *Client) Notify(ctx context.Context, title, body, notifyType string) error {
	if !c.Enabled() {
		return nil
	}

	tag := c.cfg.Tag
	if tag == "" {
		tag = "all"
	}

	req := NotifyRequest{
		Title: title,
		Body:  body,
		Type:  notifyType,
		Tag:   tag,
	}

	url := fmt.Sprintf("%s/notify/%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Key)

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(url)

	if err != nil {
		return fmt.Errorf("apprise request: %w", err)
	}

	if resp.StatusCode() >= 400 {
		return fmt.Errorf("apprise error (status %d): %s", resp.StatusCode(), resp.String())
	}

	logger.Debugf("🔔 Notification sent: %s", title)
	return nil
}

// DubReady announces a finished job.
func (c *Client) DubReady(ctx context.Context, fileName, language, elapsed, downloadURL string) error {
	body := fmt.Sprintf("**%s** → %s\n\nTotal time: %s", fileName, language, elapsed)
	if downloadURL != "" {
		body += "\nDownload: " + downloadURL
	}
	return c.Notify(ctx, "🎙️ Dub Ready", body, TypeSuccess)
}

// DubFailed announces a failed job.
func (c *Client) DubFailed(ctx context.Context, fileName, step string, err error) error {
	body := fmt.Sprintf("**%s**\nFailed at: %s\nError: %v", fileName, step, err)
	return c.Notify(ctx, "❌ Dubbing Failed", body, TypeFailure)
}
