// Package translation turns a transcript into target-language text. It never
// fails a job: timeouts and engine errors degrade to passing the transcript
// through untranslated.
package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/textutil"
	"github.com/fusionn-dub/pkg/logger"
)

const (
	// Results shorter than this are treated as a model misfire.
	minTranslationRunes = 10

	fullMaxTokens  = 2000
	chunkMaxTokens = 1000
)

// Engine is the language model behind translation.
type Engine interface {
	Health(ctx context.Context) error
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Options bound the coordinator's work.
type Options struct {
	// Deadline caps the whole translation; exceeding it yields a pass-through.
	Deadline       time.Duration
	RequestTimeout time.Duration
	ChunkTimeout   time.Duration
	ChunkThreshold int
	ChunkSize      int
}

// OptionsFromConfig reads Options from the translate and pipeline sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Deadline:       cfg.Pipeline.TranslationDeadline,
		RequestTimeout: cfg.Translate.RequestTimeout,
		ChunkTimeout:   cfg.Translate.ChunkTimeout,
		ChunkThreshold: cfg.Translate.ChunkThreshold,
		ChunkSize:      cfg.Translate.ChunkSize,
	}
}

// Coordinator drives translation of a full transcript.
type Coordinator struct {
	engine Engine
	opts   Options
}

// New creates a Coordinator.
func New(engine Engine, opts Options) *Coordinator {
	return &Coordinator{engine: engine, opts: opts}
}

// Translate returns text rendered in target. The result is always usable:
// on deadline, engine failure or an empty transcript it carries the
// original text with Degraded set.
func (c *Coordinator) Translate(ctx context.Context, text, source, target string) domain.TranslationResult {
	if strings.TrimSpace(text) == "" {
		res := domain.PassThrough(text, source, target, "empty transcript")
		res.Quality = Assess(text, text)
		return res
	}

	dctx, cancel := context.WithTimeout(ctx, c.opts.Deadline)
	defer cancel()

	// The engine may ignore cancellation, so the deadline is raced rather
	// than awaited through the call.
	done := make(chan domain.TranslationResult, 1)
	go func() {
		done <- c.translate(dctx, text, source, target)
	}()

	select {
	case res := <-done:
		return res
	case <-dctx.Done():
		reason := "translation deadline exceeded"
		if !errors.Is(dctx.Err(), context.DeadlineExceeded) {
			reason = "translation cancelled"
		}
		logger.Warnf("⏰ %s after %v, using original text", reason, c.opts.Deadline)
		res := domain.PassThrough(text, source, target, reason)
		res.Quality = Assess(text, text)
		return res
	}
}

func (c *Coordinator) translate(ctx context.Context, text, source, target string) domain.TranslationResult {
	logger.Infof("🌐 Translating %d chars → %s", utf8.RuneCountInString(text), target)

	if err := c.engine.Health(ctx); err != nil {
		logger.Warnf("⚠️ Translation engine unavailable, using original text: %v", err)
		res := domain.PassThrough(text, source, target, err.Error())
		res.Quality = Assess(text, text)
		return res
	}

	if utf8.RuneCountInString(text) > c.opts.ChunkThreshold {
		return c.translateChunks(ctx, text, source, target)
	}

	rctx, cancel := withTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	start := time.Now()
	raw, err := c.engine.Complete(rctx, fullPrompt(text, target), fullMaxTokens)
	if err != nil {
		logger.Warnf("⚠️ Translation failed, using original text: %v", err)
		res := domain.PassThrough(text, source, target, err.Error())
		res.Quality = Assess(text, text)
		return res
	}
	logger.Infof("⏱️ Translation completed in %.2fs", time.Since(start).Seconds())

	res := domain.TranslationResult{
		OriginalText:   text,
		TranslatedText: Clean(raw),
		SourceLanguage: source,
		TargetLanguage: target,
	}
	if utf8.RuneCountInString(res.TranslatedText) < minTranslationRunes {
		logger.Warnf("⚠️ Translation too short or empty, using original text")
		res.TranslatedText = text
		res.Degraded = true
		res.DegradedReason = "translation too short"
	}
	res.Quality = Assess(text, res.TranslatedText)
	logger.Infof("✅ Translation: %q", textutil.Truncate(res.TranslatedText, 100))
	return res
}

func (c *Coordinator) translateChunks(ctx context.Context, text, source, target string) domain.TranslationResult {
	chunks := textutil.ChunkSentences(text, c.opts.ChunkSize)
	logger.Infof("📦 Long text, translating in %d chunks", len(chunks))

	translated := make([]string, 0, len(chunks))
	failed := 0
	for i, chunk := range chunks {
		out, err := c.translateChunk(ctx, chunk, target)
		if err != nil {
			logger.Warnf("⚠️ Chunk %d/%d failed, keeping original: %v", i+1, len(chunks), err)
			failed++
			translated = append(translated, chunk)
			continue
		}
		translated = append(translated, out)
	}

	res := domain.TranslationResult{
		OriginalText:   text,
		TranslatedText: strings.Join(translated, " "),
		SourceLanguage: source,
		TargetLanguage: target,
		Chunks:         len(chunks),
	}
	if failed > 0 {
		res.Degraded = true
		res.DegradedReason = fmt.Sprintf("%d of %d chunks passed through", failed, len(chunks))
	}
	res.Quality = Assess(text, res.TranslatedText)
	logger.Infof("✅ Chunked translation complete (%d chunks, %d passed through)", len(chunks), failed)
	return res
}

func (c *Coordinator) translateChunk(ctx context.Context, chunk, target string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cctx, cancel := withTimeout(ctx, c.opts.ChunkTimeout)
	defer cancel()

	raw, err := c.engine.Complete(cctx, chunkPrompt(chunk, target), chunkMaxTokens)
	if err != nil {
		return "", err
	}
	out := Clean(raw)
	if out == "" {
		return "", errors.New("empty chunk translation")
	}
	return out, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
