// Package synthesis turns translated segments into positioned audio clips,
// one engine call per segment, in segment order.
package synthesis

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/fileops"
	"github.com/fusionn-dub/internal/textutil"
	"github.com/fusionn-dub/pkg/logger"
)

// Engine is the speech synthesis collaborator.
type Engine interface {
	Health(ctx context.Context) error
	Synthesize(ctx context.Context, text, language string, targetDuration float64, outputPath string) error
}

// Adapter calls the engine and waits for its artifact to appear.
type Adapter struct {
	engine Engine
	poll   Poll
	ext    string
}

// Poll bounds the wait for an engine's artifact.
type Poll struct {
	Attempts int
	Interval time.Duration
}

// Result summarizes a SynthesizeAll run.
type Result struct {
	Clips  []domain.AudioClip
	Failed int
}

// New creates an Adapter writing clips with extension ext (".wav", ".mp3").
func New(engine Engine, poll Poll, ext string) *Adapter {
	if ext == "" {
		ext = ".wav"
	}
	return &Adapter{engine: engine, poll: poll, ext: ext}
}

// Health reports whether the engine can be used at all.
func (a *Adapter) Health(ctx context.Context) error {
	return a.engine.Health(ctx)
}

// Synthesize renders text to outputPath and returns the path once the
// artifact is visible.
func (a *Adapter) Synthesize(ctx context.Context, text string, durationHint float64, language, outputPath string) (string, error) {
	if err := a.engine.Synthesize(ctx, text, language, durationHint, outputPath); err != nil {
		return "", err
	}
	if err := fileops.WaitForFile(ctx, outputPath, a.poll.Attempts, a.poll.Interval); err != nil {
		return "", fmt.Errorf("audio artifact not generated: %w", err)
	}
	return outputPath, nil
}

// SynthesizeAll synthesizes segments sequentially into dir. A failing
// segment is logged and skipped; if none succeed the error wraps
// domain.ErrCompositionStarvation.
func (a *Adapter) SynthesizeAll(ctx context.Context, jobID string, segments []domain.TranslatedSegment, language, dir string) (Result, error) {
	log := logger.WithJob(jobID)
	var res Result

	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		log.Infof("🎤 Segment %d/%d [%.1fs-%.1fs]: %q", i+1, len(segments), seg.Start, seg.End, textutil.Truncate(seg.Text, 40))

		out := filepath.Join(dir, fmt.Sprintf("segment_%s_%d%s", jobID, i, a.ext))
		path, err := a.Synthesize(ctx, seg.Text, seg.Duration(), language, out)
		if err != nil {
			res.Failed++
			log.Warnf("⚠️ %v", fmt.Errorf("segment %d: %w: %v", i+1, domain.ErrPartialSegment, err))
			continue
		}
		res.Clips = append(res.Clips, domain.AudioClip{
			Path:      path,
			StartTime: seg.Start,
			EndTime:   seg.End,
			Duration:  seg.Duration(),
		})
	}

	if len(res.Clips) == 0 {
		return res, fmt.Errorf("%w (%d segments failed)", domain.ErrCompositionStarvation, res.Failed)
	}
	log.Infof("✅ %d segments synthesized, %d skipped", len(res.Clips), res.Failed)
	return res, nil
}
