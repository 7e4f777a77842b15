// Package timeline mixes synthesized clips onto the source video's time axis.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/executor"
	"github.com/fusionn-dub/internal/fileops"
	"github.com/fusionn-dub/pkg/logger"
)

const (
	outputSampleRate = "44100"
	outputChannels   = "2"
)

var (
	errNoClips       = errors.New("no clips to compose")
	errBadTotalRange = errors.New("total duration must be positive")
)

// Compositor builds one mixed track from positioned clips with ffmpeg.
type Compositor struct {
	runner executor.Runner
	ffmpeg string
}

// New creates a Compositor.
func New(runner executor.Runner, ffmpeg string) *Compositor {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Compositor{runner: runner, ffmpeg: ffmpeg}
}

// Compose mixes clips into outputPath. Each clip is delayed by its StartTime,
// overlapping clips are summed, the mix is padded with silence and cut at
// total seconds, and the result is stereo 44.1 kHz. The clip files are
// deleted afterwards whether or not the mix succeeded.
func (c *Compositor) Compose(ctx context.Context, clips []domain.AudioClip, total float64, outputPath string) (string, error) {
	defer func() {
		paths := make([]string, 0, len(clips))
		for _, clip := range clips {
			paths = append(paths, clip.Path)
		}
		if n := fileops.RemoveAll(paths...); n > 0 {
			logger.Debugf("🧹 Removed %d segment clips", n)
		}
	}()

	args, err := BuildMixArgs(clips, total, outputPath)
	if err != nil {
		return "", err
	}

	logger.Infof("🎚️ Mixing %d clips onto a %.2fs timeline", len(clips), total)
	if _, err := c.runner.Run(ctx, c.ffmpeg, args...); err != nil {
		return "", fmt.Errorf("mix: %w", err)
	}
	if !fileops.Exists(outputPath) {
		return "", fmt.Errorf("mix: output not created: %s", outputPath)
	}
	logger.Infof("✅ Timeline mixed: %s", fileops.HumanSize(outputPath))
	return outputPath, nil
}

// BuildMixArgs returns the ffmpeg arguments for Compose. Clips are ordered by
// start time so the arguments are deterministic.
func BuildMixArgs(clips []domain.AudioClip, total float64, outputPath string) ([]string, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrCompositionStarvation, errNoClips)
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: %v", errBadTotalRange, total)
	}

	ordered := make([]domain.AudioClip, len(clips))
	copy(ordered, clips)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartTime < ordered[j].StartTime })

	args := make([]string, 0, 2*len(ordered)+14)
	filters := make([]string, 0, len(ordered)+1)
	var mixInputs strings.Builder

	for i, clip := range ordered {
		args = append(args, "-i", clip.Path)
		delay := DelayMillis(clip.StartTime)
		filters = append(filters, fmt.Sprintf("[%d:a]adelay=%d|%d[a%d]", i, delay, delay, i))
		fmt.Fprintf(&mixInputs, "[a%d]", i)
	}
	filters = append(filters, fmt.Sprintf("%samix=inputs=%d:duration=longest,apad[out]", mixInputs.String(), len(ordered)))

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "[out]",
		"-t", FormatSeconds(total),
		"-ar", outputSampleRate,
		"-ac", outputChannels,
		"-y",
		outputPath,
	)
	return args, nil
}

// DelayMillis converts a start offset to whole milliseconds, never negative.
func DelayMillis(start float64) int64 {
	if start <= 0 {
		return 0
	}
	return int64(math.Floor(start * 1000))
}

// FormatSeconds renders seconds the way ffmpeg's -t expects, truncated to
// the millisecond. The epsilon absorbs float error such as 4.35*1000.
func FormatSeconds(s float64) string {
	ms := math.Floor(s*1000 + 1e-6)
	return strconv.FormatFloat(ms/1000, 'f', 3, 64)
}
