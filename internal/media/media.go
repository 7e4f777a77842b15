// Package media is the boundary to ffmpeg and ffprobe: audio extraction for
// transcription, probing, and the final audio/video remux.
package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"

	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/executor"
	"github.com/fusionn-dub/internal/fileops"
	"github.com/fusionn-dub/pkg/logger"
)

const (
	speechSampleRate = 16000
	speechChannels   = 1
)

// Service wraps the transcoding tools.
type Service struct {
	runner          executor.Runner
	ffmpeg          string
	ffprobe         string
	defaultDuration float64
}

// New creates a media Service.
func New(runner executor.Runner, cfg config.MediaConfig) *Service {
	s := &Service{
		runner:          runner,
		ffmpeg:          cfg.FFmpeg,
		ffprobe:         cfg.FFprobe,
		defaultDuration: cfg.DefaultDuration.Seconds(),
	}
	if s.ffmpeg == "" {
		s.ffmpeg = "ffmpeg"
	}
	if s.ffprobe == "" {
		s.ffprobe = "ffprobe"
	}
	if s.defaultDuration <= 0 {
		s.defaultDuration = 300
	}
	return s
}

// ExtractAudio writes a mono 16 kHz PCM WAV of videoPath's audio to outputPath.
// A missing source or an unusable result is a fatal input error.
func (s *Service) ExtractAudio(ctx context.Context, videoPath, outputPath string) (string, error) {
	if !fileops.Exists(videoPath) {
		return "", fmt.Errorf("%w: source not found: %s", domain.ErrFatalInput, filepath.Base(videoPath))
	}
	if err := fileops.EnsureDir(filepath.Dir(outputPath)); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	logger.Infof("🎵 Extracting audio: %s (%s)", filepath.Base(videoPath), fileops.HumanSize(videoPath))
	_, err := s.runner.Run(ctx, s.ffmpeg,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-f", "wav",
		"-y",
		outputPath,
	)
	if err != nil {
		return "", fmt.Errorf("%w: extract audio: %v", domain.ErrFatalInput, err)
	}

	if err := ValidateSpeechWAV(outputPath); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFatalInput, err)
	}
	logger.Infof("✅ Audio extracted: %s", fileops.HumanSize(outputPath))
	return outputPath, nil
}

// ValidateSpeechWAV checks that path is a readable PCM WAV at 16 kHz mono.
func ValidateSpeechWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open extracted audio: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return fmt.Errorf("extracted audio is not a valid wav: %s", filepath.Base(path))
	}
	if d.SampleRate != speechSampleRate || d.NumChans != speechChannels {
		return fmt.Errorf("extracted audio is %d Hz / %d ch, want %d Hz mono", d.SampleRate, d.NumChans, speechSampleRate)
	}
	return nil
}

// Probe inspects videoPath. Probe failures are not fatal: the duration falls
// back to the configured default and Probed is false.
func (s *Service) Probe(ctx context.Context, videoPath string) domain.MediaInfo {
	info := domain.MediaInfo{Duration: s.defaultDuration}

	res, err := s.inspect(ctx, videoPath)
	if err != nil {
		logger.Warnf("⚠️ Probe failed, assuming %.0fs: %v", s.defaultDuration, err)
		return info
	}

	if d := res.DurationSeconds(); d > 0 {
		info.Duration = d
		info.Probed = true
	} else {
		logger.Warnf("⚠️ Probe returned no duration, assuming %.0fs", s.defaultDuration)
	}
	if v := res.firstStream("video"); v != nil {
		fps := parseRate(v.RFrameRate)
		if fps == 0 {
			fps = 30
		}
		info.Video = &domain.VideoStream{Codec: v.CodecName, Width: v.Width, Height: v.Height, FPS: fps}
	}
	if a := res.firstStream("audio"); a != nil {
		rate, _ := parseSampleRate(a.SampleRate)
		info.Audio = &domain.AudioStream{Codec: a.CodecName, Channels: a.Channels, SampleRate: rate}
	}
	return info
}

func parseSampleRate(v string) (int, bool) {
	f := parseFloat(v)
	if math.IsNaN(f) || f <= 0 {
		return 0, false
	}
	return int(f), true
}

// RemuxArgs returns the primary and fallback ffmpeg argument lists. Both copy
// the video stream and take audio from the second input; the fallback drops
// the sample-rate override.
func RemuxArgs(videoPath, audioPath, outputPath string) (primary, fallback []string) {
	primary = []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "44100",
		"-map", "0:v",
		"-map", "1:a",
		"-y",
		outputPath,
	}
	fallback = []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-map", "0:v",
		"-map", "1:a",
		"-y",
		outputPath,
	}
	return primary, fallback
}

// Remux replaces videoPath's audio with audioPath, writing outputPath. When
// the primary strategy fails the simplified one is tried; if both fail the
// error wraps domain.ErrMuxing and any partial output is removed.
func (s *Service) Remux(ctx context.Context, videoPath, audioPath, outputPath string) (string, error) {
	if err := fileops.EnsureDir(filepath.Dir(outputPath)); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	primary, fallback := RemuxArgs(videoPath, audioPath, outputPath)

	logger.Infof("🎬 Remuxing: %s", filepath.Base(outputPath))
	_, err := s.runner.Run(ctx, s.ffmpeg, primary...)
	if err == nil {
		return outputPath, nil
	}
	logger.Warnf("⚠️ Primary remux failed, trying simplified strategy: %v", err)

	if _, ferr := s.runner.Run(ctx, s.ffmpeg, fallback...); ferr != nil {
		_ = fileops.Remove(outputPath)
		return "", fmt.Errorf("%w: primary: %v; fallback: %v", domain.ErrMuxing, err, ferr)
	}
	logger.Infof("✅ Remux succeeded with simplified strategy")
	return outputPath, nil
}
