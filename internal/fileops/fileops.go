package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fusionn-dub/pkg/logger"
)

// unsafeNameChars matches anything that should not survive into a stored file name.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// mediaExts is the upload whitelist (video containers plus bare audio).
var mediaExts = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mkv":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".3gp":  true,
	".mp3":  true,
	".wav":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
}

// ErrNotVisible is returned by WaitForFile when the file never appeared.
var ErrNotVisible = errors.New("file not visible")

// HardlinkOrCopy tries to hardlink src to dst, falls back to copy if hardlink fails.
func HardlinkOrCopy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	err := os.Link(src, dst)
	if err == nil {
		logger.Debugf("🔗 Hard-linked: %s → %s", src, dst)
		return nil
	}

	logger.Debugf("⚠️ Hardlink failed (%v), falling back to copy", err)

	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	logger.Debugf("📋 Copied: %s → %s (%s)", src, dst, HumanSize(dst))
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists checks if a file or directory exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes a file. A missing file is not an error.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveAll deletes each path, logging failures instead of stopping.
// It returns the number of paths that were actually removed.
func RemoveAll(paths ...string) int {
	removed := 0
	for _, p := range paths {
		if p == "" || !Exists(p) {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			logger.Warnf("⚠️ Failed to remove %s: %v", p, err)
			continue
		}
		removed++
	}
	return removed
}

// IsMediaFile checks the extension against the upload whitelist.
func IsMediaFile(path string) bool {
	return mediaExts[strings.ToLower(filepath.Ext(path))]
}

// SanitizeFileName reduces a client-supplied name to a safe base name.
// Examples:
//   - "../../etc/passwd" → "passwd"
//   - "My Clip (1).mp4" → "My_Clip_1_.mp4"
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	clean := unsafeNameChars.ReplaceAllString(base, "_")
	clean = strings.TrimLeft(clean, ".")
	if clean == "" {
		return "upload"
	}
	return clean
}

// ChangeExtension changes the extension of a filename.
func ChangeExtension(path, newExt string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + newExt
}

// Poll evaluates cond up to attempts times, sleeping interval between tries.
// It reports whether cond became true; a cancelled ctx stops early.
func Poll(ctx context.Context, attempts int, interval time.Duration, cond func() bool) (bool, error) {
	for i := 0; i < attempts; i++ {
		if cond() {
			return true, nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
	return false, nil
}

// WaitForFile polls until path exists, up to attempts times at interval.
// Engines can report success before their output is visible on disk.
func WaitForFile(ctx context.Context, path string, attempts int, interval time.Duration) error {
	ok, err := Poll(ctx, attempts, interval, func() bool { return Exists(path) })
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w after %d attempts: %s", ErrNotVisible, attempts, filepath.Base(path))
	}
	return nil
}

// HumanSize returns the file size in human form ("12 MB"), or "?" if unknown.
func HumanSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(info.Size()))
}
