package fileops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsMediaFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"clip.mp4", true},
		{"CLIP.MKV", true},
		{"voice.flac", true},
		{"phone.3gp", true},
		{"notes.txt", false},
		{"archive.mp4.zip", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsMediaFile(tt.name); got != tt.want {
			t.Errorf("IsMediaFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"../../etc/passwd", "passwd"},
		{"My Clip (1).mp4", "My_Clip_1_.mp4"},
		{`C:\videos\talk.mov`, "talk.mov"},
		{".hidden.mp4", "hidden.mp4"},
		{"", "upload"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWaitForFileAppearsLate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late.mp3")
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(path, []byte("x"), 0644)
	}()

	if err := WaitForFile(context.Background(), path, 30, 10*time.Millisecond); err != nil {
		t.Fatalf("expected file to become visible: %v", err)
	}
}

func TestWaitForFileGivesUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.mp3")
	err := WaitForFile(context.Background(), path, 3, time.Millisecond)
	if !errors.Is(err, ErrNotVisible) {
		t.Fatalf("expected ErrNotVisible, got %v", err)
	}
}

func TestWaitForFileHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitForFile(ctx, filepath.Join(t.TempDir(), "x"), 10, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRemoveAllSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	if err := os.WriteFile(a, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if n := RemoveAll(a, filepath.Join(dir, "missing.wav"), ""); n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
	if Exists(a) {
		t.Fatal("file still present")
	}
	if err := Remove(a); err != nil {
		t.Fatalf("Remove of missing file should be nil, got %v", err)
	}
}

func TestHardlinkOrCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	if err := os.WriteFile(src, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "nested", "dst.mp4")
	if err := HardlinkOrCopy(src, dst); err != nil {
		t.Fatalf("HardlinkOrCopy: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "video" {
		t.Fatalf("unexpected destination content %q (%v)", data, err)
	}
	if HumanSize(dst) != "5 B" {
		t.Fatalf("unexpected size %q", HumanSize(dst))
	}
}

func TestPollStopsAtAttempts(t *testing.T) {
	calls := 0
	ok, err := Poll(context.Background(), 30, time.Microsecond, func() bool {
		calls++
		return false
	})
	if ok || err != nil {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
	if calls != 30 {
		t.Fatalf("expected 30 attempts, got %d", calls)
	}
}
