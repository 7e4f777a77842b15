package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fusionn-dub/internal/events"
)

const transcriptJSON = `{
  "text": "hi there friend",
  "language": "en",
  "segments": [
    {"text": "hi", "start": 0, "end": 2},
    {"text": "there", "start": 2, "end": 4},
    {"text": "friend", "start": 4, "end": 6}
  ]
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "fusionn-dub ") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPlanCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := os.WriteFile(path, []byte(transcriptJSON), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "plan", "--transcript", path, "--translation", "Hola amigos.")
	if err != nil {
		t.Fatalf("plan returned error: %v", err)
	}
	for _, want := range []string{"Hola amigos.", "hi there friend", "6.00", "3 original segments → 1 translated segments"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlanReportsUnusedSentences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := os.WriteFile(path, []byte(`{"segments":[{"text":"a","start":0,"end":1}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "plan", "-t", path, "--translation", "Uno. Dos. Tres.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "(2 trailing sentences unused)") {
		t.Fatalf("expected unused sentence note:\n%s", out)
	}
}

func TestPlanCountsMergedRepeatsAsUsed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := os.WriteFile(path, []byte(`{"segments":[{"text":"yes","start":0,"end":1},{"text":"yes","start":1,"end":2}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "plan", "-t", path, "--translation", "Sí. Sí.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 original segments → 1 translated segments") || strings.Contains(out, "unused") {
		t.Fatalf("repeated sentences were both spoken:\n%s", out)
	}
}

func TestPlanRequiresTranslation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := os.WriteFile(path, []byte(transcriptJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "plan", "-t", path); err == nil {
		t.Fatal("expected error without a translation")
	}
}

func TestDubRejectsMissingFile(t *testing.T) {
	_, err := execute(t, "dub", filepath.Join(t.TempDir(), "missing.mp4"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := progressPrinter(&buf)
	p.OnProgress(events.Event{Type: events.TypeProgress, Step: "synthesizing_voice", Progress: 70, Message: "Synthesizing voice"})
	p.OnProgress(events.Event{Type: events.TypeError, Message: "transcribing failed: collaborator unavailable"})

	out := buf.String()
	if !strings.Contains(out, "[ 70%] synthesizing voice") || !strings.Contains(out, "❌ transcribing failed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
