package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestStateProgressIsMonotonic(t *testing.T) {
	order := []State{
		StateQueued,
		StateExtractingAudio,
		StateTranscribing,
		StateTranslating,
		StateSynthesizingVoice,
		StateCompositing,
		StateMuxing,
		StateCompleted,
	}
	prev := -1
	for _, s := range order {
		if s.Progress() <= prev {
			t.Fatalf("progress for %s (%d) does not exceed previous %d", s, s.Progress(), prev)
		}
		prev = s.Progress()
	}
	if StateCompleted.Progress() != 100 {
		t.Fatalf("completed must report 100, got %d", StateCompleted.Progress())
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateQueued, StateExtractingAudio, true},
		{StateTranslating, StateTranscribing, false},
		{StateTranslating, StateFailed, true},
		{StateFailed, StateCompleted, false},
		{StateCompleted, StateFailed, false},
		{StateMuxing, StateCompleted, true},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStepNames(t *testing.T) {
	if StateSynthesizingVoice.Step() != "synthesizing_voice" {
		t.Fatalf("unexpected step %q", StateSynthesizingVoice.Step())
	}
	if StateExtractingAudio.Step() != "extracting_audio" {
		t.Fatalf("unexpected step %q", StateExtractingAudio.Step())
	}
}

func TestStageErrorUnwraps(t *testing.T) {
	err := Fatal(StateMuxing, fmt.Errorf("both strategies: %w", ErrMuxing))
	if !errors.Is(err, ErrMuxing) {
		t.Fatal("expected ErrMuxing in chain")
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StateMuxing {
		t.Fatalf("expected StageError for muxing, got %v", err)
	}
	if err.Error() != "muxing failed: both strategies: remux failed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(fmt.Errorf("chunk: %w", ErrTranslationDegraded)) {
		t.Fatal("degraded translation must not be fatal")
	}
	if IsFatal(fmt.Errorf("seg 3: %w", ErrPartialSegment)) {
		t.Fatal("single segment failure must not be fatal")
	}
	if !IsFatal(ErrCompositionStarvation) {
		t.Fatal("composition starvation must be fatal")
	}
	if IsFatal(nil) {
		t.Fatal("nil is not fatal")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	got, err := NormalizeLanguage("ES-mx")
	if err != nil {
		t.Fatalf("NormalizeLanguage returned error: %v", err)
	}
	if got != "es-MX" {
		t.Fatalf("expected es-MX, got %q", got)
	}
	if got, _ := NormalizeLanguage(""); got != DefaultTargetLanguage {
		t.Fatalf("expected default language, got %q", got)
	}
	if _, err := NormalizeLanguage("not a language!"); !errors.Is(err, ErrFatalInput) {
		t.Fatalf("expected ErrFatalInput, got %v", err)
	}
}

func TestLanguageName(t *testing.T) {
	if got := LanguageName("fr"); got != "French" {
		t.Fatalf("expected French, got %q", got)
	}
	if got := BaseLanguage("pt-BR"); got != "pt" {
		t.Fatalf("expected pt, got %q", got)
	}
}
