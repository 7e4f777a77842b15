package textutil

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"terminators", "Hola. ¿Qué tal? Bien!", []string{"Hola.", " ¿Qué tal?", " Bien!"}},
		{"no terminator", "just one clause", []string{"just one clause"}},
		{"trailing remainder kept", "One. two", []string{"One.", " two"}},
		{"punctuation runs", "Wait... what?!", []string{"Wait...", " what?!"}},
		{"blank pieces dropped", "A.   ", []string{"A."}},
		{"leading punctuation folds forward", "... Hola a todos.", []string{"... Hola a todos."}},
		{"trailing punctuation folds back", "Fin. !!", []string{"Fin. !!"}},
		{"inner punctuation folds forward", "Uno. ?! Dos.", []string{"Uno.", " ?! Dos."}},
		{"only punctuation", "...", []string{"..."}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitSentences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChunkSentencesPacksInOrder(t *testing.T) {
	text := "Alpha beta. Gamma delta. Epsilon zeta."
	got := ChunkSentences(text, 24)
	want := []string{"Alpha beta. Gamma delta.", "Epsilon zeta."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ChunkSentences = %q, want %q", got, want)
	}
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestChunkSentencesTerminatesOnLateBoundary(t *testing.T) {
	// 3100 characters without a terminator, then a short tail.
	var b strings.Builder
	for b.Len() < 3099 {
		b.WriteString("word ")
	}
	head := b.String()[:3099] + "."
	text := head + strings.Repeat("z", 99)
	if len(text) != 3199 {
		t.Fatalf("fixture length %d", len(text))
	}

	chunks := ChunkSentences(text, 1000)
	if len(chunks) == 0 || len(chunks) > 10 {
		t.Fatalf("unexpected chunk count %d", len(chunks))
	}
	for i, c := range chunks {
		if utf8.RuneCountInString(c) > 1000 {
			t.Fatalf("chunk %d has %d runes", i, utf8.RuneCountInString(c))
		}
	}
	if stripSpace(strings.Join(chunks, "")) != stripSpace(text) {
		t.Fatal("chunks do not reproduce the original text in order")
	}
}

func TestChunkSentencesHardCutsUnbrokenText(t *testing.T) {
	text := strings.Repeat("x", 2500)
	chunks := ChunkSentences(text, 1000)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Fatal("hard cut lost characters")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héllo..." {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncate %q", got)
	}
}
