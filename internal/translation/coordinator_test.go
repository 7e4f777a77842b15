package translation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/fusionn-dub/internal/domain"
)

type fakeEngine struct {
	mu        sync.Mutex
	healthErr error
	reply     func(prompt string) (string, error)
	block     chan struct{}
	prompts   []string
}

func (f *fakeEngine) Health(ctx context.Context) error { return f.healthErr }

func (f *fakeEngine) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block // ignores ctx on purpose
	}
	return f.reply(prompt)
}

func testOptions() Options {
	return Options{
		Deadline:       5 * time.Second,
		RequestTimeout: time.Second,
		ChunkTimeout:   time.Second,
		ChunkThreshold: 1500,
		ChunkSize:      1000,
	}
}

// chunkBody recovers the source text embedded in a chunk prompt.
func chunkBody(prompt string) string {
	_, body, _ := strings.Cut(prompt, "\n\n")
	return strings.TrimSuffix(body, "\n\nTranslation:")
}

func TestTranslateCleansPreamble(t *testing.T) {
	engine := &fakeEngine{reply: func(string) (string, error) {
		return "  Here is the translation: Hola amigo, ¿cómo estás hoy?  ", nil
	}}
	c := New(engine, testOptions())

	res := c.Translate(context.Background(), "Hello friend, how are you today?", "en", "es")
	if res.Degraded {
		t.Fatalf("unexpected degraded result: %s", res.DegradedReason)
	}
	if res.TranslatedText != "Hola amigo, ¿cómo estás hoy?" {
		t.Fatalf("unexpected translation %q", res.TranslatedText)
	}
	if res.Quality.Score != 85 || res.Quality.Rating != "high" {
		t.Fatalf("unexpected quality %+v", res.Quality)
	}
	if !strings.Contains(engine.prompts[0], "into Spanish") {
		t.Fatalf("prompt should name the target language: %q", engine.prompts[0])
	}
}

func TestTranslateShortReplyFallsBack(t *testing.T) {
	engine := &fakeEngine{reply: func(string) (string, error) { return "Translation: Sí", nil }}
	res := New(engine, testOptions()).Translate(context.Background(), "Yes, that is right.", "en", "es")
	if res.TranslatedText != "Yes, that is right." || !res.Degraded {
		t.Fatalf("expected original text on short reply, got %+v", res)
	}
}

func TestTranslateEngineErrorPassesThrough(t *testing.T) {
	engine := &fakeEngine{reply: func(string) (string, error) { return "", errors.New("500 from model") }}
	res := New(engine, testOptions()).Translate(context.Background(), "Some text to translate.", "en", "fr")
	if res.TranslatedText != res.OriginalText || !res.Degraded {
		t.Fatalf("expected pass-through, got %+v", res)
	}
	if res.Quality.Score != 55 {
		t.Fatalf("identical output should score 55, got %d", res.Quality.Score)
	}
}

func TestTranslateUnhealthyEnginePassesThrough(t *testing.T) {
	engine := &fakeEngine{healthErr: domain.ErrCollaboratorUnavailable}
	res := New(engine, testOptions()).Translate(context.Background(), "Some text to translate.", "en", "fr")
	if !res.Degraded || res.TranslatedText != "Some text to translate." {
		t.Fatalf("expected pass-through, got %+v", res)
	}
	if len(engine.prompts) != 0 {
		t.Fatal("engine should not be called when unhealthy")
	}
}

func TestTranslateDeadlinePassesThrough(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	engine := &fakeEngine{block: block, reply: func(string) (string, error) { return "never used", nil }}
	opts := testOptions()
	opts.Deadline = 50 * time.Millisecond

	start := time.Now()
	res := New(engine, opts).Translate(context.Background(), "An engine that never answers.", "en", "es")
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("deadline not honored, took %v", elapsed)
	}
	if res.TranslatedText != res.OriginalText || !res.Degraded {
		t.Fatalf("expected pass-through on deadline, got %+v", res)
	}
	if res.DegradedReason != "translation deadline exceeded" {
		t.Fatalf("unexpected reason %q", res.DegradedReason)
	}
}

func TestTranslateEmptyTranscript(t *testing.T) {
	engine := &fakeEngine{}
	res := New(engine, testOptions()).Translate(context.Background(), "   ", "en", "es")
	if !res.Degraded || len(engine.prompts) != 0 {
		t.Fatalf("expected degraded result without engine calls, got %+v", res)
	}
}

func lateBoundaryText() string {
	var b strings.Builder
	for b.Len() < 3099 {
		b.WriteString("word ")
	}
	return b.String()[:3099] + "." + strings.Repeat("z", 100)
}

func TestTranslateChunksLongText(t *testing.T) {
	engine := &fakeEngine{reply: func(p string) (string, error) {
		return strings.ToUpper(chunkBody(p)), nil
	}}
	text := lateBoundaryText()

	res := New(engine, testOptions()).Translate(context.Background(), text, "en", "es")
	if res.Degraded {
		t.Fatalf("unexpected degraded result: %s", res.DegradedReason)
	}
	if res.Chunks != len(engine.prompts) || res.Chunks < 4 {
		t.Fatalf("expected one call per chunk, got %d chunks / %d calls", res.Chunks, len(engine.prompts))
	}

	var bodies []string
	for _, p := range engine.prompts {
		body := chunkBody(p)
		if utf8.RuneCountInString(body) > 1000 {
			t.Fatalf("chunk of %d runes exceeds limit", utf8.RuneCountInString(body))
		}
		bodies = append(bodies, strings.ToUpper(body))
	}
	if res.TranslatedText != strings.Join(bodies, " ") {
		t.Fatal("chunks not joined with single spaces in order")
	}
	if strings.Join(strings.Fields(res.TranslatedText), "") != strings.Join(strings.Fields(strings.ToUpper(text)), "") {
		t.Fatal("chunked translation lost or reordered text")
	}
}

func TestTranslateChunkFailureKeepsOriginalChunk(t *testing.T) {
	var calls int
	var mu sync.Mutex
	engine := &fakeEngine{reply: func(p string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 {
			return "", errors.New("chunk timeout")
		}
		return strings.ToUpper(chunkBody(p)), nil
	}}
	text := lateBoundaryText()

	res := New(engine, testOptions()).Translate(context.Background(), text, "en", "es")
	if !res.Degraded || !strings.HasPrefix(res.DegradedReason, "1 of ") {
		t.Fatalf("expected one chunk passed through, got %+v", res.DegradedReason)
	}
	second := chunkBody(engine.prompts[1])
	if !strings.Contains(res.TranslatedText, second) {
		t.Fatal("failed chunk should appear untranslated")
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Traducción: Hola", "Hola"},
		{"La traducción al español es: Hola mundo", "Hola mundo"},
		{"Aquí está la traducción: Buenos días", "Buenos días"},
		{"HERE IS THE TRANSLATION Bonjour", "Bonjour"},
		{"French translation: Bonjour", "Bonjour"},
		{"  plain text  ", "plain text"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAssess(t *testing.T) {
	tests := []struct {
		name       string
		orig, tr   string
		wantScore  int
		wantRating string
	}{
		{"normal", "Hello world", "Hola mundo", 85, "high"},
		{"empty", "Hello", "", 0, "low"},
		{"identical", "Hello world", "Hello world", 55, "low"},
		{"too short", "Hello there my friend", "Hi", 65, "medium"},
		{"identical and odd ratio", "a", "a", 55, "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Assess(tt.orig, tt.tr)
			if q.Score != tt.wantScore || q.Rating != tt.wantRating {
				t.Fatalf("Assess = %+v, want %d/%s", q, tt.wantScore, tt.wantRating)
			}
		})
	}
}
