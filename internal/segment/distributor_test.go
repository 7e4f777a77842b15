package segment

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/fusionn-dub/internal/domain"
)

func segs(bounds ...float64) []domain.OriginalSegment {
	out := make([]domain.OriginalSegment, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		out = append(out, domain.OriginalSegment{
			Text:  fmt.Sprintf("orig %d", i),
			Start: bounds[i],
			End:   bounds[i+1],
		})
	}
	return out
}

func TestDistributeSixSegmentsThreeSentences(t *testing.T) {
	originals := segs(0, 1, 2, 3, 4, 5, 6)
	got := Distribute(originals, "Uno. Dos. Tres.")

	want := []domain.TranslatedSegment{
		{Text: "Uno.", Start: 0, End: 2, OriginalText: "orig 0 orig 1"},
		{Text: "Dos.", Start: 2, End: 4, OriginalText: "orig 2 orig 3"},
		{Text: "Tres.", Start: 4, End: 6, OriginalText: "orig 4 orig 5"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDistributeSingleSentenceMergesEverything(t *testing.T) {
	originals := []domain.OriginalSegment{
		{Text: "hi", Start: 0, End: 2},
		{Text: "there", Start: 2, End: 4},
		{Text: "friend", Start: 4, End: 6},
	}
	got := Distribute(originals, "Hola amigo.")
	if len(got) != 1 {
		t.Fatalf("expected 1 merged segment, got %d", len(got))
	}
	if got[0].Start != 0 || got[0].End != 6 {
		t.Fatalf("expected span [0,6], got [%v,%v]", got[0].Start, got[0].End)
	}
	if got[0].Text != "Hola amigo." || got[0].OriginalText != "hi there friend" {
		t.Fatalf("unexpected texts: %+v", got[0])
	}
}

func TestDistributeNoBoundaryIsOneSentence(t *testing.T) {
	got := Distribute(segs(0, 1.5, 3), "sin puntuacion final")
	if len(got) != 1 || got[0].Text != "sin puntuacion final" || got[0].End != 3 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDistributeIgnoresWordlessSentences(t *testing.T) {
	got := Distribute(segs(0, 2, 4), "... Hola a todos.")
	if len(got) != 1 {
		t.Fatalf("expected 1 segment, got %+v", got)
	}
	if got[0].Text != "... Hola a todos." || got[0].Start != 0 || got[0].End != 4 {
		t.Fatalf("unexpected segment %+v", got[0])
	}
}

// More sentences than segments: the surplus sentences are never spoken.
func TestDistributeDropsSurplusSentences(t *testing.T) {
	got := Distribute(segs(0, 2, 4), "A. B. C. D. E.")
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got))
	}
	if got[0].Text != "A." || got[1].Text != "B." {
		t.Fatalf("unexpected assignment %+v", got)
	}
}

func TestSentenceIndices(t *testing.T) {
	tests := []struct {
		n, k   int
		want   []int
		unused int
	}{
		{6, 3, []int{0, 0, 1, 1, 2, 2}, 0},
		{5, 2, []int{0, 0, 0, 1, 1}, 0},
		{2, 5, []int{0, 1}, 3},
		{3, 1, []int{0, 0, 0}, 0},
		{0, 3, nil, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_segments_%d_sentences", tt.n, tt.k), func(t *testing.T) {
			got := SentenceIndices(tt.n, tt.k)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Fatalf("SentenceIndices = %v, want %v", got, tt.want)
			}
			if u := UnusedSentences(tt.n, tt.k); u != tt.unused {
				t.Fatalf("UnusedSentences = %d, want %d", u, tt.unused)
			}
		})
	}
}

// Segments beyond the last full group keep the last sentence and merge into it.
func TestDistributeUnevenGroups(t *testing.T) {
	got := Distribute(segs(0, 1, 2, 3, 4, 5), "First. Second.")
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(got), got)
	}
	if got[0].End != 3 || got[1].Start != 3 || got[1].End != 5 {
		t.Fatalf("unexpected spans %+v", got)
	}
}

func TestDistributeMergesIdenticalAdjacentSentences(t *testing.T) {
	got := Distribute(segs(0, 1, 2, 3), "Si. Si. No.")
	if len(got) != 2 {
		t.Fatalf("expected identical adjacent sentences to merge, got %+v", got)
	}
	if got[0].Text != "Si." || got[0].Start != 0 || got[0].End != 2 {
		t.Fatalf("unexpected first segment %+v", got[0])
	}
}

func TestDistributeEmptyInputs(t *testing.T) {
	if got := Distribute(nil, "Hola."); got != nil {
		t.Fatalf("expected nil for no segments, got %+v", got)
	}
	if got := Distribute(segs(0, 1), "   "); got != nil {
		t.Fatalf("expected nil for blank text, got %+v", got)
	}
}

func TestMergeLaw(t *testing.T) {
	in := []domain.TranslatedSegment{
		{Text: "x", Start: 1, End: 2},
		{Text: "x", Start: 2, End: 3.5},
	}
	got := Merge(in)
	if len(got) != 1 || got[0].Start != 1 || got[0].End != 3.5 {
		t.Fatalf("merge law violated: %+v", got)
	}
}

func TestDistributePreservesTimeOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"Hola.", "Que tal?", "Bien!", "Vale.", "Adios."}

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(20)
		bounds := make([]float64, n+1)
		for i := 1; i <= n; i++ {
			bounds[i] = bounds[i-1] + 0.1 + rng.Float64()*3
		}
		originals := segs(bounds...)

		k := 1 + rng.Intn(8)
		parts := make([]string, k)
		for i := range parts {
			parts[i] = words[rng.Intn(len(words))]
		}
		got := Distribute(originals, strings.Join(parts, " "))

		if len(got) == 0 || len(got) > n {
			t.Fatalf("iter %d: unexpected output size %d for %d segments", iter, len(got), n)
		}
		if got[0].Start != originals[0].Start || got[len(got)-1].End != originals[n-1].End {
			t.Fatalf("iter %d: output does not span the original range", iter)
		}
		for i := range got {
			if got[i].End <= got[i].Start {
				t.Fatalf("iter %d: empty range at %d", iter, i)
			}
			if i > 0 {
				if got[i].Start != got[i-1].End {
					t.Fatalf("iter %d: gap or overlap between %d and %d", iter, i-1, i)
				}
				if got[i].Text == got[i-1].Text {
					t.Fatalf("iter %d: adjacent duplicates survived merge", iter)
				}
			}
		}
	}
}
