// Package segment maps a flat translated text back onto the timed segments
// produced by transcription.
package segment

import (
	"strings"

	"github.com/fusionn-dub/internal/domain"
	"github.com/fusionn-dub/internal/textutil"
)

// Distribute assigns the sentences of translatedText to originals in order.
//
// With n segments and k sentences, every ceil(n/k) consecutive segments share
// one sentence; the sentence index never moves past the last sentence.
// Adjacent segments that end up with the same sentence are merged into one
// TranslatedSegment whose End is extended to the later segment's End.
//
// When there are more sentences than segments the trailing sentences are
// never assigned. Blank translated text yields no segments.
func Distribute(originals []domain.OriginalSegment, translatedText string) []domain.TranslatedSegment {
	if len(originals) == 0 {
		return nil
	}
	sentences := textutil.SplitSentences(translatedText)
	if len(sentences) == 0 {
		return nil
	}

	indices := SentenceIndices(len(originals), len(sentences))
	assigned := make([]domain.TranslatedSegment, 0, len(originals))
	for i, seg := range originals {
		assigned = append(assigned, domain.TranslatedSegment{
			Text:         strings.TrimSpace(sentences[indices[i]]),
			Start:        seg.Start,
			End:          seg.End,
			OriginalText: strings.TrimSpace(seg.Text),
		})
	}

	return Merge(assigned)
}

// SentenceIndices returns, for each of n segments, the index of the sentence
// Distribute assigns to it out of k sentences. Indices start at 0, never
// decrease and never skip a sentence.
func SentenceIndices(n, k int) []int {
	if n <= 0 || k <= 0 {
		return nil
	}
	perSentence := (n + k - 1) / k
	out := make([]int, n)
	idx := 0
	for i := range out {
		out[i] = idx
		if (i+1)%perSentence == 0 && idx < k-1 {
			idx++
		}
	}
	return out
}

// UnusedSentences reports how many of k sentences Distribute leaves
// unassigned over n segments.
func UnusedSentences(n, k int) int {
	indices := SentenceIndices(n, k)
	if len(indices) == 0 {
		return 0
	}
	return k - (indices[len(indices)-1] + 1)
}

// Merge collapses runs of adjacent segments with identical text. The merged
// segment keeps the first Start and the last End; original texts are joined.
func Merge(assigned []domain.TranslatedSegment) []domain.TranslatedSegment {
	out := make([]domain.TranslatedSegment, 0, len(assigned))
	for _, seg := range assigned {
		if n := len(out); n > 0 && out[n-1].Text == seg.Text {
			prev := &out[n-1]
			if seg.End > prev.End {
				prev.End = seg.End
			}
			prev.OriginalText = joinText(prev.OriginalText, seg.OriginalText)
			continue
		}
		out = append(out, seg)
	}
	return out
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
