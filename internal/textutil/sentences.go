// Package textutil holds the sentence and chunk splitting shared by
// translation and segment distribution.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func isTerminal(r rune) bool { return r == '.' || r == '!' || r == '?' }

// SplitSentences splits text at runs of terminal punctuation (. ! ?). Each
// sentence keeps its punctuation and leading whitespace; text after the last
// terminator is returned as a final sentence. Whitespace-only pieces are
// dropped and pieces without letters or digits are folded into the next
// sentence, or the previous one at the end. Text with no terminator yields a
// single sentence.
func SplitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && isTerminal(runes[end]) {
			end++
		}
		out = appendNonBlank(out, string(runes[start:end]))
		start = end
		i = end - 1
	}
	if start < len(runes) {
		out = appendNonBlank(out, string(runes[start:]))
	}
	return foldWordless(out)
}

func appendNonBlank(out []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return out
	}
	return append(out, s)
}

func hasWords(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

func foldWordless(pieces []string) []string {
	var (
		out     []string
		pending string
	)
	for _, p := range pieces {
		if !hasWords(p) {
			pending += p
			continue
		}
		out = append(out, pending+p)
		pending = ""
	}
	if pending != "" {
		if n := len(out); n > 0 {
			out[n-1] += pending
		} else {
			out = append(out, pending)
		}
	}
	return out
}

// ChunkSentences packs sentences into chunks of at most maxLen runes, in
// order. A sentence longer than maxLen is cut at the last whitespace before
// the limit (or hard-cut when it has none). Chunks are trimmed.
func ChunkSentences(text string, maxLen int) []string {
	if maxLen <= 0 {
		return []string{strings.TrimSpace(text)}
	}

	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, sentence := range SplitSentences(text) {
		for _, piece := range splitLong(sentence, maxLen) {
			if current.Len() > 0 && utf8.RuneCountInString(current.String()+piece) > maxLen {
				flush()
			}
			current.WriteString(piece)
		}
	}
	flush()
	return chunks
}

// splitLong cuts s into pieces of at most maxLen runes.
func splitLong(s string, maxLen int) []string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return []string{s}
	}
	var pieces []string
	for len(runes) > maxLen {
		cut := maxLen
		for j := maxLen; j > 0; j-- {
			if unicode.IsSpace(runes[j]) {
				cut = j
				break
			}
		}
		pieces = append(pieces, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}

// Truncate shortens s to n runes for log lines.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
