package translation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fusionn-dub/internal/domain"
)

// preamblePatterns strip boilerplate small models prepend to their answer.
var preamblePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^La traducción (al|en) \pL+ es:?\s*`),
	regexp.MustCompile(`(?i)^Traducción:?\s*`),
	regexp.MustCompile(`(?i)^Aquí está la traducción:?\s*`),
	regexp.MustCompile(`(?i)^Here is the translation:?\s*`),
	regexp.MustCompile(`(?i)^Translation:?\s*`),
	regexp.MustCompile(`(?i)^\pL+ translation:?\s*`),
}

func fullPrompt(text, target string) string {
	lang := domain.LanguageName(target)
	return fmt.Sprintf(`You are a professional translator. Your ONLY task is to translate the text into %s.

RULES:
1. Translate ALL of the text
2. Do NOT add comments, explanations or questions
3. Do NOT answer like a chatbot
4. Return ONLY the translation

TEXT TO TRANSLATE:
%s

TRANSLATION IN %s:`, lang, text, strings.ToUpper(lang))
}

func chunkPrompt(text, target string) string {
	return fmt.Sprintf("Translate this text into %s. Return only the translation, without explanations:\n\n%s\n\nTranslation:",
		domain.LanguageName(target), text)
}

// Clean trims the model reply and removes known preambles.
func Clean(raw string) string {
	out := strings.TrimSpace(raw)
	for _, p := range preamblePatterns {
		out = p.ReplaceAllString(out, "")
	}
	return strings.TrimSpace(out)
}

// Assess scores a translation for logs and status output only.
func Assess(original, translated string) domain.Quality {
	q := domain.Quality{Score: 85}

	if translated == "" {
		return domain.Quality{Score: 0, Rating: "low", Notes: []string{"empty translation"}}
	}

	if n := utf8.RuneCountInString(original); n > 0 {
		ratio := float64(utf8.RuneCountInString(translated)) / float64(n)
		if ratio < 0.3 || ratio > 3 {
			q.Score -= 20
			q.Notes = append(q.Notes, "suspicious length ratio")
		}
	}

	if translated == original {
		q.Score -= 30
		q.Notes = append(q.Notes, "identical to original")
	}

	switch {
	case q.Score >= 80:
		q.Rating = "high"
	case q.Score >= 60:
		q.Rating = "medium"
	default:
		q.Rating = "low"
	}
	return q
}
