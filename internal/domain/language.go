package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultTargetLanguage is used when a submission names no language.
const DefaultTargetLanguage = "es"

// NormalizeLanguage validates a BCP 47 code and returns its canonical form.
// An unparseable code is a fatal input error.
func NormalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultTargetLanguage, nil
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w: language %q: %v", ErrFatalInput, code, err)
	}
	return tag.String(), nil
}

// BaseLanguage returns the primary subtag ("es" for "es-MX").
func BaseLanguage(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}

// LanguageName returns the English display name for a code, falling back to
// the code itself.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
