package phone

import (
	"errors"
	"strings"
)

// maxUnseparatedLength is the longest input accepted without a separator.
// Anything longer is assumed to be several numbers missing their commas.
const maxUnseparatedLength = 15

var (
	ErrEmptyInput   = errors.New("Please enter at least one number.")
	ErrNotSeparated = errors.New("Numbers must be comma-separated")
)

// ParseInput splits free-form user input into unique tokens. Tokens are
// separated by commas and/or newlines, trimmed, and deduplicated by exact
// text with first-seen order preserved.
func ParseInput(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	if !strings.ContainsAny(text, ",\n") && len(StripSpaces(text)) > maxUnseparatedLength {
		return nil, ErrNotSeparated
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tokens = append(tokens, f)
		}
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}
	return Dedupe(tokens), nil
}

// Dedupe drops repeated tokens, keeping the first occurrence of each.
func Dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
