package keywords

import "strings"

// Normalize prepares one source item for use as a search term. It returns
// "" for items that hold nothing but dashes and whitespace, otherwise the
// text with runs of whitespace collapsed to single spaces.
func Normalize(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if r == '-' {
			return -1
		}
		return r
	}, text)
	if strings.TrimSpace(stripped) == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
