package keywords

import (
	"regexp"
	"strings"
)

const (
	maxKeywords       = 5
	maxSimpleKeywords = 3
)

var (
	listMarker     = regexp.MustCompile(`^[-*+]\s`)
	listMarkerFull = regexp.MustCompile(`^[-*+]\s+`)
	questionLead   = regexp.MustCompile(`(?i)^(what|how|why|when|where|which)\s+`)
	nonWord        = regexp.MustCompile(`[^\w\s]`)
	scientificWord = regexp.MustCompile(`(?i)^[a-z]+ology$|^[a-z]+ism$|^[a-z]+gen$`)
	pureNumber     = regexp.MustCompile(`^\d+$`)
	complexTerm    = regexp.MustCompile(`(?i)\b[a-z]+ (acid|cell|system|theory|process|method|syndrome|disease)\b`)
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "i": true, "you": true, "he": true, "she": true,
	"it": true, "we": true, "they": true, "me": true, "him": true, "her": true,
	"us": true, "them": true,
}

var (
	nounEndings      = []string{"tion", "sion", "ment", "ness", "ity", "er", "or", "ist"}
	adjectiveEndings = []string{"ful", "less", "ous", "ive", "able", "ible", "ant", "ent"}
)

// Extract returns up to five search terms for text, most relevant first.
// It returns nil for blank text.
func Extract(text string) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	var terms []string
	switch {
	case isListItem(clean):
		terms = simpleKeywords(strings.TrimSpace(listMarkerFull.ReplaceAllString(clean, "")))
	case isDefinition(clean):
		terms = fromDefinition(clean)
	case isQuestion(clean):
		cleaned := questionLead.ReplaceAllString(clean, "")
		cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "?", ""))
		terms = nounPhrases(cleaned)
	default:
		terms = simpleKeywords(clean)
	}

	out := make([]string, 0, maxKeywords)
	for _, term := range unique(terms) {
		if len(term) <= 2 {
			continue
		}
		out = append(out, term)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func isListItem(text string) bool {
	return listMarker.MatchString(text)
}

func isDefinition(text string) bool {
	return strings.Contains(text, ":") || strings.Contains(text, " is ") || strings.Contains(text, " are ")
}

func isQuestion(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(text, "?") ||
		strings.HasPrefix(lower, "what") ||
		strings.HasPrefix(lower, "how") ||
		strings.HasPrefix(lower, "why")
}

func fromDefinition(text string) []string {
	if strings.Contains(text, ":") {
		parts := strings.Split(text, ":")
		terms := nounPhrases(strings.TrimSpace(parts[0]))
		definition := nounPhrases(strings.TrimSpace(parts[1]))
		if len(definition) > 2 {
			definition = definition[:2]
		}
		return append(terms, definition...)
	}
	for _, marker := range []string{" is ", " are "} {
		if i := strings.Index(text, marker); i >= 0 {
			return nounPhrases(strings.TrimSpace(text[:i]))
		}
	}
	return nil
}

func simpleKeywords(text string) []string {
	combined := append(nounPhrases(text), importantWords(tokenize(text))...)
	combined = unique(combined)
	if len(combined) > maxSimpleKeywords {
		combined = combined[:maxSimpleKeywords]
	}
	return combined
}

func nounPhrases(text string) []string {
	words := tokenize(text)
	phrases := importantWords(words)

	for i := 0; i+1 < len(words); i++ {
		current, next := words[i], words[i+1]
		if isLikelyNoun(next) && (isLikelyAdjective(current) || isLikelyNoun(current)) {
			phrases = append(phrases, current+" "+next)
		}
	}

	for i := 0; i+2 < len(words); i++ {
		phrase := words[i] + " " + words[i+1] + " " + words[i+2]
		if complexTerm.MatchString(phrase) {
			phrases = append(phrases, phrase)
		}
	}

	out := phrases[:0]
	for _, p := range phrases {
		if len(p) > 2 {
			out = append(out, p)
		}
	}
	return out
}

func tokenize(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 1 {
			words = append(words, w)
		}
	}
	return words
}

func importantWords(words []string) []string {
	var out []string
	for _, w := range words {
		if stopWords[w] || len(w) <= 2 || pureNumber.MatchString(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isLikelyNoun(word string) bool {
	for _, ending := range nounEndings {
		if strings.HasSuffix(word, ending) {
			return true
		}
	}
	return scientificWord.MatchString(word) || len(word) > 4
}

func isLikelyAdjective(word string) bool {
	for _, ending := range adjectiveEndings {
		if strings.HasSuffix(word, ending) {
			return true
		}
	}
	return false
}

func unique(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
