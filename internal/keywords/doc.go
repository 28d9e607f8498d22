// Package keywords turns short free text into ordered search terms.
//
// The extractor is a heuristic, not a language model: it recognises list
// items, definitions and questions, drops stop words and prefers noun-like
// phrases. Suggesters propose a replacement term when a search comes back empty.
package keywords
