package anki

import "context"

// Note is the payload of one flashcard as AnkiConnect expects it
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags"`
	Picture   []Picture         `json:"picture,omitempty"`
	Options   *NoteOptions      `json:"options,omitempty"`

	// FrontField names the field used to look up duplicates. It is not sent.
	FrontField string `json:"-"`
}

// Picture asks the store to download URL and append it to Fields
type Picture struct {
	URL      string   `json:"url"`
	Filename string   `json:"filename"`
	Fields   []string `json:"fields"`
}

// NoteOptions controls duplicate handling on the AnkiConnect side
type NoteOptions struct {
	AllowDuplicate bool   `json:"allowDuplicate"`
	DuplicateScope string `json:"duplicateScope,omitempty"`
}

// Front returns the value of the duplicate lookup field
func (n Note) Front() string {
	return n.Fields[n.FrontField]
}

// Store creates flashcards. *Client and *Exporter implement it.
type Store interface {
	Create(ctx context.Context, note Note) (int64, error)
}
