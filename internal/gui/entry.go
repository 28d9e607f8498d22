package gui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// TermEntry is the search term field. Escape puts back the term the
// current question started with and hands the keyboard back to the
// window shortcuts.
type TermEntry struct {
	widget.Entry
	original string
	onEscape func()
}

// NewTermEntry creates an empty term field
func NewTermEntry() *TermEntry {
	entry := &TermEntry{}
	entry.SetPlaceHolder("Search term...")
	entry.ExtendBaseWidget(entry)
	return entry
}

// Reset shows term and remembers it for Escape
func (e *TermEntry) Reset(term string) {
	e.original = term
	e.SetText(term)
}

// Term returns the trimmed text
func (e *TermEntry) Term() string {
	return strings.TrimSpace(e.Text)
}

// TypedKey handles key events
func (e *TermEntry) TypedKey(key *fyne.KeyEvent) {
	if key.Name == fyne.KeyEscape {
		e.SetText(e.original)
		if e.onEscape != nil {
			e.onEscape()
		}
		return
	}
	e.Entry.TypedKey(key)
}

// SetOnEscape sets the callback run after Escape restored the term
func (e *TermEntry) SetOnEscape(f func()) {
	e.onEscape = f
}
