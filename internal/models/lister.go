package models

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// NoteTypeSource is the part of the AnkiConnect client the lister needs
type NoteTypeSource interface {
	ModelNames(ctx context.Context) ([]string, error)
	ModelFieldNames(ctx context.Context, model string) ([]string, error)
}

// NoteType is an Anki note type with its fields in order
type NoteType struct {
	Name   string
	Fields []string
}

// HasFields reports whether every name is one of the note type's fields
func (n NoteType) HasFields(names ...string) bool {
	for _, name := range names {
		found := false
		for _, f := range n.Fields {
			if f == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var (
	fallbackModels = []string{"Basic"}
	fallbackFields = []string{"Front", "Back"}
)

// Lister handles listing Anki note types and the chat models usable for
// search term suggestions
type Lister struct {
	source NoteTypeSource
	out    io.Writer

	openAIKey string
	client    *openai.Client
}

// NewLister creates a new lister. openAIKey may be empty.
func NewLister(source NoteTypeSource, openAIKey string, out io.Writer) *Lister {
	return newLister(source, openAIKey, out, openai.DefaultConfig(openAIKey))
}

func newLister(source NoteTypeSource, openAIKey string, out io.Writer, cfg openai.ClientConfig) *Lister {
	return &Lister{
		source:    source,
		out:       out,
		openAIKey: openAIKey,
		client:    openai.NewClientWithConfig(cfg),
	}
}

// NoteTypes returns all note types sorted by name. When AnkiConnect cannot
// answer, the stock Basic type with Front and Back is assumed.
func (l *Lister) NoteTypes(ctx context.Context) []NoteType {
	names, err := l.source.ModelNames(ctx)
	if err != nil || len(names) == 0 {
		slog.Debug("Falling back to default note types", "error", err)
		names = fallbackModels
	}
	sort.Strings(names)

	types := make([]NoteType, 0, len(names))
	for _, name := range names {
		fields, err := l.source.ModelFieldNames(ctx, name)
		if err != nil || len(fields) == 0 {
			slog.Debug("Falling back to default fields", "model", name, "error", err)
			fields = fallbackFields
		}
		types = append(types, NoteType{Name: name, Fields: append([]string(nil), fields...)})
	}
	return types
}

// ListNoteTypes prints every note type and marks those that have the
// configured front and back fields
func (l *Lister) ListNoteTypes(ctx context.Context, current, frontField, backField string) error {
	types := l.NoteTypes(ctx)

	fmt.Fprintln(l.out, "Available Anki note types:")
	usable := 0
	for _, nt := range types {
		marker := " "
		if nt.HasFields(frontField, backField) {
			marker = "✓"
			usable++
		}
		suffix := ""
		if nt.Name == current {
			suffix = " (configured)"
		}
		fmt.Fprintf(l.out, "  %s %s%s\n", marker, nt.Name, suffix)
		fmt.Fprintf(l.out, "      fields: %s\n", strings.Join(nt.Fields, ", "))
	}

	fmt.Fprintf(l.out, "\n%d of %d note types have the fields %q and %q\n", usable, len(types), frontField, backField)
	return nil
}

// ListSuggestModels lists the OpenAI chat models that can suggest search terms
func (l *Lister) ListSuggestModels(ctx context.Context) error {
	if l.openAIKey == "" {
		return fmt.Errorf("OpenAI API key not found. Set OPENAI_API_KEY environment variable or configure suggest.openai_key in .flashpix.yaml")
	}

	models, err := l.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	chatModels := []string{}
	for _, model := range models.Models {
		if strings.Contains(model.ID, "gpt") || strings.Contains(model.ID, "chat") {
			chatModels = append(chatModels, model.ID)
		}
	}
	sort.Strings(chatModels)

	fmt.Fprintln(l.out, "\nChat models (for search term suggestions):")
	if len(chatModels) == 0 {
		fmt.Fprintln(l.out, "  No chat models found")
		return nil
	}
	for _, model := range chatModels {
		fmt.Fprintf(l.out, "  %s\n", model)
	}
	return nil
}
