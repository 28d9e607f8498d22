package processor

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/snonux/flashpix/internal/models"
)

// Check prints the AnkiConnect version, the decks and the image providers
func (p *Processor) Check(ctx context.Context) error {
	version, err := p.anki.Version(ctx)
	if err != nil {
		return &ConnectionError{URL: p.settings.AnkiConnectURL, Err: err}
	}
	fmt.Fprintf(p.out, "AnkiConnect %s answers with API version %d\n", p.settings.AnkiConnectURL, version)

	decks, err := p.anki.DeckNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list decks: %w", err)
	}
	exists := false
	for _, d := range decks {
		if d == p.settings.DeckName {
			exists = true
		}
	}
	fmt.Fprintf(p.out, "Decks: %s\n", strings.Join(decks, ", "))
	if exists {
		fmt.Fprintf(p.out, "Deck %q exists\n", p.settings.DeckName)
	} else {
		fmt.Fprintf(p.out, "Deck %q will be created on first use\n", p.settings.DeckName)
	}

	providers := p.searcher.Providers()
	if len(providers) == 0 {
		fmt.Fprintln(p.out, "Image providers: none configured (set PIXABAY_API_KEY, BING_API_KEY or UNSPLASH_ACCESS_KEY)")
	} else {
		fmt.Fprintf(p.out, "Image providers: %s\n", strings.Join(providers, ", "))
	}
	return nil
}

// Models prints the note types and, with an OpenAI key, the chat models
func (p *Processor) Models(ctx context.Context) error {
	lister := models.NewLister(p.anki, p.settings.OpenAIKey, p.out)
	if err := lister.ListNoteTypes(ctx, p.settings.ModelName, p.settings.FrontField, p.settings.BackField); err != nil {
		return err
	}
	if p.settings.OpenAIKey == "" {
		return nil
	}
	return lister.ListSuggestModels(ctx)
}
