package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"codeberg.org/snonux/flashpix/internal/anki"
	"codeberg.org/snonux/flashpix/internal/batch"
	"codeberg.org/snonux/flashpix/internal/keywords"
)

var listTags = []string{"flashpix", "batch-generated"}

// ListResult counts the outcome of a list run
type ListResult struct {
	Total   int
	Created int
}

// ProcessList creates one card per bulleted line without asking. Items
// without keywords or images are left out; failures are reported and the
// run goes on.
func (p *Processor) ProcessList(ctx context.Context, text string) (ListResult, error) {
	items := batch.ParseList(text)
	if len(items) == 0 {
		return ListResult{}, ErrNoList
	}
	items, err := batch.Cap(items, p.settings.MaxBatchItems)
	if err != nil {
		return ListResult{}, err
	}
	if err := p.checkConnection(ctx); err != nil {
		return ListResult{}, err
	}

	fmt.Fprintf(p.out, "Processing %d items...\n", len(items))

	result := ListResult{Total: len(items)}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		terms := keywords.Extract(item)
		if len(terms) == 0 {
			slog.Debug("No keywords, skipping", "item", item)
			continue
		}

		images, err := p.searcher.Search(ctx, terms[0], 1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error processing item '%s': %v\n", item, err)
			continue
		}
		if len(images) == 0 {
			slog.Debug("No images, skipping", "item", item, "term", terms[0])
			continue
		}

		if _, err := p.anki.Create(ctx, p.listNote(item, images[0].URL)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error processing item '%s': %v\n", item, err)
			continue
		}
		result.Created++
		fmt.Fprintf(p.out, "  (%d/%d) %s\n", i+1, len(items), item)
	}

	fmt.Fprintf(p.out, "Successfully created %d/%d Anki cards\n", result.Created, result.Total)
	return result, nil
}

func (p *Processor) listNote(item, imageURL string) anki.Note {
	s := p.settings
	fields := map[string]string{
		s.FrontField: item,
		s.BackField:  "Image for: " + item,
	}
	if s.ImageField != "" {
		fields[s.ImageField] = imageURL
	}
	return anki.Note{
		DeckName:   s.DeckName,
		ModelName:  s.ModelName,
		Fields:     fields,
		Tags:       append([]string(nil), listTags...),
		FrontField: s.FrontField,
	}
}
