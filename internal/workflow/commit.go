package workflow

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"codeberg.org/snonux/flashpix/internal/anki"
	"codeberg.org/snonux/flashpix/internal/image"
	"codeberg.org/snonux/flashpix/internal/keywords"
)

const cardImageClass = "flashpix-card-image"

// commit stores every found selection in order. It runs on a context that
// ignores cancellation so a started commit always completes.
func (c *Controller) commit(ctx context.Context, run *BatchRun) (CommitResult, error) {
	selections, err := run.BeginCommit()
	if err != nil {
		return CommitResult{}, err
	}
	ctx = context.WithoutCancel(ctx)

	var result CommitResult
	stored := 0
	for i, sel := range selections {
		c.presenter.Committing(i, len(selections), sel)

		if !sel.Found() {
			result.Skipped++
			continue
		}

		if stored > 0 {
			c.sleep(ctx, c.opts.CommitDelay)
		}
		stored++

		_, err := c.store.Create(ctx, c.BuildNote(sel))
		switch {
		case err == nil:
			result.Created++
		case anki.IsDuplicate(err):
			result.Duplicates++
		default:
			result.Failed++
			result.Failures = append(result.Failures, ItemFailure{Item: sel.Item, Err: err})
			slog.Warn("Failed to create card", "item", sel.Item.Text, "error", err)
		}
	}

	run.finish()
	slog.Info("Commit finished", "run", run.ID.String(), "summary", result.Summary())
	c.presenter.Finished(result)
	return result, nil
}

// BuildNote renders the note stored for a found selection
func (c *Controller) BuildNote(sel Selection) anki.Note {
	text := keywords.Normalize(sel.Item.Text)
	img := *sel.Image

	back := fmt.Sprintf(`Images for: %s<br><img src="%s" class="%s">`,
		html.EscapeString(text), html.EscapeString(img.URL), cardImageClass)

	return anki.Note{
		DeckName:  c.opts.DeckName,
		ModelName: c.opts.ModelName,
		Fields: map[string]string{
			c.opts.FrontField: text,
			c.opts.BackField:  back,
		},
		Tags: append([]string(nil), c.opts.Tags...),
		Picture: []anki.Picture{{
			URL:      img.URL,
			Filename: image.MediaFileName(text, img),
			Fields:   []string{c.opts.BackField},
		}},
		Options:    &anki.NoteOptions{AllowDuplicate: false, DuplicateScope: "deck"},
		FrontField: c.opts.FrontField,
	}
}
