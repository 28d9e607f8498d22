package workflow

import (
	"context"
	"fmt"
	"io"

	"codeberg.org/snonux/flashpix/internal/image"
)

// AutoPresenter answers every question without asking. It confirms the
// first candidate, skips items without results and always creates.
// Progress goes to Out when it is set.
type AutoPresenter struct {
	Out io.Writer
}

func (p AutoPresenter) printf(format string, args ...interface{}) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, format, args...)
	}
}

func (p AutoPresenter) Searching(step Step) {
	p.printf("[%d/%d] Searching images for %q...\n", step.Index+1, step.Total, step.Term)
}

func (p AutoPresenter) PickCandidate(_ context.Context, _ Step, candidates []image.Candidate) (Pick, error) {
	p.printf("  Using %s image %s (%s)\n", candidates[0].Provider, candidates[0].URL, candidates[0].Size())
	return Pick{Action: PickConfirm, Index: 0}, nil
}

func (p AutoPresenter) Recover(_ context.Context, step Step, outcome Outcome) (Recovery, error) {
	if outcome.Kind == OutcomeFailed {
		p.printf("  Search failed for %q: %v, skipping\n", step.Term, outcome.Err)
	} else {
		p.printf("  No images found for %q, skipping\n", step.Term)
	}
	return Recovery{Action: RecoverSkip}, nil
}

func (p AutoPresenter) Review(_ context.Context, review Review) (ReviewDecision, error) {
	if !review.CanCreate() {
		// Restarting would ask the same questions again.
		return ReviewCancel, nil
	}
	p.printf("Creating %d of %d cards\n", review.Found, len(review.Selections))
	return ReviewCreate, nil
}

func (p AutoPresenter) Committing(done, total int, sel Selection) {
	if sel.Found() {
		p.printf("  (%d/%d) %s\n", done+1, total, sel.Item.Text)
	}
}

func (p AutoPresenter) Finished(result CommitResult) {
	p.printf("%s\n", result.Summary())
}
