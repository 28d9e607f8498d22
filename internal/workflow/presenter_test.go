package workflow

import (
	"context"
	"sync"

	"codeberg.org/snonux/flashpix/internal/image"
)

// scriptedPresenter answers from queues. Empty queues confirm the first
// candidate, skip on recovery and create on review.
type scriptedPresenter struct {
	mu sync.Mutex

	picks      []Pick
	recoveries []Recovery
	reviews    []ReviewDecision
	err        error

	onSearching func(Step)
	onReview    func(Review)

	searched  []Step
	pickCalls []Step
	outcomes  []Outcome
	reviewed  []Review
	committed []Selection
	finished  []CommitResult
}

func (p *scriptedPresenter) Searching(step Step) {
	p.mu.Lock()
	p.searched = append(p.searched, step)
	hook := p.onSearching
	p.mu.Unlock()
	if hook != nil {
		hook(step)
	}
}

func (p *scriptedPresenter) PickCandidate(_ context.Context, step Step, _ []image.Candidate) (Pick, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pickCalls = append(p.pickCalls, step)
	if p.err != nil {
		return Pick{}, p.err
	}
	if len(p.picks) == 0 {
		return Pick{Action: PickConfirm, Index: 0}, nil
	}
	next := p.picks[0]
	p.picks = p.picks[1:]
	return next, nil
}

func (p *scriptedPresenter) Recover(_ context.Context, _ Step, outcome Outcome) (Recovery, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, outcome)
	if p.err != nil {
		return Recovery{}, p.err
	}
	if len(p.recoveries) == 0 {
		return Recovery{Action: RecoverSkip}, nil
	}
	next := p.recoveries[0]
	p.recoveries = p.recoveries[1:]
	return next, nil
}

func (p *scriptedPresenter) Review(_ context.Context, review Review) (ReviewDecision, error) {
	p.mu.Lock()
	p.reviewed = append(p.reviewed, review)
	hook := p.onReview
	var next ReviewDecision
	if len(p.reviews) > 0 {
		next = p.reviews[0]
		p.reviews = p.reviews[1:]
	}
	err := p.err
	p.mu.Unlock()

	if hook != nil {
		hook(review)
	}
	if err != nil {
		return ReviewCancel, err
	}
	return next, nil
}

func (p *scriptedPresenter) Committing(_, _ int, sel Selection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.committed = append(p.committed, sel)
}

func (p *scriptedPresenter) Finished(result CommitResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = append(p.finished, result)
}
