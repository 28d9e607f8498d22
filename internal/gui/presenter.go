package gui

import (
	"context"
	"errors"
	"sync"

	"codeberg.org/snonux/flashpix/internal/image"
	"codeberg.org/snonux/flashpix/internal/workflow"
)

// ErrWindowClosed is returned by a pending question when the window goes away
var ErrWindowClosed = errors.New("window closed")

// view draws the dialog. Implementations are called from the worker
// goroutine and must hand the drawing over to the UI thread themselves.
type view interface {
	showSearching(step workflow.Step)
	showCandidates(step workflow.Step, candidates []image.Candidate)
	showRecovery(step workflow.Step, outcome workflow.Outcome)
	showReview(review workflow.Review)
	showCommitting(done, total int, sel workflow.Selection)
	showFinished(result workflow.CommitResult)
}

// Presenter connects the workflow controller to the window. Questions
// block until a button sends an answer, the window is closed or the
// context ends.
type Presenter struct {
	view view

	picks      chan workflow.Pick
	recoveries chan workflow.Recovery
	reviews    chan workflow.ReviewDecision

	closed    chan struct{}
	closeOnce sync.Once
}

func newPresenter(v view) *Presenter {
	return &Presenter{
		view:       v,
		picks:      make(chan workflow.Pick, 1),
		recoveries: make(chan workflow.Recovery, 1),
		reviews:    make(chan workflow.ReviewDecision, 1),
		closed:     make(chan struct{}),
	}
}

// The answer methods never block the UI thread. A second click before
// the next question is shown is dropped.

func (p *Presenter) answerPick(pick workflow.Pick) {
	select {
	case p.picks <- pick:
	default:
	}
}

func (p *Presenter) answerRecovery(r workflow.Recovery) {
	select {
	case p.recoveries <- r:
	default:
	}
}

func (p *Presenter) answerReview(d workflow.ReviewDecision) {
	select {
	case p.reviews <- d:
	default:
	}
}

// close releases every pending and future question with ErrWindowClosed
func (p *Presenter) close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

func (p *Presenter) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *Presenter) Searching(step workflow.Step) {
	if !p.isClosed() {
		p.view.showSearching(step)
	}
}

func (p *Presenter) PickCandidate(ctx context.Context, step workflow.Step, candidates []image.Candidate) (workflow.Pick, error) {
	select {
	case <-p.picks:
	default:
	}
	if p.isClosed() {
		return workflow.Pick{}, ErrWindowClosed
	}
	p.view.showCandidates(step, candidates)

	select {
	case pick := <-p.picks:
		return pick, nil
	case <-p.closed:
		return workflow.Pick{}, ErrWindowClosed
	case <-ctx.Done():
		return workflow.Pick{}, ctx.Err()
	}
}

func (p *Presenter) Recover(ctx context.Context, step workflow.Step, outcome workflow.Outcome) (workflow.Recovery, error) {
	select {
	case <-p.recoveries:
	default:
	}
	if p.isClosed() {
		return workflow.Recovery{}, ErrWindowClosed
	}
	p.view.showRecovery(step, outcome)

	select {
	case r := <-p.recoveries:
		return r, nil
	case <-p.closed:
		return workflow.Recovery{}, ErrWindowClosed
	case <-ctx.Done():
		return workflow.Recovery{}, ctx.Err()
	}
}

func (p *Presenter) Review(ctx context.Context, review workflow.Review) (workflow.ReviewDecision, error) {
	select {
	case <-p.reviews:
	default:
	}
	if p.isClosed() {
		return workflow.ReviewCancel, ErrWindowClosed
	}
	p.view.showReview(review)

	select {
	case d := <-p.reviews:
		return d, nil
	case <-p.closed:
		return workflow.ReviewCancel, ErrWindowClosed
	case <-ctx.Done():
		return workflow.ReviewCancel, ctx.Err()
	}
}

func (p *Presenter) Committing(done, total int, sel workflow.Selection) {
	if !p.isClosed() {
		p.view.showCommitting(done, total, sel)
	}
}

func (p *Presenter) Finished(result workflow.CommitResult) {
	if !p.isClosed() {
		p.view.showFinished(result)
	}
}
