package workflow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"codeberg.org/snonux/flashpix/internal/image"
)

// ErrRunClosed is returned by every mutation of a closed run
var ErrRunClosed = errors.New("batch run is closed")

// Phase is the lifecycle position of a BatchRun
type Phase int

const (
	PhaseStepping Phase = iota
	PhaseReview
	PhaseCommitting
	PhaseDone
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseStepping:
		return "stepping"
	case PhaseReview:
		return "review"
	case PhaseCommitting:
		return "committing"
	case PhaseDone:
		return "done"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// SourceItem is one unit of input text. Its identity is its position.
type SourceItem struct {
	Index int
	Text  string
}

// Selection records the image chosen for an item. A nil Image means the
// item was skipped and will not become a card.
type Selection struct {
	Item  SourceItem
	Image *image.Candidate
}

// Found reports whether an image was chosen
func (s Selection) Found() bool {
	return s.Image != nil
}

// BatchRun holds the state of one dialog. It is safe for concurrent use so
// a front end may Close it from its own goroutine while a search is running.
type BatchRun struct {
	ID uuid.UUID

	mu         sync.Mutex
	items      []SourceItem
	selections []Selection
	phase      Phase
}

// NewBatchRun creates a run over texts, in order
func NewBatchRun(texts []string) *BatchRun {
	items := make([]SourceItem, len(texts))
	for i, t := range texts {
		items[i] = SourceItem{Index: i, Text: t}
	}
	return &BatchRun{
		ID:         uuid.New(),
		items:      items,
		selections: make([]Selection, 0, len(items)),
		phase:      PhaseStepping,
	}
}

// Len returns the number of items
func (r *BatchRun) Len() int {
	return len(r.items)
}

// Items returns a copy of the items
func (r *BatchRun) Items() []SourceItem {
	return append([]SourceItem(nil), r.items...)
}

// Phase returns the current phase
func (r *BatchRun) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Closed reports whether the run was abandoned
func (r *BatchRun) Closed() bool {
	return r.Phase() == PhaseClosed
}

// Cursor returns the index of the item being stepped, which equals the
// number of selections recorded so far
func (r *BatchRun) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.selections)
}

// Current returns the item awaiting a selection. ok is false once every
// item has one or the run left the stepping phase.
func (r *BatchRun) Current() (item SourceItem, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseStepping || len(r.selections) >= len(r.items) {
		return SourceItem{}, false
	}
	return r.items[len(r.selections)], true
}

// Record stores the selection for the current item and advances the
// cursor. After the last item the run enters review.
func (r *BatchRun) Record(img *image.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseClosed {
		return ErrRunClosed
	}
	if r.phase != PhaseStepping || len(r.selections) >= len(r.items) {
		return fmt.Errorf("cannot record a selection while %s", r.phase)
	}

	sel := Selection{Item: r.items[len(r.selections)]}
	if img != nil {
		chosen := *img
		sel.Image = &chosen
	}
	r.selections = append(r.selections, sel)

	if len(r.selections) == len(r.items) {
		r.phase = PhaseReview
	}
	return nil
}

// Selections returns a copy of the recorded selections
func (r *BatchRun) Selections() []Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Selection(nil), r.selections...)
}

// FoundCount returns how many selections carry an image
func (r *BatchRun) FoundCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.selections {
		if s.Found() {
			n++
		}
	}
	return n
}

// Restart drops every selection and returns to the first item
func (r *BatchRun) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseClosed {
		return ErrRunClosed
	}
	if r.phase != PhaseReview {
		return fmt.Errorf("cannot restart while %s", r.phase)
	}
	r.selections = r.selections[:0]
	r.phase = PhaseStepping
	return nil
}

// BeginCommit freezes the selections and returns them. From here on the
// run can no longer be closed.
func (r *BatchRun) BeginCommit() ([]Selection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseClosed {
		return nil, ErrRunClosed
	}
	if r.phase != PhaseReview {
		return nil, fmt.Errorf("cannot commit while %s", r.phase)
	}
	r.phase = PhaseCommitting
	return append([]Selection(nil), r.selections...), nil
}

// finish marks a committed run as done
func (r *BatchRun) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseCommitting {
		r.phase = PhaseDone
	}
}

// Close abandons the run. It returns false when the run is already
// committing or done; those always run to completion.
func (r *BatchRun) Close() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase {
	case PhaseCommitting, PhaseDone:
		return false
	default:
		r.phase = PhaseClosed
		return true
	}
}
