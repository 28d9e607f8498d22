package workflow

import (
	"context"

	"codeberg.org/snonux/flashpix/internal/image"
)

// Step identifies the item being decided and the term it is searched with
type Step struct {
	Index int
	Total int
	Item  SourceItem
	Term  string
	// Single is true on the one item path, where Confirm defaults to the
	// first candidate.
	Single bool
}

// OutcomeKind classifies a search attempt
type OutcomeKind int

const (
	OutcomeFound OutcomeKind = iota
	OutcomeEmpty
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Outcome is the result of one search attempt
type Outcome struct {
	Kind       OutcomeKind
	Candidates []image.Candidate
	Err        error
	// Suggestion is a replacement term offered for empty results
	Suggestion string
}

// Options lists the recovery actions valid for the outcome
func (o Outcome) Options() []RecoveryAction {
	if o.Kind == OutcomeEmpty {
		return []RecoveryAction{RecoverRetry, RecoverCustomTerm, RecoverSkip, RecoverAbort}
	}
	return []RecoveryAction{RecoverRetry, RecoverSkip, RecoverAbort}
}

type PickAction int

const (
	// PickConfirm accepts the candidate at Pick.Index
	PickConfirm PickAction = iota
	// PickSearch searches again with Pick.Term
	PickSearch
	PickAbort
)

// Pick is the presenter's answer to a candidate grid. Index is -1 when
// nothing was selected.
type Pick struct {
	Action PickAction
	Index  int
	Term   string
}

type RecoveryAction int

const (
	RecoverRetry RecoveryAction = iota
	RecoverCustomTerm
	RecoverSkip
	RecoverAbort
)

func (a RecoveryAction) String() string {
	switch a {
	case RecoverRetry:
		return "retry"
	case RecoverCustomTerm:
		return "custom term"
	case RecoverSkip:
		return "skip"
	default:
		return "abort"
	}
}

// Recovery is the presenter's answer to an empty or failed search
type Recovery struct {
	Action RecoveryAction
	Term   string
}

type ReviewDecision int

const (
	ReviewCreate ReviewDecision = iota
	ReviewBack
	ReviewCancel
)

func (d ReviewDecision) String() string {
	switch d {
	case ReviewCreate:
		return "create"
	case ReviewBack:
		return "back"
	default:
		return "cancel"
	}
}

// Review is what the presenter shows before commit. CanCreate is false
// when no selection has an image.
type Review struct {
	Selections []Selection
	Found      int
}

// CanCreate reports whether committing would store anything
func (r Review) CanCreate() bool {
	return r.Found > 0
}

// Presenter renders the dialog and returns the user's decisions. Blocking
// methods take a context and return an error when the surface goes away,
// which the controller treats as an abort.
type Presenter interface {
	Searching(step Step)
	PickCandidate(ctx context.Context, step Step, candidates []image.Candidate) (Pick, error)
	Recover(ctx context.Context, step Step, outcome Outcome) (Recovery, error)
	Review(ctx context.Context, review Review) (ReviewDecision, error)
	Committing(done, total int, sel Selection)
	Finished(result CommitResult)
}
