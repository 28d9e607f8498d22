package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/snonux/flashpix/internal/anki"
	"codeberg.org/snonux/flashpix/internal/config"
	"codeberg.org/snonux/flashpix/internal/image"
	"codeberg.org/snonux/flashpix/internal/keywords"
)

var (
	// ErrAborted is returned when the user abandons a run before commit
	ErrAborted = errors.New("workflow aborted")
	ErrNoItems = errors.New("no items to process")
)

// Searcher finds candidate images for a term. *image.Service implements it.
type Searcher interface {
	Search(ctx context.Context, term string, max int) ([]image.Candidate, error)
}

// Store creates one flashcard. *anki.Client and *anki.Exporter implement it.
type Store interface {
	Create(ctx context.Context, note anki.Note) (int64, error)
}

// Options configures the notes a controller builds and how it commits them
type Options struct {
	DeckName       string
	ModelName      string
	FrontField     string
	BackField      string
	Tags           []string
	CandidateCount int
	CommitDelay    time.Duration
	Suggester      keywords.Suggester
}

// OptionsFromSettings maps settings onto controller options
func OptionsFromSettings(s config.Settings, suggester keywords.Suggester) Options {
	return Options{
		DeckName:       s.DeckName,
		ModelName:      s.ModelName,
		FrontField:     s.FrontField,
		BackField:      s.BackField,
		Tags:           append([]string(nil), s.Tags...),
		CandidateCount: s.CandidateCount,
		CommitDelay:    s.CommitDelay,
		Suggester:      suggester,
	}
}

// Controller drives BatchRuns through stepping, review and commit
type Controller struct {
	searcher  Searcher
	store     Store
	presenter Presenter
	opts      Options

	sleep func(context.Context, time.Duration)
}

// NewController creates a controller. Zero option values fall back to the
// defaults from config.Default.
func NewController(searcher Searcher, store Store, presenter Presenter, opts Options) *Controller {
	def := config.Default()
	if opts.CandidateCount <= 0 {
		opts.CandidateCount = def.CandidateCount
	}
	if opts.CommitDelay < 0 {
		opts.CommitDelay = 0
	}
	if opts.FrontField == "" {
		opts.FrontField = def.FrontField
	}
	if opts.BackField == "" {
		opts.BackField = def.BackField
	}
	if opts.ModelName == "" {
		opts.ModelName = def.ModelName
	}
	if opts.DeckName == "" {
		opts.DeckName = def.DeckName
	}
	if opts.Suggester == nil {
		opts.Suggester = keywords.HeuristicSuggester{}
	}
	return &Controller{
		searcher:  searcher,
		store:     store,
		presenter: presenter,
		opts:      opts,
		sleep:     sleepContext,
	}
}

// Run creates a BatchRun over texts and executes it
func (c *Controller) Run(ctx context.Context, texts []string) (CommitResult, error) {
	return c.Execute(ctx, NewBatchRun(texts))
}

// Execute drives run to completion. It returns ErrAborted when the user
// cancels, ctx.Err() when ctx ends before commit and ErrRunClosed when the
// run was closed from outside. Search and store failures never surface
// here; they are handled in the dialog or counted in the result.
func (c *Controller) Execute(ctx context.Context, run *BatchRun) (CommitResult, error) {
	switch run.Len() {
	case 0:
		return CommitResult{}, ErrNoItems
	case 1:
		return c.executeSingle(ctx, run)
	}

	log := slog.With("run", run.ID.String(), "items", run.Len())
	for {
		if err := c.step(ctx, run, false); err != nil {
			log.Debug("Run ended while stepping", "error", err)
			return CommitResult{}, err
		}

		decision, err := c.review(ctx, run)
		if err != nil {
			log.Debug("Run ended at review", "error", err)
			return CommitResult{}, err
		}
		if decision == ReviewBack {
			if err := run.Restart(); err != nil {
				return CommitResult{}, err
			}
			log.Debug("Restarting from the first item")
			continue
		}

		return c.commit(ctx, run)
	}
}

func (c *Controller) executeSingle(ctx context.Context, run *BatchRun) (CommitResult, error) {
	if err := c.step(ctx, run, true); err != nil {
		return CommitResult{}, err
	}
	return c.commit(ctx, run)
}

// step resolves every remaining item of run
func (c *Controller) step(ctx context.Context, run *BatchRun, single bool) error {
	for {
		item, ok := run.Current()
		if !ok {
			if run.Closed() {
				return ErrRunClosed
			}
			return nil
		}

		img, err := c.resolve(ctx, run, item, single)
		if err != nil {
			run.Close()
			return err
		}
		if err := run.Record(img); err != nil {
			return err
		}
	}
}

func (c *Controller) review(ctx context.Context, run *BatchRun) (ReviewDecision, error) {
	rv := Review{Selections: run.Selections(), Found: run.FoundCount()}
	decision, err := c.presenter.Review(ctx, rv)
	if err != nil {
		run.Close()
		return ReviewCancel, fmt.Errorf("%w: %v", ErrAborted, err)
	}

	switch {
	case decision == ReviewCancel:
		run.Close()
		return ReviewCancel, ErrAborted
	case decision == ReviewCreate && !rv.CanCreate():
		return ReviewBack, nil
	default:
		return decision, nil
	}
}

// resolve runs the search and recovery loop for one item and returns the
// chosen image, or nil when the item is skipped.
func (c *Controller) resolve(ctx context.Context, run *BatchRun, item SourceItem, single bool) (*image.Candidate, error) {
	text := keywords.Normalize(item.Text)
	if text == "" {
		return nil, nil
	}

	term := text
	if single {
		if terms := keywords.Extract(text); len(terms) > 0 {
			term = terms[0]
		}
	}
	st := Step{Index: item.Index, Total: run.Len(), Item: item, Term: term, Single: single}

	for {
		if err := c.live(ctx, run); err != nil {
			return nil, err
		}

		c.presenter.Searching(st)
		candidates, searchErr := c.searcher.Search(ctx, st.Term, c.opts.CandidateCount)

		// A result arriving after the run was closed is dropped.
		if err := c.live(ctx, run); err != nil {
			return nil, err
		}

		if searchErr == nil && len(candidates) > 0 {
			img, next, err := c.pick(ctx, st, candidates)
			if err != nil || img != nil {
				return img, err
			}
			st.Term = next
			continue
		}

		outcome := Outcome{Kind: OutcomeEmpty, Err: searchErr}
		if searchErr != nil {
			outcome.Kind = OutcomeFailed
			slog.Debug("Search failed", "term", st.Term, "error", searchErr)
		} else {
			outcome.Suggestion = c.suggest(ctx, text)
		}

		rec, err := c.presenter.Recover(ctx, st, outcome)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAborted, err)
		}
		switch rec.Action {
		case RecoverSkip:
			return nil, nil
		case RecoverAbort:
			return nil, ErrAborted
		case RecoverCustomTerm:
			if t := strings.TrimSpace(rec.Term); t != "" {
				st.Term = t
			}
		}
	}
}

// pick asks the presenter until it confirms a candidate or asks for a new
// search. A new search returns a nil image and the term to search with.
func (c *Controller) pick(ctx context.Context, st Step, candidates []image.Candidate) (*image.Candidate, string, error) {
	for {
		p, err := c.presenter.PickCandidate(ctx, st, candidates)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrAborted, err)
		}

		switch p.Action {
		case PickAbort:
			return nil, "", ErrAborted
		case PickSearch:
			if t := strings.TrimSpace(p.Term); t != "" {
				return nil, t, nil
			}
			return nil, st.Term, nil
		}

		if p.Index >= 0 && p.Index < len(candidates) {
			return &candidates[p.Index], "", nil
		}
		if st.Single {
			return &candidates[0], "", nil
		}
		slog.Debug("Confirm without a valid pick", "index", p.Index, "candidates", len(candidates))
	}
}

func (c *Controller) suggest(ctx context.Context, text string) string {
	s, err := c.opts.Suggester.Suggest(ctx, text)
	if err != nil {
		slog.Debug("No suggestion", "text", text, "error", err)
		return ""
	}
	return s
}

// live reports why the run cannot continue, if it cannot
func (c *Controller) live(ctx context.Context, run *BatchRun) error {
	if run.Closed() {
		return ErrRunClosed
	}
	return ctx.Err()
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
