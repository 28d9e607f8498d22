package workflow

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/flashpix/internal/anki"
	"codeberg.org/snonux/flashpix/internal/testutil"
)

func found(term string, n int) testutil.SearchResponse {
	return testutil.SearchResponse{Candidates: testutil.Candidates("pixabay", term, n)}
}

func newTestController(s Searcher, st Store, p Presenter) (*Controller, *[]time.Duration) {
	c := NewController(s, st, p, Options{
		DeckName:       "Biology",
		Tags:           []string{"flashpix", "auto-generated"},
		CandidateCount: 9,
		CommitDelay:    100 * time.Millisecond,
	})
	var delays []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) { delays = append(delays, d) }
	return c, &delays
}

func TestBlankItemGetsNullSelectionWithoutSearch(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("photosynthesis", found("photosynthesis", 1)).
		Script("mitochondria", found("mitochondria", 1))
	store := testutil.NewMockStore()
	store.Errors["photosynthesis"] = &anki.DuplicateError{Front: "photosynthesis"}
	p := &scriptedPresenter{}
	c, _ := newTestController(searcher, store, p)

	run := NewBatchRun([]string{"photosynthesis", "  ", "mitochondria"})
	p.onReview = func(rv Review) {
		if len(rv.Selections) != run.Len() {
			t.Errorf("review has %d selections, want %d", len(rv.Selections), run.Len())
		}
	}

	result, err := c.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if want := []string{"photosynthesis", "mitochondria"}; !slices.Equal(searcher.Calls, want) {
		t.Errorf("searches = %v, want %v", searcher.Calls, want)
	}
	sels := run.Selections()
	if len(sels) != 3 {
		t.Fatalf("got %d selections, want 3", len(sels))
	}
	if !sels[0].Found() || sels[1].Found() || !sels[2].Found() {
		t.Errorf("found = %v %v %v, want true false true", sels[0].Found(), sels[1].Found(), sels[2].Found())
	}
	for i, s := range sels {
		if s.Item != run.Items()[i] {
			t.Errorf("selection %d item = %v, want %v", i, s.Item, run.Items()[i])
		}
	}

	want := CommitResult{Created: 1, Duplicates: 1, Skipped: 1}
	if result.Created != want.Created || result.Duplicates != want.Duplicates ||
		result.Skipped != want.Skipped || result.Failed != 0 {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if got, want := result.Summary(), "1 cards created, 1 duplicates skipped, 1 items skipped (no image)"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if run.Phase() != PhaseDone {
		t.Errorf("Phase() = %v, want %v", run.Phase(), PhaseDone)
	}
	if len(p.finished) != 1 || p.finished[0].Summary() != result.Summary() {
		t.Errorf("finished = %+v, want one report of %+v", p.finished, result)
	}
}

func TestCursorMatchesSelectionsWhileStepping(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("alpha", found("alpha", 2)).
		Script("beta", found("beta", 2)).
		Script("gamma", found("gamma", 2))
	p := &scriptedPresenter{}
	c, _ := newTestController(searcher, testutil.NewMockStore(), p)
	run := NewBatchRun([]string{"alpha", "beta", "gamma"})
	p.onSearching = func(st Step) {
		if st.Index != run.Cursor() {
			t.Errorf("step index = %d, cursor = %d", st.Index, run.Cursor())
		}
		if n := len(run.Selections()); n != run.Cursor() {
			t.Errorf("selections = %d, cursor = %d", n, run.Cursor())
		}
		if st.Total != 3 {
			t.Errorf("step total = %d, want 3", st.Total)
		}
	}

	if _, err := c.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestCommitNeverStopsEarly(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("one", found("one", 1)).
		Script("two", found("two", 1)).
		Script("three", found("three", 1))
	store := testutil.NewMockStore()
	boom := errors.New("collection is not available")
	store.Errors["one"] = boom
	c, delays := newTestController(searcher, store, &scriptedPresenter{})

	result, err := c.Run(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if want := []string{"one", "two", "three"}; !slices.Equal(store.Calls, want) {
		t.Errorf("store calls = %v, want %v", store.Calls, want)
	}
	if result.Created != 2 || result.Failed != 1 || result.Total() != 3 {
		t.Errorf("result = %+v, want 2 created and 1 failed", result)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(result.Failures))
	}
	if result.Failures[0].Item.Text != "one" || !errors.Is(result.Failures[0].Err, boom) {
		t.Errorf("failure = %+v, want one with %v", result.Failures[0], boom)
	}
	if want := []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}; !slices.Equal(*delays, want) {
		t.Errorf("delays = %v, want %v", *delays, want)
	}
}

func TestAbortDuringSteppingMakesNoStoreCalls(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("first", found("first", 1))
	store := testutil.NewMockStore()
	p := &scriptedPresenter{recoveries: []Recovery{{Action: RecoverAbort}}}
	c, _ := newTestController(searcher, store, p)
	run := NewBatchRun([]string{"first", "second", "third"})

	_, err := c.Execute(context.Background(), run)
	if !errors.Is(err, ErrAborted) {
		t.Errorf("Execute() error = %v, want %v", err, ErrAborted)
	}
	if len(store.Calls) != 0 {
		t.Errorf("store calls = %v, want none", store.Calls)
	}
	if !run.Closed() {
		t.Error("run should be closed after an abort")
	}
	if want := []string{"first", "second"}; !slices.Equal(searcher.Calls, want) {
		t.Errorf("searches = %v, want %v", searcher.Calls, want)
	}
	if len(p.reviewed) != 0 || len(p.finished) != 0 {
		t.Errorf("reviewed = %d, finished = %d, want neither", len(p.reviewed), len(p.finished))
	}
}

func TestPickAbort(t *testing.T) {
	searcher := testutil.NewMockSearcher().Script("first", found("first", 3))
	store := testutil.NewMockStore()
	p := &scriptedPresenter{picks: []Pick{{Action: PickAbort}}}
	c, _ := newTestController(searcher, store, p)

	_, err := c.Run(context.Background(), []string{"first", "second"})
	if !errors.Is(err, ErrAborted) {
		t.Errorf("Run() error = %v, want %v", err, ErrAborted)
	}
	if len(store.Calls) != 0 {
		t.Errorf("store calls = %v, want none", store.Calls)
	}
}

func TestPresenterErrorIsAbort(t *testing.T) {
	searcher := testutil.NewMockSearcher().Script("first", found("first", 3))
	store := testutil.NewMockStore()
	p := &scriptedPresenter{err: errors.New("window closed")}
	c, _ := newTestController(searcher, store, p)

	_, err := c.Run(context.Background(), []string{"first", "second"})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Run() error = %v, want %v", err, ErrAborted)
	}
	if !strings.Contains(err.Error(), "window closed") {
		t.Errorf("Run() error = %q, want the presenter cause", err)
	}
	if len(store.Calls) != 0 {
		t.Errorf("store calls = %v, want none", store.Calls)
	}
}

func TestBackRestartsFromFirstItem(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("cat", found("cat", 2)).
		Script("dog", found("dog", 2))
	store := testutil.NewMockStore()
	p := &scriptedPresenter{
		picks:   []Pick{{Index: 1}, {Index: 1}, {Index: 0}, {Index: 0}},
		reviews: []ReviewDecision{ReviewBack, ReviewCreate},
	}
	c, _ := newTestController(searcher, store, p)
	run := NewBatchRun([]string{"cat", "dog"})

	result, err := c.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(p.reviewed) != 2 {
		t.Fatalf("reviewed %d times, want 2", len(p.reviewed))
	}
	for i, rv := range p.reviewed {
		if len(rv.Selections) != 2 {
			t.Errorf("review %d has %d selections, want 2", i, len(rv.Selections))
		}
	}
	if searcher.CallCount("cat") != 2 || searcher.CallCount("dog") != 2 {
		t.Errorf("searches = %v, want every item searched twice", searcher.Calls)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, want 2", result.Created)
	}

	// Second pass picks win.
	if len(store.Notes) != 2 {
		t.Fatalf("stored %d notes, want 2", len(store.Notes))
	}
	for i, want := range []string{"https://img.example/pixabay/cat-0.jpg", "https://img.example/pixabay/dog-0.jpg"} {
		if got := store.Notes[i].Picture[0].URL; got != want {
			t.Errorf("note %d picture = %q, want %q", i, got, want)
		}
	}
}

func TestCreateWithNothingFoundIsBack(t *testing.T) {
	searcher := testutil.NewMockSearcher()
	store := testutil.NewMockStore()
	p := &scriptedPresenter{reviews: []ReviewDecision{ReviewCreate, ReviewCancel}}
	c, _ := newTestController(searcher, store, p)
	run := NewBatchRun([]string{"qwzx", "vbnm"})

	_, err := c.Execute(context.Background(), run)
	if !errors.Is(err, ErrAborted) {
		t.Errorf("Execute() error = %v, want %v", err, ErrAborted)
	}

	if len(p.reviewed) != 2 {
		t.Fatalf("reviewed %d times, want 2", len(p.reviewed))
	}
	if p.reviewed[0].CanCreate() {
		t.Error("CanCreate() = true with nothing found")
	}
	if n := searcher.TotalCalls(); n != 4 {
		t.Errorf("searched %d times, want 4", n)
	}
	if len(store.Calls) != 0 {
		t.Errorf("store calls = %v, want none", store.Calls)
	}
	if !run.Closed() {
		t.Error("run should be closed after cancel")
	}
}

func TestCustomTermIsTransient(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("leaf", found("leaf", 2)).
		Script("plant", found("plant", 2))
	store := testutil.NewMockStore()
	p := &scriptedPresenter{recoveries: []Recovery{{Action: RecoverCustomTerm, Term: "  plant "}}}
	c, _ := newTestController(searcher, store, p)
	run := NewBatchRun([]string{"leaf", "chlorophyll   molecule"})

	result, err := c.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if want := []string{"leaf", "chlorophyll molecule", "plant"}; !slices.Equal(searcher.Calls, want) {
		t.Errorf("searches = %v, want %v", searcher.Calls, want)
	}
	if len(p.outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(p.outcomes))
	}
	outcome := p.outcomes[0]
	if outcome.Kind != OutcomeEmpty || outcome.Suggestion == "" || len(outcome.Options()) != 4 {
		t.Errorf("outcome = %+v, want empty with a suggestion and 4 options", outcome)
	}

	if got := run.Selections()[1].Item.Text; got != "chlorophyll   molecule" {
		t.Errorf("item text = %q, want it unchanged", got)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, want 2", result.Created)
	}
	if want := []string{"leaf", "chlorophyll molecule"}; !slices.Equal(store.Fronts(), want) {
		t.Errorf("fronts = %v, want %v", store.Fronts(), want)
	}
}

func TestFailedSearchRetry(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("osmosis",
			testutil.SearchResponse{Err: errors.New("connection reset")},
			found("osmosis", 1)).
		Script("other", found("other", 1))
	p := &scriptedPresenter{recoveries: []Recovery{{Action: RecoverRetry}}}
	c, _ := newTestController(searcher, testutil.NewMockStore(), p)

	result, err := c.Run(context.Background(), []string{"osmosis", "other"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(p.outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(p.outcomes))
	}
	outcome := p.outcomes[0]
	if outcome.Kind != OutcomeFailed || outcome.Err == nil || outcome.Err.Error() != "connection reset" {
		t.Errorf("outcome = %+v, want the failed search", outcome)
	}
	if n := len(outcome.Options()); n != 3 {
		t.Errorf("options = %d, want 3", n)
	}
	if n := searcher.CallCount("osmosis"); n != 2 {
		t.Errorf("osmosis searched %d times, want 2", n)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, want 2", result.Created)
	}
}

func TestFailedSearchCustomTermRetriesWithOverride(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("osmosis", testutil.SearchResponse{Err: errors.New("timeout")}).
		Script("water", found("water", 1)).
		Script("other", found("other", 1))
	p := &scriptedPresenter{recoveries: []Recovery{{Action: RecoverCustomTerm, Term: "water"}}}
	c, _ := newTestController(searcher, testutil.NewMockStore(), p)

	result, err := c.Run(context.Background(), []string{"osmosis", "other"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := []string{"osmosis", "water", "other"}; !slices.Equal(searcher.Calls, want) {
		t.Errorf("searches = %v, want %v", searcher.Calls, want)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, want 2", result.Created)
	}
}

func TestBatchConfirmWithoutPickIsAskedAgain(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("one", found("one", 3)).
		Script("two", found("two", 3))
	store := testutil.NewMockStore()
	p := &scriptedPresenter{picks: []Pick{{Action: PickConfirm, Index: -1}, {Action: PickConfirm, Index: 7}, {Index: 2}}}
	c, _ := newTestController(searcher, store, p)
	run := NewBatchRun([]string{"one", "two"})

	if _, err := c.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if n := len(p.pickCalls); n != 4 {
		t.Errorf("asked %d times, want 4", n)
	}
	if n := searcher.CallCount("one"); n != 1 {
		t.Errorf("one searched %d times, want 1", n)
	}
	if got, want := run.Selections()[0].Image.URL, "https://img.example/pixabay/one-2.jpg"; got != want {
		t.Errorf("picked %q, want %q", got, want)
	}
}

func TestPickSearchOverride(t *testing.T) {
	searcher := testutil.NewMockSearcher().
		Script("one", found("one", 1)).
		Script("uno", found("uno", 1)).
		Script("two", found("two", 1))
	p := &scriptedPresenter{picks: []Pick{{Action: PickSearch, Term: "uno"}}}
	c, _ := newTestController(searcher, testutil.NewMockStore(), p)
	run := NewBatchRun([]string{"one", "two"})

	if _, err := c.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if want := []string{"one", "uno", "two"}; !slices.Equal(searcher.Calls, want) {
		t.Errorf("searches = %v, want %v", searcher.Calls, want)
	}
	first := run.Selections()[0]
	if first.Item.Text != "one" || first.Image.Tags != "uno" {
		t.Errorf("selection = %q with %q, want item one with an uno picture", first.Item.Text, first.Image.Tags)
	}
	if got := p.searched[1].Term; got != "uno" {
		t.Errorf("second search term = %q, want uno", got)
	}
}

func TestSingleItemDefaultsToFirstCandidate(t *testing.T) {
	searcher := testutil.NewMockSearcher().Script("mitochondria", found("mitochondria", 4))
	store := testutil.NewMockStore()
	p := &scriptedPresenter{picks: []Pick{{Action: PickConfirm, Index: -1}}}
	c, _ := newTestController(searcher, store, p)

	result, err := c.Run(context.Background(), []string{"Mitochondria"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if want := []string{"mitochondria"}; !slices.Equal(searcher.Calls, want) {
		t.Errorf("searches = %v, want %v", searcher.Calls, want)
	}
	if len(p.reviewed) != 0 {
		t.Error("single item should not be reviewed")
	}
	if len(p.pickCalls) != 1 || !p.pickCalls[0].Single {
		t.Errorf("pick calls = %+v, want one single-item pick", p.pickCalls)
	}
	if result.Created != 1 {
		t.Errorf("Created = %d, want 1", result.Created)
	}
	if len(store.Notes) != 1 {
		t.Fatalf("stored %d notes, want 1", len(store.Notes))
	}
	if got := store.Notes[0].Front(); got != "Mitochondria" {
		t.Errorf("Front() = %q, want Mitochondria", got)
	}
	if got, want := store.Notes[0].Picture[0].URL, "https://img.example/pixabay/mitochondria-0.jpg"; got != want {
		t.Errorf("picture = %q, want %q", got, want)
	}
}

func TestSingleItemSkip(t *testing.T) {
	searcher := testutil.NewMockSearcher()
	store := testutil.NewMockStore()
	c, _ := newTestController(searcher, store, &scriptedPresenter{})

	result, err := c.Run(context.Background(), []string{"nothing matches"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Skipped != 1 || result.Created != 0 || result.Failed != 0 || result.Duplicates != 0 {
		t.Errorf("result = %+v, want one skipped item", result)
	}
	if got, want := result.Summary(), "1 items skipped (no image)"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if len(store.Calls) != 0 {
		t.Errorf("store calls = %v, want none", store.Calls)
	}
}

func TestNoItems(t *testing.T) {
	c, _ := newTestController(testutil.NewMockSearcher(), testutil.NewMockStore(), &scriptedPresenter{})
	if _, err := c.Run(context.Background(), nil); !errors.Is(err, ErrNoItems) {
		t.Errorf("Run(nil) error = %v, want %v", err, ErrNoItems)
	}
}

func TestClosedRunDiscardsLateResult(t *testing.T) {
	searcher := testutil.NewMockSearcher().Script("slow", found("slow", 3))
	store := testutil.NewMockStore()
	p := &scriptedPresenter{}
	c, _ := newTestController(searcher, store, p)
	run := NewBatchRun([]string{"slow", "other"})
	searcher.OnSearch = func(string) { run.Close() }

	_, err := c.Execute(context.Background(), run)
	if !errors.Is(err, ErrRunClosed) {
		t.Errorf("Execute() error = %v, want %v", err, ErrRunClosed)
	}
	if len(p.pickCalls) != 0 || len(run.Selections()) != 0 || len(store.Calls) != 0 {
		t.Errorf("picks = %d, selections = %d, store calls = %d, want none",
			len(p.pickCalls), len(run.Selections()), len(store.Calls))
	}
}

func TestCancelledContextStopsStepping(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	searcher := testutil.NewMockSearcher().Script("first", found("first", 1))
	searcher.OnSearch = func(string) { cancel() }
	store := testutil.NewMockStore()
	c, _ := newTestController(searcher, store, &scriptedPresenter{})

	_, err := c.Run(ctx, []string{"first", "second"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want %v", err, context.Canceled)
	}
	if len(store.Calls) != 0 {
		t.Errorf("store calls = %v, want none", store.Calls)
	}
}

type ctxStore struct {
	errs []error
}

func (s *ctxStore) Create(ctx context.Context, _ anki.Note) (int64, error) {
	s.errs = append(s.errs, ctx.Err())
	return 1, nil
}

func TestCommitIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	searcher := testutil.NewMockSearcher().
		Script("one", found("one", 1)).
		Script("two", found("two", 1))
	store := &ctxStore{}
	p := &scriptedPresenter{onReview: func(Review) { cancel() }}
	c, _ := newTestController(searcher, store, p)

	result, err := c.Run(ctx, []string{"one", "two"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, want 2", result.Created)
	}
	if want := []error{nil, nil}; !slices.Equal(store.errs, want) {
		t.Errorf("store saw context errors %v, want none", store.errs)
	}
}

func TestBuildNote(t *testing.T) {
	c, _ := newTestController(nil, nil, &scriptedPresenter{})
	img := testutil.Candidates("pixabay", "cell", 1)[0]
	note := c.BuildNote(Selection{Item: SourceItem{Text: "  cell <membrane> "}, Image: &img})

	if note.DeckName != "Biology" || note.ModelName != "Basic" {
		t.Errorf("deck/model = %q/%q, want Biology/Basic", note.DeckName, note.ModelName)
	}
	if got := note.Fields["Front"]; got != "cell <membrane>" {
		t.Errorf("Front = %q", got)
	}
	wantBack := `Images for: cell &lt;membrane&gt;<br><img src="https://img.example/pixabay/cell-0.jpg" class="flashpix-card-image">`
	if got := note.Fields["Back"]; got != wantBack {
		t.Errorf("Back = %q, want %q", got, wantBack)
	}
	if want := []string{"flashpix", "auto-generated"}; !slices.Equal(note.Tags, want) {
		t.Errorf("Tags = %v, want %v", note.Tags, want)
	}
	if len(note.Picture) != 1 {
		t.Fatalf("got %d pictures, want 1", len(note.Picture))
	}
	pic := note.Picture[0]
	if pic.URL != img.URL || !slices.Equal(pic.Fields, []string{"Back"}) {
		t.Errorf("picture = %+v", pic)
	}
	if want := "flashpix_cell_membrane_pixabay_cell-0.jpg"; pic.Filename != want {
		t.Errorf("Filename = %q, want %q", pic.Filename, want)
	}
	if note.Options == nil || note.Options.AllowDuplicate {
		t.Errorf("Options = %+v, want duplicates rejected", note.Options)
	}
	if got := note.Front(); got != "cell <membrane>" {
		t.Errorf("Front() = %q", got)
	}
}
