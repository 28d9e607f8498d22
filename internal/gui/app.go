package gui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/flashpix/internal"
	"codeberg.org/snonux/flashpix/internal/config"
	"codeberg.org/snonux/flashpix/internal/image"
	"codeberg.org/snonux/flashpix/internal/workflow"
)

// Application is the desktop surface of the workflow
type Application struct {
	// Fyne components
	app    fyne.App
	window fyne.Window

	// UI elements
	headerLabel *widget.Label
	termLabel   *widget.Label
	statusLabel *widget.Label
	progress    *widget.ProgressBar
	content     *fyne.Container
	actions     *fyne.Container
	termEntry   *TermEntry
	logViewer   *LogViewer

	// Candidate view state, touched on the UI thread only
	tiles         []*CandidateTile
	selected      int
	confirmButton *ttwidget.Button
	shortcuts     map[fyne.KeyName]func()
	viewCancel    context.CancelFunc

	config     *Config
	presenter  *Presenter
	downloader *image.Downloader
	thumbDir   string

	// Background thumbnail loading
	ctx context.Context
	wg  sync.WaitGroup
}

// Config holds GUI application configuration
type Config struct {
	DeckName string
	Width    float32
	Height   float32
}

// DefaultConfig returns default GUI configuration
func DefaultConfig() *Config {
	return &Config{
		DeckName: config.Default().DeckName,
		Width:    900,
		Height:   700,
	}
}

// Run opens the window and runs work with a presenter drawing into it.
// It must be called from the main goroutine and returns once the window
// is closed and work has returned. Closing the window while a question
// is pending makes that question fail with ErrWindowClosed.
func Run(ctx context.Context, cfg *Config, work func(context.Context, workflow.Presenter) error) error {
	a, err := newApplication(cfg)
	if err != nil {
		return err
	}
	defer os.RemoveAll(a.thumbDir)

	// Log lines go to the activity pane while the window is open.
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(a.logViewer.Writer(), &slog.HandlerOptions{Level: slog.LevelInfo})))

	a.ctx = ctx

	var workErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		workErr = work(ctx, a.presenter)
		a.workFinished(workErr)
	}()

	a.window.ShowAndRun()
	a.presenter.close()
	slog.SetDefault(prev)
	<-done
	a.wg.Wait()

	return workErr
}

func newApplication(cfg *Config) (*Application, error) {
	defaults := DefaultConfig()
	if cfg == nil {
		cfg = defaults
	}
	if cfg.DeckName == "" {
		cfg.DeckName = defaults.DeckName
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = defaults.Width, defaults.Height
	}

	thumbDir, err := os.MkdirTemp("", "flashpix-thumbs-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	opts := image.DefaultDownloadOptions(thumbDir)
	opts.OverwriteExisting = true

	myApp := app.NewWithID("org.codeberg.snonux.flashpix")
	myApp.SetIcon(appIcon())

	a := &Application{
		app:        myApp,
		config:     cfg,
		downloader: image.NewDownloader(opts),
		thumbDir:   thumbDir,
		selected:   -1,
		shortcuts:  make(map[fyne.KeyName]func()),
		ctx:        context.Background(),
	}
	a.presenter = newPresenter(a)
	a.setupUI()
	return a, nil
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(fmt.Sprintf("flashpix v%s - %s", internal.Version, a.config.DeckName))
	a.window.SetIcon(appIcon())
	a.window.Resize(fyne.NewSize(a.config.Width, a.config.Height))
	a.window.SetMaster()

	a.headerLabel = widget.NewLabelWithStyle("Starting...", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	a.termLabel = widget.NewLabel("")
	a.statusLabel = widget.NewLabel("Ready")
	a.progress = widget.NewProgressBar()
	a.logViewer = NewLogViewer()

	a.termEntry = NewTermEntry()
	a.termEntry.SetOnEscape(func() {
		a.window.Canvas().Unfocus()
	})

	a.content = container.NewStack(widget.NewLabel(""))
	a.actions = container.NewStack()

	helpButton := ttwidget.NewButtonWithIcon("", theme.HelpIcon(), a.onShowHotkeys)

	header := container.NewBorder(
		nil, nil, nil,
		helpButton,
		container.NewVBox(a.headerLabel, a.termLabel),
	)

	statusSection := container.NewVBox(
		a.actions,
		widget.NewSeparator(),
		a.statusLabel,
		a.progress,
		a.logViewer,
	)

	content := container.NewBorder(
		container.NewVBox(header, widget.NewSeparator()),
		statusSection,
		nil, nil,
		a.content,
	)

	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))
	helpButton.SetToolTip("Show hotkeys (h)")

	a.window.SetOnClosed(func() {
		a.presenter.close()
		if a.viewCancel != nil {
			a.viewCancel()
		}
	})

	a.setupKeyboardShortcuts()
}

func (a *Application) log(format string, args ...interface{}) {
	if !a.presenter.isClosed() {
		a.logViewer.Log(format, args...)
	}
}

// do runs f on the UI thread unless the window is gone
func (a *Application) do(f func()) {
	if a.presenter.isClosed() {
		return
	}
	fyne.Do(f)
}

// beginView resets the per view state. Must run on the UI thread.
func (a *Application) beginView() context.Context {
	if a.viewCancel != nil {
		a.viewCancel()
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.viewCancel = cancel

	a.tiles = nil
	a.selected = -1
	a.confirmButton = nil
	a.shortcuts = map[fyne.KeyName]func(){
		fyne.KeyH: a.onShowHotkeys,
	}
	return ctx
}

func (a *Application) setContent(obj fyne.CanvasObject) {
	a.content.Objects = []fyne.CanvasObject{obj}
	a.content.Refresh()
}

func (a *Application) setActions(obj fyne.CanvasObject) {
	if obj == nil {
		a.actions.Objects = nil
	} else {
		a.actions.Objects = []fyne.CanvasObject{obj}
	}
	a.actions.Refresh()
}

// setBusy removes the buttons after an answer was sent
func (a *Application) setBusy(message string) {
	a.setActions(nil)
	a.shortcuts = map[fyne.KeyName]func(){fyne.KeyH: a.onShowHotkeys}
	a.statusLabel.SetText(message)
}

func (a *Application) showSearching(step workflow.Step) {
	a.log("Searching images for %q", step.Term)
	a.do(func() {
		a.beginView()
		a.headerLabel.SetText(stepTitle(step))
		a.termLabel.SetText("Search term: " + step.Term)
		a.setContent(widget.NewLabel(fmt.Sprintf("Searching images for %q...", step.Term)))
		a.setActions(nil)
		a.statusLabel.SetText("Searching...")
		a.progress.SetValue(progressValue(step.Index, step.Total))
	})
}

func (a *Application) showCandidates(step workflow.Step, candidates []image.Candidate) {
	a.do(func() {
		ctx := a.beginView()
		a.headerLabel.SetText(stepTitle(step))
		a.termLabel.SetText("Search term: " + step.Term)

		objs := make([]fyne.CanvasObject, 0, len(candidates))
		for i, c := range candidates {
			idx := i
			tile := NewCandidateTile(i, c, func() { a.selectTile(idx) })
			a.tiles = append(a.tiles, tile)
			objs = append(objs, tile)
		}
		grid := container.NewGridWrap(fyne.NewSize(thumbnailWidth+20, thumbnailHeight+90), objs...)
		a.setContent(container.NewScroll(grid))

		a.termEntry.Reset(step.Term)
		a.termEntry.OnSubmitted = func(string) { a.searchAgain() }

		a.confirmButton = ttwidget.NewButtonWithIcon("Use picture", theme.ConfirmIcon(), func() { a.confirmPick(step) })
		a.confirmButton.Importance = widget.HighImportance
		a.confirmButton.SetToolTip("Use the selected picture (enter)")
		if !step.Single {
			a.confirmButton.Disable()
		}

		searchButton := ttwidget.NewButtonWithIcon("Search", theme.SearchIcon(), a.searchAgain)
		searchButton.SetToolTip("Search again with this term (s)")

		cancelButton := ttwidget.NewButtonWithIcon("Cancel", theme.CancelIcon(), func() {
			a.presenter.answerPick(workflow.Pick{Action: workflow.PickAbort, Index: -1})
			a.setBusy("Cancelling...")
		})
		cancelButton.SetToolTip("Cancel without creating cards (esc)")

		a.setActions(container.NewBorder(
			nil, nil, nil,
			container.NewHBox(searchButton, a.confirmButton, cancelButton),
			a.termEntry,
		))

		a.shortcuts[fyne.KeyReturn] = func() { a.confirmPick(step) }
		a.shortcuts[fyne.KeyEnter] = a.shortcuts[fyne.KeyReturn]
		a.shortcuts[fyne.KeyEscape] = cancelButton.OnTapped
		a.shortcuts[fyne.KeyS] = func() { a.window.Canvas().Focus(a.termEntry) }
		for i := 0; i < len(candidates) && i < 9; i++ {
			idx := i
			a.shortcuts[fyne.KeyName(strconv.Itoa(i+1))] = func() { a.selectTile(idx) }
		}

		a.statusLabel.SetText(fmt.Sprintf("%d pictures found", len(candidates)))
		a.loadThumbnails(ctx, step.Term, candidates, a.tiles)
	})
}

// loadThumbnails fetches previews in the background and draws them as they arrive
func (a *Application) loadThumbnails(ctx context.Context, term string, candidates []image.Candidate, tiles []*CandidateTile) {
	for i, c := range candidates {
		idx, cand, tile := i, c, tiles[i]
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			path, err := a.downloader.Fetch(ctx, thumbnailURL(cand), thumbnailFileName(term, idx, cand))
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				slog.Debug("thumbnail download failed", "url", thumbnailURL(cand), "error", err)
				a.do(func() { tile.SetError(err) })
				return
			}
			img, err := loadImage(path)
			a.do(func() {
				if err != nil {
					tile.SetError(err)
					return
				}
				tile.SetImage(img)
			})
		}()
	}
}

func (a *Application) selectTile(index int) {
	if index < 0 || index >= len(a.tiles) {
		return
	}
	a.selected = index
	for i, t := range a.tiles {
		t.SetSelected(i == index)
	}
	if a.confirmButton != nil {
		a.confirmButton.Enable()
	}
}

func (a *Application) confirmPick(step workflow.Step) {
	switch {
	case a.selected >= 0:
		a.presenter.answerPick(workflow.Pick{Action: workflow.PickConfirm, Index: a.selected})
	case step.Single:
		a.presenter.answerPick(workflow.Pick{Action: workflow.PickConfirm, Index: -1})
	default:
		a.statusLabel.SetText("Select a picture first")
		return
	}
	a.setBusy("Picture chosen")
}

func (a *Application) searchAgain() {
	term := a.termEntry.Term()
	if term == "" {
		a.statusLabel.SetText("Enter a search term")
		return
	}
	a.presenter.answerPick(workflow.Pick{Action: workflow.PickSearch, Index: -1, Term: term})
	a.setBusy("Searching...")
}

func (a *Application) showRecovery(step workflow.Step, outcome workflow.Outcome) {
	a.log("%s", recoveryMessage(step, outcome))
	a.do(func() {
		a.beginView()
		a.headerLabel.SetText(stepTitle(step))
		a.termLabel.SetText("Search term: " + step.Term)

		message := widget.NewLabel(recoveryMessage(step, outcome))
		message.Wrapping = fyne.TextWrapWord
		a.setContent(container.NewVBox(message))

		answer := func(r workflow.Recovery) func() {
			return func() {
				a.presenter.answerRecovery(r)
				a.setBusy(fmt.Sprintf("Decision: %s", r.Action))
			}
		}

		var buttons []fyne.CanvasObject
		var entry fyne.CanvasObject
		for _, action := range outcome.Options() {
			switch action {
			case workflow.RecoverRetry:
				b := ttwidget.NewButtonWithIcon("Retry", theme.ViewRefreshIcon(), answer(workflow.Recovery{Action: workflow.RecoverRetry}))
				b.SetToolTip("Search again with the same term (r)")
				a.shortcuts[fyne.KeyR] = b.OnTapped
				buttons = append(buttons, b)

			case workflow.RecoverCustomTerm:
				value := outcome.Suggestion
				if value == "" {
					value = step.Term
				}
				a.termEntry.Reset(value)
				search := func() {
					term := a.termEntry.Term()
					if term == "" {
						a.statusLabel.SetText("Enter a search term")
						return
					}
					answer(workflow.Recovery{Action: workflow.RecoverCustomTerm, Term: term})()
				}
				a.termEntry.OnSubmitted = func(string) { search() }
				b := ttwidget.NewButtonWithIcon("Search", theme.SearchIcon(), search)
				b.SetToolTip("Search with this term instead (t)")
				a.shortcuts[fyne.KeyT] = func() { a.window.Canvas().Focus(a.termEntry) }
				buttons = append(buttons, b)
				entry = a.termEntry

			case workflow.RecoverSkip:
				b := ttwidget.NewButtonWithIcon("Skip", theme.MediaSkipNextIcon(), answer(workflow.Recovery{Action: workflow.RecoverSkip}))
				b.SetToolTip("Continue without a picture (s)")
				a.shortcuts[fyne.KeyS] = b.OnTapped
				buttons = append(buttons, b)

			case workflow.RecoverAbort:
				b := ttwidget.NewButtonWithIcon("Cancel", theme.CancelIcon(), answer(workflow.Recovery{Action: workflow.RecoverAbort}))
				b.SetToolTip("Cancel without creating cards (esc)")
				a.shortcuts[fyne.KeyEscape] = b.OnTapped
				buttons = append(buttons, b)
			}
		}

		a.setActions(container.NewBorder(nil, nil, nil, container.NewHBox(buttons...), entry))
		a.statusLabel.SetText("Waiting for a decision")
	})
}

func (a *Application) showReview(review workflow.Review) {
	a.do(func() {
		a.beginView()
		a.headerLabel.SetText("Review")
		a.termLabel.SetText(fmt.Sprintf("%d of %d items will become cards in %s", review.Found, len(review.Selections), a.config.DeckName))

		rows := make([]fyne.CanvasObject, 0, len(review.Selections))
		for i, sel := range review.Selections {
			rows = append(rows, widget.NewLabel(reviewLine(i, sel)))
		}
		a.setContent(container.NewScroll(container.NewVBox(rows...)))

		answer := func(d workflow.ReviewDecision) func() {
			return func() {
				a.presenter.answerReview(d)
				a.setBusy(fmt.Sprintf("Review: %s", d))
			}
		}

		create := ttwidget.NewButtonWithIcon("Create cards", theme.DocumentCreateIcon(), answer(workflow.ReviewCreate))
		create.Importance = widget.HighImportance
		create.SetToolTip("Create the cards (c)")
		if !review.CanCreate() {
			create.Disable()
		} else {
			a.shortcuts[fyne.KeyC] = create.OnTapped
			a.shortcuts[fyne.KeyReturn] = create.OnTapped
			a.shortcuts[fyne.KeyEnter] = create.OnTapped
		}

		back := ttwidget.NewButtonWithIcon("Back", theme.NavigateBackIcon(), answer(workflow.ReviewBack))
		back.SetToolTip("Start over from the first item (b)")
		a.shortcuts[fyne.KeyB] = back.OnTapped

		cancel := ttwidget.NewButtonWithIcon("Cancel", theme.CancelIcon(), answer(workflow.ReviewCancel))
		cancel.SetToolTip("Cancel without creating cards (esc)")
		a.shortcuts[fyne.KeyEscape] = cancel.OnTapped

		a.setActions(container.NewHBox(create, back, cancel))
		a.statusLabel.SetText("Review the selection")
		a.progress.SetValue(1)
	})
}

func (a *Application) showCommitting(done, total int, sel workflow.Selection) {
	if sel.Found() {
		a.log("Creating card for %s", sel.Item.Text)
	}
	a.do(func() {
		a.headerLabel.SetText("Creating cards")
		a.termLabel.SetText(sel.Item.Text)
		a.statusLabel.SetText(fmt.Sprintf("Creating cards (%d/%d)", done+1, total))
		a.progress.SetValue(progressValue(done+1, total))
	})
}

func (a *Application) showFinished(result workflow.CommitResult) {
	a.log("%s", result.Summary())
	a.do(func() {
		a.beginView()
		a.headerLabel.SetText("Done")
		a.termLabel.SetText("")

		lines := []fyne.CanvasObject{widget.NewLabel(result.Summary())}
		for _, f := range result.Failures {
			l := widget.NewLabel(fmt.Sprintf("%s: %v", f.Item.Text, f.Err))
			l.Wrapping = fyne.TextWrapWord
			lines = append(lines, l)
		}
		a.setContent(container.NewVBox(lines...))

		closeButton := ttwidget.NewButtonWithIcon("Close", theme.WindowCloseIcon(), a.window.Close)
		closeButton.SetToolTip("Close the window (q)")
		a.setActions(container.NewHBox(closeButton))
		a.shortcuts[fyne.KeyQ] = a.window.Close
		a.shortcuts[fyne.KeyEscape] = a.window.Close
		a.statusLabel.SetText(result.Summary())
		a.progress.SetValue(1)
	})
}

// workFinished closes the window when the dialog ended early. After a
// normal commit it stays open to show the result.
func (a *Application) workFinished(err error) {
	if err == nil {
		return
	}
	a.log("Stopped: %v", err)
	a.do(func() {
		a.window.Close()
	})
}

func (a *Application) setupKeyboardShortcuts() {
	a.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if a.window.Canvas().Focused() != nil {
			return
		}
		if fn, ok := a.shortcuts[ev.Name]; ok && fn != nil {
			fn()
		}
	})
}

func (a *Application) onShowHotkeys() {
	hotkeys := `## Choosing a picture
**1-9** Select a picture
**Enter** Use the selected picture
**s** Edit the search term
**Esc** Cancel

## No pictures found
**r** Retry
**t** Edit the search term
**s** Skip the item

## Review
**c** Create cards
**b** Back to the first item
**Esc** Cancel

**h** Show this help`

	content := widget.NewRichTextFromMarkdown(hotkeys)
	content.Wrapping = fyne.TextWrapWord

	scroll := container.NewScroll(container.NewPadded(content))
	scroll.SetMinSize(fyne.NewSize(400, 380))

	dialog.NewCustom("Keyboard Shortcuts", "Close", scroll, a.window).Show()
}

// stepTitle is the header shown while deciding an item
func stepTitle(step workflow.Step) string {
	if step.Single {
		return step.Item.Text
	}
	return fmt.Sprintf("[%d/%d] %s", step.Index+1, step.Total, step.Item.Text)
}

func recoveryMessage(step workflow.Step, outcome workflow.Outcome) string {
	if outcome.Kind == workflow.OutcomeFailed {
		return fmt.Sprintf("Search for %q failed: %v", step.Term, outcome.Err)
	}
	if outcome.Suggestion != "" {
		return fmt.Sprintf("No images found for %q. Try %q?", step.Term, outcome.Suggestion)
	}
	return fmt.Sprintf("No images found for %q", step.Term)
}

func reviewLine(index int, sel workflow.Selection) string {
	if !sel.Found() {
		return fmt.Sprintf("✗ %d. %s (no picture)", index+1, sel.Item.Text)
	}
	return fmt.Sprintf("✓ %d. %s (%s %s)", index+1, sel.Item.Text, sel.Image.Provider, sel.Image.Size())
}

// progressValue maps done of total onto the progress bar range
func progressValue(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	v := float64(done) / float64(total)
	if v > 1 {
		return 1
	}
	return v
}
