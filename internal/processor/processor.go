package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"codeberg.org/snonux/flashpix/internal"
	"codeberg.org/snonux/flashpix/internal/anki"
	"codeberg.org/snonux/flashpix/internal/archive"
	"codeberg.org/snonux/flashpix/internal/batch"
	"codeberg.org/snonux/flashpix/internal/cli"
	"codeberg.org/snonux/flashpix/internal/config"
	"codeberg.org/snonux/flashpix/internal/gui"
	"codeberg.org/snonux/flashpix/internal/image"
	"codeberg.org/snonux/flashpix/internal/keywords"
	"codeberg.org/snonux/flashpix/internal/tui"
	"codeberg.org/snonux/flashpix/internal/workflow"
)

var (
	// ErrNoKeywords is returned when a single item yields no search term
	ErrNoKeywords = errors.New("no keywords could be extracted from the selection")
	ErrNoItems    = errors.New("no items found in the input")
	ErrNoList     = errors.New("no list items found, please select a bulleted list")
)

// ConnectionError means AnkiConnect did not answer the connection check
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to Anki at %s, please ensure Anki is running with AnkiConnect installed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Searcher is what the processor needs from the image search service
type Searcher interface {
	workflow.Searcher
	Providers() []string
}

// Connector is what the processor needs from the AnkiConnect client
type Connector interface {
	workflow.Store
	Version(ctx context.Context) (int, error)
	DeckNames(ctx context.Context) ([]string, error)
	ModelNames(ctx context.Context) ([]string, error)
	ModelFieldNames(ctx context.Context, model string) ([]string, error)
}

// Processor handles the card generation logic
type Processor struct {
	flags     *cli.Flags
	settings  config.Settings
	searcher  Searcher
	anki      Connector
	suggester keywords.Suggester

	in  io.Reader
	out io.Writer
}

// NewProcessor creates a processor talking to the services named in settings
func NewProcessor(flags *cli.Flags, settings config.Settings) *Processor {
	return &Processor{
		flags:    flags,
		settings: settings,
		searcher: image.NewService(settings),
		anki:     anki.NewClient(settings.AnkiConnectURL),
		suggester: keywords.NewSuggester(settings.SuggestProvider, settings.SuggestModel,
			settings.OpenAIKey, settings.GeminiKey),
		in:  os.Stdin,
		out: os.Stdout,
	}
}

// ProcessSelection turns text into cards through the interactive dialog
func (p *Processor) ProcessSelection(ctx context.Context, text string) error {
	items := batch.SplitItems(text)
	if p.flags.List {
		items = batch.ParseList(text)
	}
	if len(items) == 0 {
		return ErrNoItems
	}
	items, err := batch.Cap(items, p.settings.MaxBatchItems)
	if err != nil {
		return err
	}
	if len(items) == 1 && len(keywords.Extract(items[0])) == 0 {
		return ErrNoKeywords
	}
	if len(p.searcher.Providers()) == 0 {
		return image.ErrNoProviders
	}

	store, finish, err := p.openStore(ctx)
	if err != nil {
		return err
	}

	if len(items) > 1 {
		fmt.Fprintf(p.out, "Processing %d items for deck %q\n", len(items), p.settings.DeckName)
	}

	result, runErr := p.runDialog(ctx, items, store)
	finishErr := finish(runErr == nil && result.Created > 0)

	switch {
	case errors.Is(runErr, workflow.ErrAborted):
		fmt.Fprintln(p.out, "Cancelled, no cards were created")
		return nil
	case runErr != nil:
		return runErr
	}

	for _, f := range result.Failures {
		fmt.Fprintf(os.Stderr, "Warning: failed to create card for '%s': %v\n", f.Item.Text, f.Err)
	}
	return finishErr
}

// openStore returns the store cards go to and a function to call when the
// run is over. The function writes the export file when keep is true.
func (p *Processor) openStore(ctx context.Context) (workflow.Store, func(keep bool) error, error) {
	if !p.flags.Exporting() {
		if err := p.checkConnection(ctx); err != nil {
			return nil, nil, err
		}
		return p.anki, func(bool) error { return nil }, nil
	}

	format := anki.FormatAPKG
	if p.flags.Export == cli.ExportCSV {
		format = anki.FormatCSV
	}
	outPath := p.flags.Out
	if outPath == "" {
		outPath = fmt.Sprintf("%s.%s", internal.SanitizeFilename(p.settings.DeckName), format)
	}

	var (
		fetcher  anki.MediaFetcher
		mediaDir string
	)
	if format == anki.FormatAPKG {
		dir, err := os.MkdirTemp("", "flashpix-media-")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create media directory: %w", err)
		}
		mediaDir = dir
		fetcher = image.NewDownloader(image.DefaultDownloadOptions(dir))
	}

	exporter := anki.NewExporter(&anki.ExportOptions{
		OutputPath: outPath,
		Format:     format,
		DeckName:   p.settings.DeckName,
		ModelName:  p.settings.ModelName,
		FrontField: p.settings.FrontField,
	}, fetcher)

	finish := func(keep bool) error {
		if mediaDir != "" {
			defer os.RemoveAll(mediaDir)
		}
		if !keep {
			return nil
		}
		archived, err := archive.ArchiveExisting(outPath)
		if err != nil {
			return err
		}
		if archived != "" {
			fmt.Fprintf(p.out, "Previous export moved to: %s\n", archived)
		}
		if err := exporter.Close(); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		abs, _ := filepath.Abs(outPath)
		fmt.Fprintf(p.out, "Anki package created: %s (%d cards)\n", abs, exporter.Len())
		return nil
	}
	return exporter, finish, nil
}

func (p *Processor) checkConnection(ctx context.Context) error {
	if _, err := p.anki.Version(ctx); err != nil {
		return &ConnectionError{URL: p.settings.AnkiConnectURL, Err: err}
	}
	return nil
}

// keyInput is where the terminal dialog reads keys. Once stdin held the
// selection it is drained, so nil hands the prompts to the terminal.
func (p *Processor) keyInput() io.Reader {
	if p.flags.StdinUsed {
		return nil
	}
	return p.in
}

func (p *Processor) runDialog(ctx context.Context, items []string, store workflow.Store) (workflow.CommitResult, error) {
	opts := workflow.OptionsFromSettings(p.settings, p.suggester)

	switch p.flags.Mode() {
	case cli.UIAuto:
		ctrl := workflow.NewController(p.searcher, store, workflow.AutoPresenter{Out: p.out}, opts)
		return ctrl.Run(ctx, items)

	case cli.UIDesktop:
		var result workflow.CommitResult
		err := gui.Run(ctx, &gui.Config{DeckName: p.settings.DeckName}, func(ctx context.Context, presenter workflow.Presenter) error {
			ctrl := workflow.NewController(p.searcher, store, presenter, opts)
			var err error
			result, err = ctrl.Run(ctx, items)
			return err
		})
		if err == nil {
			fmt.Fprintln(p.out, result.Summary())
		}
		return result, err

	default:
		presenter := tui.New(p.keyInput(), p.out)
		ctrl := workflow.NewController(p.searcher, store, presenter, opts)
		return ctrl.Run(ctx, items)
	}
}
