package anki

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ExportFormat selects the file written by an Exporter
type ExportFormat string

const (
	FormatAPKG ExportFormat = "apkg"
	FormatCSV  ExportFormat = "csv"
)

// ErrEmptyExport is returned by Close when no note was collected
var ErrEmptyExport = errors.New("no notes to export")

// MediaFetcher downloads a picture so it can be packaged with the notes
type MediaFetcher interface {
	Fetch(ctx context.Context, url, fileName string) (string, error)
}

// ExportOptions configures the export
type ExportOptions struct {
	OutputPath string       // File to write
	Format     ExportFormat // apkg or csv
	DeckName   string       // Deck inside the package
	ModelName  string       // Note type name inside the package
	FrontField string       // Field shown on the question side
}

type exportNote struct {
	id     int64
	front  string
	fields map[string]string
	tags   []string
}

// Exporter is an offline Store. It collects notes in memory and writes an
// import file on Close.
type Exporter struct {
	options *ExportOptions
	fetcher MediaFetcher

	mu         sync.Mutex
	notes      []exportNote
	fronts     map[string]bool
	fieldOrder []string
	media      map[string]string // file name -> local path
	closed     bool
}

// NewExporter creates an exporter. fetcher may be nil for CSV exports
// that reference pictures by URL.
func NewExporter(options *ExportOptions, fetcher MediaFetcher) *Exporter {
	return &Exporter{
		options: options,
		fetcher: fetcher,
		fronts:  make(map[string]bool),
		media:   make(map[string]string),
	}
}

// Create collects note. A note whose front was already collected is a duplicate.
func (e *Exporter) Create(ctx context.Context, note Note) (int64, error) {
	front := note.Fields[e.options.FrontField]
	key := strings.ToLower(strings.TrimSpace(front))

	e.mu.Lock()
	closed, dup := e.closed, e.fronts[key]
	e.mu.Unlock()
	if closed {
		return 0, errors.New("exporter already closed")
	}
	if dup {
		return 0, &DuplicateError{Front: front}
	}

	fields := make(map[string]string, len(note.Fields))
	for k, v := range note.Fields {
		fields[k] = v
	}

	for _, pic := range note.Picture {
		ref := pic.URL
		if e.fetcher != nil && e.options.Format == FormatAPKG {
			path, err := e.fetcher.Fetch(ctx, pic.URL, pic.Filename)
			if err != nil {
				return 0, fmt.Errorf("failed to fetch picture: %w", err)
			}
			ref = filepath.Base(path)
			e.mu.Lock()
			e.media[ref] = path
			e.mu.Unlock()
		}
		for _, f := range pic.Fields {
			fields[f] += fmt.Sprintf(`<img src="%s">`, ref)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	id := time.Now().UnixMilli() + int64(len(e.notes))*3
	e.notes = append(e.notes, exportNote{
		id:     id,
		front:  front,
		fields: fields,
		tags:   append([]string(nil), note.Tags...),
	})
	e.fronts[key] = true
	e.trackFields(note.Fields)
	return id, nil
}

// trackFields keeps a stable field order: front first, then in order of appearance
func (e *Exporter) trackFields(fields map[string]string) {
	if len(e.fieldOrder) == 0 {
		e.fieldOrder = append(e.fieldOrder, e.options.FrontField)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		known := false
		for _, f := range e.fieldOrder {
			if f == name {
				known = true
				break
			}
		}
		if !known {
			e.fieldOrder = append(e.fieldOrder, name)
		}
	}
}

// Len returns the number of collected notes
func (e *Exporter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.notes)
}

// Close writes the import file. It may only be called once.
func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	if len(e.notes) == 0 {
		return ErrEmptyExport
	}

	if dir := filepath.Dir(e.options.OutputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	switch e.options.Format {
	case FormatCSV:
		return e.writeCSV()
	case FormatAPKG, "":
		pkg := &apkgWriter{
			deckName:  e.options.DeckName,
			modelName: e.options.ModelName,
			fields:    e.fieldOrder,
			notes:     e.notes,
			media:     e.media,
		}
		return pkg.write(e.options.OutputPath)
	default:
		return fmt.Errorf("unknown export format %q", e.options.Format)
	}
}

func (e *Exporter) writeCSV() error {
	file, err := os.Create(e.options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	headers := append(append([]string(nil), e.fieldOrder...), "Tags")
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, n := range e.notes {
		record := make([]string, 0, len(headers))
		for _, f := range e.fieldOrder {
			record = append(record, n.fields[f])
		}
		record = append(record, strings.Join(n.tags, " "))
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write note: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
