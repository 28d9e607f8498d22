package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// DefaultURL is where the AnkiConnect add-on listens by default
	DefaultURL = "http://localhost:8765"

	apiVersion     = 6
	connectTimeout = 30 * time.Second
)

type request struct {
	Action  string      `json:"action"`
	Version int         `json:"version"`
	Params  interface{} `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// Client is an AnkiConnect JSON-RPC client
type Client struct {
	url        string
	httpClient *http.Client

	mu    sync.Mutex
	decks map[string]bool // decks known to exist
}

// NewClient creates a client for the AnkiConnect endpoint at url
func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: connectTimeout,
		},
		decks: make(map[string]bool),
	}
}

// URL returns the endpoint the client talks to
func (c *Client) URL() string {
	return c.url
}

// invoke performs one action. A non-nil result must receive a non-null value.
func (c *Client) invoke(ctx context.Context, action string, params, result interface{}) error {
	if params == nil {
		params = struct{}{}
	}

	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("ankiconnect request", "action", action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isConnectionFailure(err) {
			return fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return &APIError{Action: action, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))}
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}

	if r.Error != nil && *r.Error != "" {
		return &APIError{Action: action, Message: *r.Error}
	}

	if result == nil {
		return nil
	}
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return fmt.Errorf("%s: %w", action, ErrNullResult)
	}
	if err := json.Unmarshal(r.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", action, err)
	}
	return nil
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// Version returns the AnkiConnect API version
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	if err := c.invoke(ctx, "version", nil, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// Ping checks that AnkiConnect is reachable and answering
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Version(ctx)
	return err
}

// DeckNames lists all decks
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "deckNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// CreateDeck creates a deck and returns its ID. Creating an existing deck is a no-op.
func (c *Client) CreateDeck(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := c.invoke(ctx, "createDeck", map[string]string{"deck": name}, &id); err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.decks[name] = true
	c.mu.Unlock()
	return id, nil
}

// EnsureDeck creates name unless it exists. Known decks are remembered.
func (c *Client) EnsureDeck(ctx context.Context, name string) error {
	c.mu.Lock()
	known := c.decks[name]
	c.mu.Unlock()
	if known {
		return nil
	}

	names, err := c.DeckNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list decks: %w", err)
	}
	for _, n := range names {
		if n == name {
			c.mu.Lock()
			c.decks[name] = true
			c.mu.Unlock()
			return nil
		}
	}

	slog.Info("creating deck", "deck", name)
	if _, err := c.CreateDeck(ctx, name); err != nil {
		return fmt.Errorf("failed to create deck: %w", err)
	}
	return nil
}

// AddNote adds a single note and returns its ID. Duplicates are reported
// as *DuplicateError.
func (c *Client) AddNote(ctx context.Context, note Note) (int64, error) {
	var id int64
	err := c.invoke(ctx, "addNote", map[string]interface{}{"note": note}, &id)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && isDuplicateMessage(apiErr.Message) {
			return 0, &DuplicateError{Front: note.Front(), Cause: err}
		}
		return 0, err
	}
	return id, nil
}

// FindNotes returns the IDs of notes matching an Anki search query
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	if err := c.invoke(ctx, "findNotes", map[string]string{"query": query}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ModelNames lists the note types
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "modelNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ModelFieldNames lists the fields of a note type in order
func (c *Client) ModelFieldNames(ctx context.Context, model string) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "modelFieldNames", map[string]string{"modelName": model}, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Create makes sure the deck exists and adds note. When the note is a
// duplicate the IDs of the existing notes are looked up, best effort.
func (c *Client) Create(ctx context.Context, note Note) (int64, error) {
	if err := c.EnsureDeck(ctx, note.DeckName); err != nil {
		return 0, err
	}

	id, err := c.AddNote(ctx, note)
	var dup *DuplicateError
	if errors.As(err, &dup) && note.FrontField != "" {
		if ids, findErr := c.FindNotes(ctx, DuplicateQuery(note)); findErr == nil {
			dup.Existing = ids
		} else {
			slog.Debug("duplicate lookup failed", "error", findErr)
		}
	}
	return id, err
}

// DuplicateQuery builds the Anki search matching note's front in its deck
func DuplicateQuery(note Note) string {
	return fmt.Sprintf(`deck:"%s" "%s:%s"`, escapeQuery(note.DeckName), escapeQuery(note.FrontField), escapeQuery(note.Front()))
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, `*`, `\*`, `_`, `\_`).Replace(s)
}
