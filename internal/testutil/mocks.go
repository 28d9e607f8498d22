package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"codeberg.org/snonux/flashpix/internal/anki"
	"codeberg.org/snonux/flashpix/internal/image"
)

// SearchResponse is one scripted answer of a MockSearcher
type SearchResponse struct {
	Candidates []image.Candidate
	Err        error
}

// MockSearcher answers searches from per-term scripts. Each call consumes
// the next response for its term; the last response repeats. Unknown
// terms find nothing.
type MockSearcher struct {
	mu      sync.Mutex
	Scripts map[string][]SearchResponse
	Calls   []string
	// OnSearch, when set, runs before the scripted answer is returned
	OnSearch func(term string)
}

// NewMockSearcher creates a searcher without scripts
func NewMockSearcher() *MockSearcher {
	return &MockSearcher{Scripts: make(map[string][]SearchResponse)}
}

// Script appends responses for term and returns the searcher for chaining
func (m *MockSearcher) Script(term string, responses ...SearchResponse) *MockSearcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scripts[term] = append(m.Scripts[term], responses...)
	return m
}

// Search implements the workflow searcher
func (m *MockSearcher) Search(ctx context.Context, term string, max int) ([]image.Candidate, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, term)
	script := m.Scripts[term]
	var resp SearchResponse
	if len(script) > 0 {
		resp = script[0]
		if len(script) > 1 {
			m.Scripts[term] = script[1:]
		}
	}
	hook := m.OnSearch
	m.mu.Unlock()

	if hook != nil {
		hook(term)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	if len(resp.Candidates) > max {
		return resp.Candidates[:max], nil
	}
	return resp.Candidates, nil
}

// CallCount returns how often term was searched
func (m *MockSearcher) CallCount(term string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == term {
			n++
		}
	}
	return n
}

// TotalCalls returns the number of searches made
func (m *MockSearcher) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockStore records created notes. Errors are keyed by the note's front.
type MockStore struct {
	mu     sync.Mutex
	Errors map[string]error
	Notes  []anki.Note
	Calls  []string
}

// NewMockStore creates a store that accepts every note
func NewMockStore() *MockStore {
	return &MockStore{Errors: make(map[string]error)}
}

// Create implements anki.Store
func (m *MockStore) Create(ctx context.Context, note anki.Note) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	front := note.Front()
	m.Calls = append(m.Calls, front)
	if err, ok := m.Errors[front]; ok {
		return 0, err
	}
	m.Notes = append(m.Notes, note)
	return int64(len(m.Notes)), nil
}

// Fronts returns the fronts of the stored notes in order
func (m *MockStore) Fronts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Notes))
	for _, n := range m.Notes {
		out = append(out, n.Front())
	}
	return out
}

// AnkiConnectError makes the fake server answer an action with an error string
type AnkiConnectError string

// AnkiConnectServer is a fake AnkiConnect endpoint
type AnkiConnectServer struct {
	*httptest.Server

	mu      sync.Mutex
	replies map[string]interface{}
	actions []string
	params  []json.RawMessage
}

// NewAnkiConnectServer starts a fake AnkiConnect. replies maps an action to
// its result, or to an AnkiConnectError. Unknown actions return an error.
// The server is closed when the test ends.
func NewAnkiConnectServer(t *testing.T, replies map[string]interface{}) *AnkiConnectServer {
	t.Helper()

	s := &AnkiConnectServer{replies: replies}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *AnkiConnectServer) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string          `json:"action"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.actions = append(s.actions, req.Action)
	s.params = append(s.params, req.Params)
	reply, ok := s.replies[req.Action]
	s.mu.Unlock()

	resp := map[string]interface{}{"result": nil, "error": nil}
	switch v := reply.(type) {
	case AnkiConnectError:
		resp["error"] = string(v)
	default:
		if ok {
			resp["result"] = v
		} else {
			resp["error"] = fmt.Sprintf("unsupported action: %s", req.Action)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SetReply changes the answer for action
func (s *AnkiConnectServer) SetReply(action string, reply interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[action] = reply
}

// Actions returns the actions received so far
func (s *AnkiConnectServer) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.actions...)
}

// Count returns how often action was received
func (s *AnkiConnectServer) Count(action string) int {
	n := 0
	for _, a := range s.Actions() {
		if a == action {
			n++
		}
	}
	return n
}

// ParamsOf returns the raw params of every call to action, joined by newlines
func (s *AnkiConnectServer) ParamsOf(action string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for i, a := range s.actions {
		if a == action {
			out = append(out, string(s.params[i]))
		}
	}
	return strings.Join(out, "\n")
}
