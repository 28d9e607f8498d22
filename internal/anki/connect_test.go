package anki

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// fakeAnki answers AnkiConnect actions from a table and records every call
type fakeAnki struct {
	mu      sync.Mutex
	calls   []string
	params  map[string]json.RawMessage
	replies map[string]string // action -> raw JSON response
}

func newFakeAnki(replies map[string]string) (*fakeAnki, *httptest.Server) {
	f := &fakeAnki{replies: replies, params: make(map[string]json.RawMessage)}
	return f, httptest.NewServer(http.HandlerFunc(f.serve))
}

func (f *fakeAnki) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action  string          `json:"action"`
		Version int             `json:"version"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Version != 6 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, req.Action)
	f.params[req.Action] = req.Params
	reply, ok := f.replies[req.Action]
	f.mu.Unlock()

	if !ok {
		reply = `{"result":null,"error":"unsupported action"}`
	}
	w.Write([]byte(reply))
}

func (f *fakeAnki) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestClientVersionAndPing(t *testing.T) {
	_, srv := newFakeAnki(map[string]string{"version": `{"result":6,"error":null}`})
	defer srv.Close()

	c := NewClient(srv.URL)
	v, err := c.Version(context.Background())
	if err != nil || v != 6 {
		t.Errorf("Version() = %d, %v; want 6, nil", v, err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(url).Ping(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Ping() error = %v, want ErrUnreachable", err)
	}
}

func TestClientCreate(t *testing.T) {
	fake, srv := newFakeAnki(map[string]string{
		"deckNames":  `{"result":["Default"],"error":null}`,
		"createDeck": `{"result":1234,"error":null}`,
		"addNote":    `{"result":5678,"error":null}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	note := Note{
		DeckName:   "Biology",
		ModelName:  "Basic",
		Fields:     map[string]string{"Front": "photosynthesis", "Back": "Images for: photosynthesis"},
		Tags:       []string{"flashpix"},
		Picture:    []Picture{{URL: "https://p/1.jpg", Filename: "p1.jpg", Fields: []string{"Back"}}},
		FrontField: "Front",
	}

	id, err := c.Create(context.Background(), note)
	if err != nil || id != 5678 {
		t.Fatalf("Create() = %d, %v; want 5678, nil", id, err)
	}

	want := []string{"deckNames", "createDeck", "addNote"}
	if got := fake.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}

	var params struct {
		Note map[string]interface{} `json:"note"`
	}
	if err := json.Unmarshal(fake.params["addNote"], &params); err != nil {
		t.Fatalf("addNote params: %v", err)
	}
	if params.Note["deckName"] != "Biology" {
		t.Errorf("deckName = %v", params.Note["deckName"])
	}
	if _, ok := params.Note["FrontField"]; ok {
		t.Error("FrontField must not be sent to AnkiConnect")
	}
	if pics, _ := params.Note["picture"].([]interface{}); len(pics) != 1 {
		t.Errorf("picture = %v, want one entry", params.Note["picture"])
	}

	// The deck is remembered, the second note goes straight to addNote
	if _, err := c.Create(context.Background(), note); err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if got := fake.Calls(); len(got) != 4 || got[3] != "addNote" {
		t.Errorf("calls after second create = %v", got)
	}
}

func TestClientCreateDuplicate(t *testing.T) {
	fake, srv := newFakeAnki(map[string]string{
		"deckNames": `{"result":["Biology"],"error":null}`,
		"addNote":   `{"result":null,"error":"cannot create note because it is a duplicate"}`,
		"findNotes": `{"result":[42],"error":null}`,
	})
	defer srv.Close()

	note := Note{
		DeckName:   "Biology",
		ModelName:  "Basic",
		Fields:     map[string]string{"Front": "cell"},
		FrontField: "Front",
	}
	_, err := NewClient(srv.URL).Create(context.Background(), note)

	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("Create() error = %v, want *DuplicateError", err)
	}
	if !IsDuplicate(err) {
		t.Error("IsDuplicate() = false")
	}
	if dup.Front != "cell" || !reflect.DeepEqual(dup.Existing, []int64{42}) {
		t.Errorf("duplicate = %+v", dup)
	}

	var q struct {
		Query string `json:"query"`
	}
	json.Unmarshal(fake.params["findNotes"], &q)
	if q.Query != `deck:"Biology" "Front:cell"` {
		t.Errorf("findNotes query = %q", q.Query)
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(error) bool
	}{
		{"null result", `{"result":null,"error":null}`, func(err error) bool { return errors.Is(err, ErrNullResult) }},
		{"api error", `{"result":null,"error":"model was not found: Cloze2"}`, func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.Action == "addNote" && !IsDuplicate(err)
		}},
		{"older duplicate wording", `{"result":null,"error":"Note already exists"}`, IsDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeAnki(map[string]string{"addNote": tt.reply})
			defer srv.Close()

			_, err := NewClient(srv.URL).AddNote(context.Background(), Note{DeckName: "d"})
			if err == nil || !tt.check(err) {
				t.Errorf("AddNote() error = %v", err)
			}
		})
	}
}

func TestClientModels(t *testing.T) {
	fake, srv := newFakeAnki(map[string]string{
		"modelNames":      `{"result":["Basic","Cloze"],"error":null}`,
		"modelFieldNames": `{"result":["Front","Back"],"error":null}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	models, err := c.ModelNames(context.Background())
	if err != nil || !reflect.DeepEqual(models, []string{"Basic", "Cloze"}) {
		t.Errorf("ModelNames() = %v, %v", models, err)
	}
	fields, err := c.ModelFieldNames(context.Background(), "Basic")
	if err != nil || !reflect.DeepEqual(fields, []string{"Front", "Back"}) {
		t.Errorf("ModelFieldNames() = %v, %v", fields, err)
	}
	if !strings.Contains(string(fake.params["modelFieldNames"]), `"modelName":"Basic"`) {
		t.Errorf("modelFieldNames params = %s", fake.params["modelFieldNames"])
	}
}

func TestDuplicateQueryEscapes(t *testing.T) {
	note := Note{DeckName: `My "Deck"`, Fields: map[string]string{"Front": "a_b*"}, FrontField: "Front"}
	want := `deck:"My \"Deck\"" "Front:a\_b\*"`
	if got := DuplicateQuery(note); got != want {
		t.Errorf("DuplicateQuery() = %q, want %q", got, want)
	}
}
