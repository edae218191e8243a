package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stevemurr/slotdb/docdb"
	"github.com/stevemurr/slotdb/handler"
	"github.com/stevemurr/slotdb/store"
)

func setup() (*httptest.Server, *docdb.Collection) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := docdb.Open(context.Background(), store.NewMemoryStore(), "db1", docdb.WithLogger(logger))
	h := handler.New(db, logger)
	ts := httptest.NewServer(h)
	return ts, db
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func decodeJSON(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func decodeJSONArray(t *testing.T, r io.Reader) []any {
	t.Helper()
	var v []any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(mustJSON(t, body))
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRootAndHealth(t *testing.T) {
	ts, _ := setup()
	defer ts.Close()

	resp := do(t, "GET", ts.URL+"/", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON(t, resp.Body)
	if body["status"] != "ok" || body["ref"] != "db1" {
		t.Fatalf("unexpected root body: %v", body)
	}

	resp = do(t, "GET", ts.URL+"/health", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, "GET", ts.URL+"/nope", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRecordsCRUD(t *testing.T) {
	ts, db := setup()
	defer ts.Close()

	// POST /records?path=users
	resp := do(t, "POST", ts.URL+"/records?path=users", map[string]any{"name": "ada"})
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON(t, resp.Body)
	id, _ := created["_id"].(string)
	if len(id) != 36 {
		t.Fatalf("expected generated 36-char id, got %q", id)
	}

	// GET /records/{id}
	resp = do(t, "GET", ts.URL+"/records/"+id+"?path=users", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := decodeJSON(t, resp.Body); got["name"] != "ada" {
		t.Fatalf("expected name=ada, got %v", got["name"])
	}

	// Not visible at the root.
	resp = do(t, "GET", ts.URL+"/records/"+id, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 at root, got %d", resp.StatusCode)
	}

	// PATCH /records/{id}
	resp = do(t, "PATCH", ts.URL+"/records/"+id+"?path=users", map[string]any{"name": "grace"})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decodeJSON(t, resp.Body)
	if updated["name"] != "grace" || updated["_createdAt"] != created["_createdAt"] {
		t.Fatalf("unexpected update result: %v", updated)
	}

	// GET /tree shows the nesting.
	resp = do(t, "GET", ts.URL+"/tree", nil)
	tree := decodeJSON(t, resp.Body)
	users, ok := tree["users"].(map[string]any)
	if !ok || users[id] == nil {
		t.Fatalf("expected users/%s in tree, got %v", id, tree)
	}
	if db.Child("users").Find(context.Background(), id) == nil {
		t.Fatal("expected record in the store")
	}

	// DELETE /records/{id}
	resp = do(t, "DELETE", ts.URL+"/records/"+id+"?path=users", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp = do(t, "DELETE", ts.URL+"/records/"+id+"?path=users", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestRecordErrors(t *testing.T) {
	ts, _ := setup()
	defer ts.Close()

	resp := do(t, "PATCH", ts.URL+"/records/ghost", map[string]any{"a": 1})
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for missing record, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest("POST", ts.URL+"/records", bytes.NewReader([]byte("{bad")))
	r, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Body.Close()
	if r.StatusCode != 400 {
		t.Fatalf("expected 400 for invalid JSON, got %d", r.StatusCode)
	}

	resp = do(t, "POST", ts.URL+"/records", nil)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for empty body, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest("POST", ts.URL+"/records", bytes.NewReader([]byte("null")))
	r2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Body.Close()
	if r2.StatusCode != 400 {
		t.Fatalf("expected 400 for null data, got %d", r2.StatusCode)
	}
}

func TestBatchEndpoints(t *testing.T) {
	ts, _ := setup()
	defer ts.Close()

	resp := do(t, "POST", ts.URL+"/records/batch?path=tasks", []any{
		map[string]any{"_id": "t1", "title": "a"},
		map[string]any{"_id": "t2", "title": "b"},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if n := len(decodeJSONArray(t, resp.Body)); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}

	resp = do(t, "PATCH", ts.URL+"/records?path=tasks", []any{
		map[string]any{"id": "t1", "updates": map[string]any{"done": true}},
		map[string]any{"id": "t2", "updates": map[string]any{"done": false}},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	recs := decodeJSONArray(t, resp.Body)
	if recs[0].(map[string]any)["done"] != true {
		t.Fatalf("expected t1 done, got %v", recs[0])
	}

	resp = do(t, "PATCH", ts.URL+"/records?path=tasks", []any{
		map[string]any{"id": "ghost", "updates": map[string]any{}},
	})
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp = do(t, "DELETE", ts.URL+"/records?path=tasks", []string{"t1", "nope", "t2"})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var results []bool
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(results, []bool{true, false, true}) {
		t.Fatalf("unexpected results: %v", results)
	}
}
