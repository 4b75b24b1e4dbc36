package graphdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
)

// fakeStore serves one data model (id 7) with n records.
type fakeStore struct {
	mu       sync.Mutex
	records  []model.Record
	created  []model.Record
	requests int
}

func newFakeStore(n int) *fakeStore {
	s := &fakeStore{}
	for i := range n {
		s.records = append(s.records, model.Record{ID: fmt.Sprintf("r%d", i+1), Data: map[string]any{"n": float64(i + 1)}})
	}

	return s
}

func (s *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("GET /datamodels/{id}/schema", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown data model"})
			return
		}

		writeJSON(w, http.StatusOK, model.Schema{ID: 70, Name: "books"})
	})

	mux.HandleFunc("GET /datamodels/{id}/records", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()

		if r.PathValue("id") != "7" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
			return
		}

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := min(offset+limit, len(s.records))

		writeJSON(w, http.StatusOK, recordPage{Records: s.records[min(offset, end):end]})
	})

	mux.HandleFunc("GET /datamodels/{id}/records/{record}", func(w http.ResponseWriter, r *http.Request) {
		for _, rec := range s.records {
			if rec.ID == r.PathValue("record") {
				writeJSON(w, http.StatusOK, rec)
				return
			}
		}

		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such record"})
	})

	mux.HandleFunc("POST /datamodels/{id}/records", func(w http.ResponseWriter, r *http.Request) {
		var page recordPage
		if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		s.mu.Lock()
		s.created = append(s.created, page.Records...)
		s.mu.Unlock()

		writeJSON(w, http.StatusCreated, map[string]int{"created": len(page.Records)})
	})

	return mux
}

func newClient(t *testing.T, s *fakeStore, pageSize int) *Client {
	t.Helper()

	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, PageSize: pageSize})
	require.NoError(t, err)

	return c
}

func collect(t *testing.T, c *Client, dm model.ID, ids []string, limit int) ([]string, error) {
	t.Helper()

	var out []string

	for r, err := range c.GetObjects(context.Background(), dm, ids, limit) {
		if err != nil {
			return out, err
		}

		out = append(out, r.ID)
	}

	return out, nil
}

func TestClient_GetObjectsPages(t *testing.T) {
	s := newFakeStore(7)
	c := newClient(t, s, 3)

	ids, err := collect(t, c, 7, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7"}, ids)
	assert.Equal(t, 3, s.requests)

	ids, err = collect(t, c, 7, nil, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, ids)
}

func TestClient_GetSelectedObjects(t *testing.T) {
	c := newClient(t, newFakeStore(5), 10)

	ids, err := collect(t, c, 7, []string{"r4", "missing", "r2"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"r4", "r2"}, ids)
}

func TestClient_ErrorsCarryServerMessage(t *testing.T) {
	c := newClient(t, newFakeStore(1), 10)

	_, err := collect(t, c, 8, nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestClient_GetSchema(t *testing.T) {
	c := newClient(t, newFakeStore(0), 10)

	s, err := c.GetSchema(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "books", s.Name)

	_, err = c.GetSchema(context.Background(), 9)

	var unresolved *domain.UnresolvedReferenceError
	assert.True(t, errors.As(err, &unresolved))
}

func TestClient_CreateObjectsInPages(t *testing.T) {
	s := newFakeStore(0)
	c := newClient(t, s, 2)

	records := []model.Record{
		{ID: "a", Data: map[string]any{"x": "1"}},
		{ID: "b", Data: map[string]any{"x": "2"}},
		{ID: "c", Data: map[string]any{"x": "3"}},
	}

	require.NoError(t, c.CreateObjects(context.Background(), 7, records))
	assert.Equal(t, records, s.created)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
