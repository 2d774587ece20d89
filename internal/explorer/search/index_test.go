package search

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gartstein/visaexplorer/internal/explorer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeCluster is a minimal Elasticsearch stand-in holding one index.
type fakeCluster struct {
	mu       sync.Mutex
	docs     map[string]models.NameEntry
	pipeline string
	reject   map[string]bool
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{docs: map[string]models.NameEntry{}, reject: map[string]bool{}}
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/":
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"version": map[string]string{"number": "8.17.0"}})
	case strings.HasSuffix(path, "/_search"):
		var body struct {
			Query struct {
				Prefix map[string]string `json:"prefix"`
			} `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		prefix := body.Query.Prefix["name"]
		ids := make([]string, 0, len(f.docs))
		for id := range f.docs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		hits := []map[string]interface{}{}
		for _, id := range ids {
			if strings.HasPrefix(f.docs[id].Name, prefix) {
				hits = append(hits, map[string]interface{}{"_id": id, "_source": f.docs[id]})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"hits": map[string]interface{}{"hits": hits}})
	case strings.HasSuffix(path, "/_delete_by_query"):
		deleted := len(f.docs)
		f.docs = map[string]models.NameEntry{}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"deleted": deleted})
	case strings.HasSuffix(path, "/_bulk"):
		f.pipeline = r.URL.Query().Get("pipeline")
		items := []map[string]interface{}{}
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			var action map[string]map[string]string
			if err := json.Unmarshal(scanner.Bytes(), &action); err != nil {
				continue
			}
			id := action["index"]["_id"]
			if !scanner.Scan() {
				break
			}
			var doc models.NameEntry
			_ = json.Unmarshal(scanner.Bytes(), &doc)
			if f.reject[id] {
				items = append(items, map[string]interface{}{"index": map[string]interface{}{
					"_id": id, "status": 400,
					"error": map[string]string{"type": "mapper_parsing_exception", "reason": "bad document"},
				}})
				continue
			}
			f.docs[id] = doc
			items = append(items, map[string]interface{}{"index": map[string]interface{}{"_id": id, "status": 201}})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"errors": false, "items": items})
	case strings.HasSuffix(path, "/_refresh"):
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(path, "/_count"):
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"count": len(f.docs)})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

func newTestIndex(t *testing.T, cluster *fakeCluster) *Index {
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	idx, err := NewIndex(Config{URL: srv.URL, Index: "search-company", Pipeline: "ent-search-generic-ingestion"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return idx
}

func load(t *testing.T, idx *Index, entries []models.NameEntry) (int64, int64) {
	ctx := context.Background()
	loader, err := idx.NewLoader()
	require.NoError(t, err)
	require.NoError(t, loader.Add(ctx, entries))
	indexed, failed, err := loader.Close(ctx)
	require.NoError(t, err)
	return indexed, failed
}

func TestIndex_LoadAndPrefix(t *testing.T) {
	cluster := newFakeCluster()
	idx := newTestIndex(t, cluster)
	ctx := context.Background()

	require.NoError(t, idx.Ping(ctx))

	indexed, failed := load(t, idx, []models.NameEntry{
		{ID: "E1", Name: "Acme Corp"},
		{ID: "E2", Name: "Acme Labs"},
		{ID: "E3", Name: "Beta Bank"},
	})
	assert.Equal(t, int64(3), indexed)
	assert.Zero(t, failed)
	assert.Equal(t, "ent-search-generic-ingestion", cluster.pipeline)

	require.NoError(t, idx.Refresh(ctx))

	entries, err := idx.Prefix(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, []models.NameEntry{{ID: "E1", Name: "Acme Corp"}, {ID: "E2", Name: "Acme Labs"}}, entries)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestIndex_ClearAndReloadKeepsCount(t *testing.T) {
	cluster := newFakeCluster()
	idx := newTestIndex(t, cluster)
	ctx := context.Background()
	entries := []models.NameEntry{{ID: "E1", Name: "Acme Corp"}, {ID: "E2", Name: "Acme Labs"}}

	load(t, idx, entries)
	deleted, err := idx.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	load(t, idx, entries)
	load(t, idx, entries)
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "documents are keyed by employer id")
}

func TestIndex_LoadReportsFailures(t *testing.T) {
	cluster := newFakeCluster()
	cluster.reject["E2"] = true
	idx := newTestIndex(t, cluster)

	indexed, failed := load(t, idx, []models.NameEntry{{ID: "E1", Name: "Acme Corp"}, {ID: "E2", Name: "Acme Labs"}})
	assert.Equal(t, int64(1), indexed)
	assert.Equal(t, int64(1), failed)
}

func TestIndex_LoadFeed(t *testing.T) {
	cluster := newFakeCluster()
	idx := newTestIndex(t, cluster)
	ctx := context.Background()

	batches := [][]models.NameEntry{
		{{ID: "E1", Name: "Acme Corp"}, {ID: "E2", Name: "Acme Labs"}},
		{{ID: "E3", Name: "Beta Bank"}},
	}
	indexed, failed, err := idx.Load(ctx, func(add func([]models.NameEntry) error) error {
		for _, b := range batches {
			if err := add(b); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), indexed)
	assert.Zero(t, failed)

	t.Run("feed error is returned", func(t *testing.T) {
		_, _, err := idx.Load(ctx, func(func([]models.NameEntry) error) error {
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestIndex_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	idx, err := NewIndex(Config{URL: srv.URL, Index: "search-company"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = idx.Prefix(context.Background(), "Ac")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
