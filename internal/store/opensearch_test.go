package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

const infoBody = `{"name":"test-node","cluster_name":"test-cluster","version":{"number":"2.11.0","distribution":"opensearch"}}`

// newMockStore spins up a fake OpenSearch answering / for the client ping and
// delegating everything else to handler.
func newMockStore(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*OpenSearchStore, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, infoBody)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	st, err := NewOpenSearchStore(Config{URL: srv.URL, RequestTimeout: 5 * time.Second})
	require.NoError(t, err)
	return st, srv
}

func TestOpenSearchGetCurrent(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/trucks/_doc/GI-58A", r.URL.Path)

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"_id":           "GI-58A",
			"_seq_no":       7,
			"_primary_term": 2,
			"found":         true,
			"_source": map[string]interface{}{
				"truck_id":            "GI-58A",
				"status":              "on_time",
				"batch_id":            "morning_baseline",
				"operational_time":    "09:00",
				"ingestion_timestamp": "2024-01-15T09:00:00Z",
				"data_version":        3,
			},
		})
	})

	rec, tok, err := st.GetCurrent(context.Background(), model.DomainFleet, "GI-58A")
	require.NoError(t, err)

	assert.Equal(t, int64(7), tok.SeqNo)
	assert.Equal(t, int64(2), tok.PrimaryTerm)
	assert.Equal(t, 3, rec.Envelope.DataVersion)
	assert.Equal(t, "morning_baseline", rec.Envelope.BatchID)
	assert.Equal(t, "on_time", rec.Fields["status"])
	_, leaked := rec.Fields["data_version"]
	assert.False(t, leaked)
}

func TestOpenSearchGetCurrentNotFound(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"found":false}`)
	})

	_, _, err := st.GetCurrent(context.Background(), model.DomainFleet, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestOpenSearchCreateUsesOpTypeCreate(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trucks/_doc/GI-58A", r.URL.Path)
		assert.Equal(t, "create", r.URL.Query().Get("op_type"))
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))

		body, _ := io.ReadAll(r.Body)
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &doc))
		assert.Equal(t, float64(1), doc["data_version"])

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created","_seq_no":0,"_primary_term":1}`)
	})

	rec := testRecord("GI-58A", "on_time", 1)
	require.NoError(t, st.Create(context.Background(), rec))
}

func TestOpenSearchCreateConflict(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":{"type":"version_conflict_engine_exception"}}`)
	})

	err := st.Create(context.Background(), testRecord("GI-58A", "on_time", 1))
	assert.ErrorIs(t, err, model.ErrVersionConflict)
}

func TestOpenSearchUpdateSendsConcurrencyToken(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("if_seq_no"))
		assert.Equal(t, "2", r.URL.Query().Get("if_primary_term"))

		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"result":"updated","_seq_no":8,"_primary_term":2}`)
	})

	err := st.Update(context.Background(), testRecord("GI-58A", "delayed", 2), Token{SeqNo: 7, PrimaryTerm: 2})
	require.NoError(t, err)
}

func TestOpenSearchUpdateConflict(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":{"type":"version_conflict_engine_exception"}}`)
	})

	err := st.Update(context.Background(), testRecord("GI-58A", "delayed", 2), Token{SeqNo: 1, PrimaryTerm: 1})
	assert.ErrorIs(t, err, model.ErrVersionConflict)
}

func TestOpenSearchServerErrorIsUnavailable(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":"unavailable"}`)
	})

	_, _, err := st.GetCurrent(context.Background(), model.DomainFleet, "GI-58A")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	err = st.Create(context.Background(), testRecord("GI-58A", "on_time", 1))
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestOpenSearchList(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/trucks/_search"))

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"hits": []map[string]interface{}{
					{"_id": "GI-58A", "_source": map[string]interface{}{"truck_id": "GI-58A", "status": "on_time", "data_version": 1}},
					{"_id": "MO-84A", "_source": map[string]interface{}{"truck_id": "MO-84A", "status": "delayed", "data_version": 2}},
				},
			},
		})
	})

	recs, err := st.List(context.Background(), model.DomainFleet)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "GI-58A", recs[0].Key)
	assert.Equal(t, 2, recs[1].Envelope.DataVersion)
}

func TestOpenSearchCount(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"count":6}`)
	})

	n, err := st.Count(context.Background(), model.DomainFleet)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestOpenSearchReplaceAll(t *testing.T) {
	var deleted, bulked bool
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "_delete_by_query"):
			deleted = true
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"deleted":6}`)
		case strings.Contains(r.URL.Path, "_bulk"):
			bulked = true
			body, _ := io.ReadAll(r.Body)
			lines := strings.Split(strings.TrimSpace(string(body)), "\n")
			items := make([]map[string]interface{}, 0, len(lines)/2)
			for i := 0; i+1 < len(lines); i += 2 {
				items = append(items, map[string]interface{}{
					"index": map[string]interface{}{"_id": fmt.Sprintf("%d", i/2), "result": "created", "status": 201},
				})
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{"took": 5, "errors": false, "items": items})
		default:
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"acknowledged":true}`)
		}
	})

	recs := []model.Record{
		testRecord("GI-58A", "on_time", 1),
		testRecord("MO-84A", "delayed", 1),
	}
	require.NoError(t, st.ReplaceAll(context.Background(), model.DomainFleet, recs))
	assert.True(t, deleted)
	assert.True(t, bulked)
}

func TestOpenSearchReplaceAllReportsBulkFailures(t *testing.T) {
	st, _ := newMockStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "_delete_by_query"):
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"deleted":0}`)
		case strings.Contains(r.URL.Path, "_bulk"):
			body, _ := io.ReadAll(r.Body)
			lines := strings.Split(strings.TrimSpace(string(body)), "\n")
			items := make([]map[string]interface{}, 0, len(lines)/2)
			for i := 0; i+1 < len(lines); i += 2 {
				items = append(items, map[string]interface{}{
					"index": map[string]interface{}{
						"_id":    fmt.Sprintf("%d", i/2),
						"status": 500,
						"error":  map[string]interface{}{"type": "io_exception", "reason": "shard unavailable"},
					},
				})
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{"took": 5, "errors": true, "items": items})
		default:
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"acknowledged":true}`)
		}
	})

	recs := []model.Record{
		testRecord("GI-58A", "on_time", 1),
		testRecord("MO-84A", "delayed", 1),
	}
	err := st.ReplaceAll(context.Background(), model.DomainFleet, recs)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "2 documents failed")
}

func TestOpenSearchIndexPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/" {
			io.WriteString(w, infoBody)
			return
		}
		assert.Equal(t, "/demo-trucks/_doc/GI-58A", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"found":false}`)
	}))
	defer srv.Close()

	st, err := NewOpenSearchStore(Config{URL: srv.URL, IndexPrefix: "demo"})
	require.NoError(t, err)

	_, _, err = st.GetCurrent(context.Background(), model.DomainFleet, "GI-58A")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
