package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

// Config holds OpenSearch connection settings.
type Config struct {
	URL            string        `mapstructure:"url"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Insecure       bool          `mapstructure:"insecure"`
	IndexPrefix    string        `mapstructure:"index_prefix"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// OpenSearchStore persists records in one index per domain, document id equal
// to the natural key. Per-record writes are conditioned on seq_no/primary_term
// so concurrent upserts to the same key surface as conflicts, not lost writes.
type OpenSearchStore struct {
	client  *opensearch.Client
	prefix  string
	timeout time.Duration
}

// NewOpenSearchStore connects and pings the cluster.
func NewOpenSearchStore(cfg Config) (*OpenSearchStore, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &OpenSearchStore{client: client, prefix: cfg.IndexPrefix, timeout: timeout}, nil
}

func (s *OpenSearchStore) indexName(domain model.DomainType) string {
	if s.prefix == "" {
		return domain.Index()
	}
	return s.prefix + "-" + domain.Index()
}

// Initialize creates the per-domain indices with their mappings if missing.
func (s *OpenSearchStore) Initialize(ctx context.Context) error {
	for _, domain := range model.AllDomains {
		if err := s.ensureIndex(ctx, domain); err != nil {
			return fmt.Errorf("ensure index for %s: %w", domain, err)
		}
	}
	return nil
}

func (s *OpenSearchStore) ensureIndex(ctx context.Context, domain model.DomainType) error {
	idx := s.indexName(domain)

	res, err := s.client.Indices.Exists(
		[]string{idx},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(indexMapping(domain))
	if err != nil {
		return err
	}

	createRes, err := s.client.Indices.Create(
		idx,
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		raw, _ := io.ReadAll(createRes.Body)
		return fmt.Errorf("create index %s: %s - %s", idx, createRes.Status(), string(raw))
	}
	return nil
}

func indexMapping(domain model.DomainType) map[string]interface{} {
	props := map[string]interface{}{
		domain.KeyField():             map[string]interface{}{"type": "keyword"},
		"status":                      map[string]interface{}{"type": "keyword"},
		model.FieldBatchID:            map[string]interface{}{"type": "keyword"},
		model.FieldOperationalTime:    map[string]interface{}{"type": "keyword"},
		model.FieldIngestionTimestamp: map[string]interface{}{"type": "date"},
		model.FieldDataVersion:        map[string]interface{}{"type": "integer"},
	}
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"dynamic":    true,
			"properties": props,
		},
	}
}

func (s *OpenSearchStore) GetCurrent(ctx context.Context, domain model.DomainType, key string) (*model.Record, Token, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Get(
		s.indexName(domain),
		key,
		s.client.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, Token{}, fmt.Errorf("%w: get %s/%s: %v", model.ErrStoreUnavailable, domain, key, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, Token{}, model.ErrNotFound
	}
	if res.IsError() {
		return nil, Token{}, fmt.Errorf("%w: get %s/%s: %s", model.ErrStoreUnavailable, domain, key, res.Status())
	}

	var got struct {
		SeqNo       int64                  `json:"_seq_no"`
		PrimaryTerm int64                  `json:"_primary_term"`
		Source      map[string]interface{} `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		return nil, Token{}, fmt.Errorf("decode get response: %w", err)
	}

	rec := decodeBody(domain, key, got.Source)
	return &rec, Token{SeqNo: got.SeqNo, PrimaryTerm: got.PrimaryTerm}, nil
}

func (s *OpenSearchStore) Create(ctx context.Context, rec model.Record) error {
	body, err := json.Marshal(encodeBody(rec))
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Index(
		s.indexName(rec.Domain),
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(rec.Key),
		s.client.Index.WithOpType("create"),
		s.client.Index.WithRefresh("true"),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: create %s/%s: %v", model.ErrStoreUnavailable, rec.Domain, rec.Key, err)
	}
	defer res.Body.Close()

	return s.checkWrite(res.StatusCode, res, rec)
}

func (s *OpenSearchStore) Update(ctx context.Context, rec model.Record, tok Token) error {
	body, err := json.Marshal(encodeBody(rec))
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Index(
		s.indexName(rec.Domain),
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(rec.Key),
		s.client.Index.WithIfSeqNo(int(tok.SeqNo)),
		s.client.Index.WithIfPrimaryTerm(int(tok.PrimaryTerm)),
		s.client.Index.WithRefresh("true"),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: update %s/%s: %v", model.ErrStoreUnavailable, rec.Domain, rec.Key, err)
	}
	defer res.Body.Close()

	return s.checkWrite(res.StatusCode, res, rec)
}

func (s *OpenSearchStore) checkWrite(status int, res interface{ IsError() bool }, rec model.Record) error {
	if status == http.StatusConflict {
		return fmt.Errorf("write %s/%s: %w", rec.Domain, rec.Key, model.ErrVersionConflict)
	}
	if res.IsError() {
		return fmt.Errorf("%w: write %s/%s: status %d", model.ErrStoreUnavailable, rec.Domain, rec.Key, status)
	}
	return nil
}

// ReplaceAll clears the domain index and bulk-writes the replacement set. Used
// only by the reset path, which already holds the exclusive reset lock.
func (s *OpenSearchStore) ReplaceAll(ctx context.Context, domain model.DomainType, recs []model.Record) error {
	idx := s.indexName(domain)

	query := []byte(`{"query":{"match_all":{}}}`)
	delRes, err := s.client.DeleteByQuery(
		[]string{idx},
		bytes.NewReader(query),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("%w: clear %s: %v", model.ErrStoreUnavailable, domain, err)
	}
	delRes.Body.Close()
	if delRes.IsError() && delRes.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: clear %s: %s", model.ErrStoreUnavailable, domain, delRes.Status())
	}

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:  s.client,
		Index:   idx,
		Refresh: "true",
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}

	// OnFailure runs on the indexer's worker goroutines.
	var failed atomic.Int64
	for _, rec := range recs {
		data, err := json.Marshal(encodeBody(rec))
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.Key, err)
		}
		err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: rec.Key,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
			},
		})
		if err != nil {
			return fmt.Errorf("%w: bulk add %s/%s: %v", model.ErrStoreUnavailable, domain, rec.Key, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("%w: bulk close %s: %v", model.ErrStoreUnavailable, domain, err)
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%w: bulk replace %s: %d documents failed", model.ErrStoreUnavailable, domain, n)
	}
	return nil
}

func (s *OpenSearchStore) List(ctx context.Context, domain model.DomainType) ([]model.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body := []byte(`{"query":{"match_all":{}},"size":1000}`)
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName(domain)),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", model.ErrStoreUnavailable, domain, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: list %s: %s", model.ErrStoreUnavailable, domain, res.Status())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				ID     string                 `json:"_id"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	recs := make([]model.Record, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		recs = append(recs, decodeBody(domain, hit.ID, hit.Source))
	}
	return recs, nil
}

func (s *OpenSearchStore) Count(ctx context.Context, domain model.DomainType) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(s.indexName(domain)),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %v", model.ErrStoreUnavailable, domain, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("%w: count %s: %s", model.ErrStoreUnavailable, domain, res.Status())
	}

	var counted struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&counted); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return counted.Count, nil
}

func (s *OpenSearchStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	info, err := s.client.Info(s.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return fmt.Errorf("%w: %s", model.ErrStoreUnavailable, info.Status())
	}
	return nil
}
