// Package search serves employer name autocomplete from an Elasticsearch
// index and rebuilds that index from the dataset.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/gartstein/visaexplorer/internal/explorer/models"
	"go.uber.org/zap"
)

const defaultSuggestionSize = 10

type Config struct {
	URL    string
	APIKey string
	Index  string
	// Pipeline is the optional ingest pipeline documents pass through.
	Pipeline string
	// Size caps the number of autocomplete suggestions.
	Size int
}

// Index is a name index backed by Elasticsearch.
type Index struct {
	client   *elasticsearch.Client
	index    string
	pipeline string
	size     int
	logger   *zap.Logger
}

func NewIndex(cfg Config, logger *zap.Logger) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	size := cfg.Size
	if size <= 0 {
		size = defaultSuggestionSize
	}
	return &Index{
		client:   client,
		index:    cfg.Index,
		pipeline: cfg.Pipeline,
		size:     size,
		logger:   logger.Named("search_index"),
	}, nil
}

// Ping checks that the cluster answers.
func (i *Index) Ping(ctx context.Context) error {
	res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError(res)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.NameEntry `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Prefix returns the employers whose name starts with prefix.
func (i *Index) Prefix(ctx context.Context, prefix string) ([]models.NameEntry, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"prefix": map[string]interface{}{
				"name": prefix,
			},
		},
	}
	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(esutil.NewJSONReader(body)),
		i.client.Search.WithSize(i.size),
	)
	if err != nil {
		return nil, fmt.Errorf("prefix search failed: %w", err)
	}
	defer res.Body.Close()
	if err := responseError(res); err != nil {
		return nil, fmt.Errorf("prefix search failed: %w", err)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	entries := make([]models.NameEntry, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		entries = append(entries, hit.Source)
	}
	return entries, nil
}

// Clear deletes every document and returns how many were removed.
func (i *Index) Clear(ctx context.Context) (int64, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	}
	res, err := i.client.DeleteByQuery(
		[]string{i.index},
		esutil.NewJSONReader(body),
		i.client.DeleteByQuery.WithContext(ctx),
		i.client.DeleteByQuery.WithConflicts("proceed"),
		i.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, fmt.Errorf("delete by query failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		// nothing to clear before the first load
		return 0, nil
	}
	if err := responseError(res); err != nil {
		return 0, fmt.Errorf("delete by query failed: %w", err)
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode delete response: %w", err)
	}
	return parsed.Deleted, nil
}

// Loader bulk-loads documents into the index.
type Loader struct {
	indexer esutil.BulkIndexer
	failed  atomic.Int64
	logger  *zap.Logger
}

// NewLoader starts a bulk load. Documents are keyed by employer id, so
// loading the same rows twice leaves one document per employer.
func (i *Index) NewLoader() (*Loader, error) {
	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:   i.client,
		Index:    i.index,
		Pipeline: i.pipeline,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk indexer: %w", err)
	}
	return &Loader{indexer: indexer, logger: i.logger}, nil
}

// Add queues a batch of documents.
func (l *Loader) Add(ctx context.Context, entries []models.NameEntry) error {
	for _, entry := range entries {
		doc, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode document %s: %w", entry.ID, err)
		}
		err = l.indexer.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: entry.ID,
			Body:       bytes.NewReader(doc),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				l.failed.Add(1)
				if err != nil {
					l.logger.Warn("Failed to index document", zap.String("employer_id", item.DocumentID), zap.Error(err))
					return
				}
				l.logger.Warn("Failed to index document",
					zap.String("employer_id", item.DocumentID),
					zap.String("reason", res.Error.Reason),
				)
			},
		})
		if err != nil {
			return fmt.Errorf("failed to queue document %s: %w", entry.ID, err)
		}
	}
	return nil
}

// Close flushes pending documents and returns indexed and failed counts.
func (l *Loader) Close(ctx context.Context) (indexed int64, failed int64, err error) {
	if err := l.indexer.Close(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to flush bulk indexer: %w", err)
	}
	stats := l.indexer.Stats()
	return int64(stats.NumIndexed) + int64(stats.NumCreated), l.failed.Load(), nil
}

// Load runs feed against a fresh Loader and flushes it. Documents already
// queued when feed fails are still flushed.
func (i *Index) Load(ctx context.Context, feed func(add func([]models.NameEntry) error) error) (indexed int64, failed int64, err error) {
	loader, err := i.NewLoader()
	if err != nil {
		return 0, 0, err
	}
	feedErr := feed(func(entries []models.NameEntry) error {
		return loader.Add(ctx, entries)
	})
	indexed, failed, err = loader.Close(ctx)
	if feedErr != nil {
		return indexed, failed, feedErr
	}
	return indexed, failed, err
}

// Refresh makes loaded documents visible to search.
func (i *Index) Refresh(ctx context.Context) error {
	res, err := i.client.Indices.Refresh(
		i.client.Indices.Refresh.WithContext(ctx),
		i.client.Indices.Refresh.WithIndex(i.index),
	)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	defer res.Body.Close()
	return responseError(res)
}

// Count returns the number of documents in the index.
func (i *Index) Count(ctx context.Context) (int64, error) {
	res, err := i.client.Count(
		i.client.Count.WithContext(ctx),
		i.client.Count.WithIndex(i.index),
	)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	defer res.Body.Close()
	if err := responseError(res); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return parsed.Count, nil
}

func responseError(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("search index returned %s: %s", res.Status(), strings.TrimSpace(string(body)))
}
