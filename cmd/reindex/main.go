// Command reindex rebuilds the employer name index once and prints the
// result as JSON.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/gartstein/visaexplorer/internal/explorer/config"
	"github.com/gartstein/visaexplorer/internal/explorer/controller"
	gorm "github.com/gartstein/visaexplorer/internal/explorer/db"
	"github.com/gartstein/visaexplorer/internal/explorer/events"
	"github.com/gartstein/visaexplorer/internal/explorer/search"
	"go.uber.org/zap"
)

const startupTimeout = time.Minute

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if !cfg.SearchEnabled() {
		logger.Fatal("SEARCH_URL is required")
	}

	repo, err := gorm.Connect(context.Background(), cfg.Database(), startupTimeout, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	index, err := search.NewIndex(search.Config{
		URL:      cfg.SearchURL,
		APIKey:   cfg.SearchAPIKey,
		Index:    cfg.SearchIndex,
		Pipeline: cfg.SearchPipeline,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize search index", zap.Error(err))
	}

	opts := []controller.Option{controller.WithIndexName(cfg.SearchIndex)}
	if cfg.EventsEnabled() {
		producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		if err != nil {
			logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
		}
		// Close drops events still queued, so the result event may be lost
		// if the process exits first.
		defer producer.Close()
		opts = append(opts, controller.WithProducer(producer))
	}

	svc := controller.NewExplorerService(repo, index, logger, opts...)
	result, err := svc.RebuildIndex(context.Background())
	if err != nil {
		logger.Fatal("index rebuild failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("failed to print result", zap.Error(err))
	}
}
