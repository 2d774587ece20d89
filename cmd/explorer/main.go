package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/visaexplorer/internal/explorer/cache"
	"github.com/gartstein/visaexplorer/internal/explorer/config"
	"github.com/gartstein/visaexplorer/internal/explorer/controller"
	gorm "github.com/gartstein/visaexplorer/internal/explorer/db"
	"github.com/gartstein/visaexplorer/internal/explorer/events"
	"github.com/gartstein/visaexplorer/internal/explorer/handlers"
	"github.com/gartstein/visaexplorer/internal/explorer/scheduler"
	"github.com/gartstein/visaexplorer/internal/explorer/search"
	"go.uber.org/zap"
)

const startupTimeout = time.Minute

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			logger.Error("failed to sync logger", zap.Error(err))
		}
	}(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := gorm.Connect(ctx, cfg.Database(), startupTimeout, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	opts := []controller.Option{
		controller.WithQueryTimeout(cfg.QueryTimeout),
		controller.WithIndexName(cfg.SearchIndex),
	}

	var index controller.SearchIndex
	if cfg.SearchEnabled() {
		idx, err := initSearchIndex(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to initialize search index", zap.Error(err))
		}
		index = idx
	} else {
		logger.Warn("SEARCH_URL not set, autocomplete disabled")
	}

	if cfg.CacheEnabled() {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to initialize Redis", zap.Error(err))
		}
		redisCache := cache.NewRedisCache(client, cfg.CacheTTL)
		defer redisCache.Close()
		opts = append(opts, controller.WithCache(redisCache))
	}

	if cfg.EventsEnabled() {
		producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		if err != nil {
			logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		opts = append(opts, controller.WithProducer(producer))
	}

	explorerSvc := controller.NewExplorerService(repo, index, logger, opts...)

	if cfg.ConsumerEnabled() {
		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.IngestTopic, logger)
		consumer.RegisterHandler(explorerSvc.HandleDatasetRefreshed)
		consumer.Start(ctx)
		// runs before repo.Close, waiting for an in-flight rebuild
		defer consumer.Close()
	}

	if cfg.ReindexSchedule != "" && index != nil {
		sched := scheduler.New(explorerSvc, cfg.ReindexSchedule, logger)
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	httpHandler := handlers.NewHTTPHandler(explorerSvc, logger)
	server := handlers.NewServer(cfg.HTTPPort, httpHandler, cfg.JWTSecret, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

func initSearchIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*search.Index, error) {
	idx, err := search.NewIndex(search.Config{
		URL:      cfg.SearchURL,
		APIKey:   cfg.SearchAPIKey,
		Index:    cfg.SearchIndex,
		Pipeline: cfg.SearchPipeline,
	}, logger)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = startupTimeout
	err = backoff.RetryNotify(func() error {
		return idx.Ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.Warn("search index not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	return idx, err
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down the server.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Server stopped properly")
}
