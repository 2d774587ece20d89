// Package scheduler triggers periodic rebuilds of the employer name index.
package scheduler

import (
	"context"
	"fmt"

	"github.com/gartstein/visaexplorer/internal/explorer/models"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Rebuilder interface {
	RebuildIndex(ctx context.Context) (*models.ReindexResult, error)
}

// Scheduler wraps robfig/cron. Overlapping runs are skipped.
type Scheduler struct {
	cron      *cron.Cron
	rebuilder Rebuilder
	spec      string
	logger    *zap.Logger
}

func New(rebuilder Rebuilder, spec string, logger *zap.Logger) *Scheduler {
	logger = logger.Named("scheduler")
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		rebuilder: rebuilder,
		spec:      spec,
		logger:    logger,
	}
}

// Start registers the rebuild job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid reindex schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("Cron started", zap.String("spec", s.spec))
	return nil
}

// Stop waits for a running rebuild to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Cron stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	s.logger.Info("Scheduled index rebuild started")

	result, err := s.rebuilder.RebuildIndex(ctx)
	if err != nil {
		s.logger.Error("Scheduled index rebuild failed", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled index rebuild complete",
		zap.Int64("deleted", result.Deleted),
		zap.Int64("indexed", result.Indexed),
		zap.Int64("failed", result.Failed),
		zap.Int64("documents", result.Documents),
	)
}
