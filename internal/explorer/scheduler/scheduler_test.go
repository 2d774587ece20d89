package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/gartstein/visaexplorer/internal/explorer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type rebuilderFunc func(ctx context.Context) (*models.ReindexResult, error)

func (f rebuilderFunc) RebuildIndex(ctx context.Context) (*models.ReindexResult, error) {
	return f(ctx)
}

func TestScheduler_Run(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		core, recorded := observer.New(zap.InfoLevel)
		calls := 0
		s := New(rebuilderFunc(func(context.Context) (*models.ReindexResult, error) {
			calls++
			return &models.ReindexResult{Deleted: 2, Indexed: 7, Documents: 7}, nil
		}), "@every 1h", zap.New(core))

		s.run(context.Background())

		assert.Equal(t, 1, calls)
		entries := recorded.FilterMessage("Scheduled index rebuild complete").All()
		require.Len(t, entries, 1)
		assert.EqualValues(t, 7, entries[0].ContextMap()["documents"])
	})

	t.Run("failure is logged", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		s := New(rebuilderFunc(func(context.Context) (*models.ReindexResult, error) {
			return nil, errors.New("index unavailable")
		}), "@every 1h", zap.New(core))

		s.run(context.Background())

		assert.Equal(t, 1, recorded.FilterMessage("Scheduled index rebuild failed").Len())
	})
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(rebuilderFunc(func(context.Context) (*models.ReindexResult, error) {
		return &models.ReindexResult{}, nil
	}), "@every 24h", zaptest.NewLogger(t))

	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New(rebuilderFunc(func(context.Context) (*models.ReindexResult, error) {
		return nil, nil
	}), "every now and then", zaptest.NewLogger(t))

	err := s.Start(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reindex schedule")
}
