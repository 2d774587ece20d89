package controller

import (
	"context"

	"github.com/gartstein/visaexplorer/internal/explorer/cache"
	"go.uber.org/zap"
)

func cacheKey(parts ...string) string {
	return cache.Key(parts...)
}

// cached fills dest from the cache when possible. Otherwise it runs load
// under the query timeout, which must also set dest, and stores the
// result. Cache failures are logged and never fail the request.
func (s *ExplorerService) cached(ctx context.Context, key string, dest interface{}, load func(context.Context) (interface{}, error)) error {
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, key, dest)
		if err != nil {
			s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			return nil
		}
	}

	qctx, cancel := s.queryContext(ctx)
	defer cancel()
	value, err := load(qctx)
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value); err != nil {
			s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
