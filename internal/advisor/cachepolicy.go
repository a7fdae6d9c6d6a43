package advisor

import (
	"context"

	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/pkg/logger"
)

// ResultCache persists pillar results between runs. Satisfied by
// cache.Store; a nil cache disables both reads and writes.
type ResultCache interface {
	Save(ctx context.Context, pillar, key string, result any) error
	Load(ctx context.Context, pillar, key string, out any) (bool, error)
}

// withCache applies the uniform read-or-compute policy to one pillar: try a
// cached read when requested, compute fresh on miss, persist when requested.
// Cache failures never fail the pillar; they degrade to a fresh compute.
func withCache[T any](ctx context.Context, store ResultCache, pillar, key string, useCache, saveCache bool, compute func() (T, error)) (T, error) {
	if store != nil && useCache {
		var cached T
		hit, err := store.Load(ctx, pillar, key, &cached)
		if err != nil {
			logger.Warn("cache read failed, computing fresh",
				zap.String("pillar", pillar),
				zap.String("key", key),
				zap.Error(err),
			)
		} else if hit {
			logger.Info("using cached pillar result",
				zap.String("pillar", pillar),
				zap.String("key", key),
			)
			return cached, nil
		}
	}

	result, err := compute()
	if err != nil {
		return result, err
	}

	if store != nil && saveCache {
		if err := store.Save(ctx, pillar, key, result); err != nil {
			logger.Warn("cache write failed",
				zap.String("pillar", pillar),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	return result, nil
}
