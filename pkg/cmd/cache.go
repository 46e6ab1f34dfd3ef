package cmd

import (
	"context"
	"log/slog"

	"github.com/dukex/opsplan/pkg/cache"
)

// NewCache connects to Redis when redisURL is set; otherwise reports are not cached.
//
//nolint:ireturn
func NewCache(ctx context.Context, logger *slog.Logger, redisURL string) (cache.Cache, error) {
	if redisURL == "" {
		logger.InfoContext(ctx, "Progress report cache disabled")

		return cache.Noop{}, nil
	}

	return cache.NewRedis(ctx, redisURL, logger)
}
