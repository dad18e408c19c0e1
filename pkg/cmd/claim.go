package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/leadflow/pkg/claim"
)

// NewClaimer returns a Redis-backed claimer when redisURL is set. Without it claims are
// only honoured inside this process.
func NewClaimer(ctx context.Context, logger *slog.Logger, redisURL string) claim.Claimer {
	if redisURL == "" {
		logger.WarnContext(ctx, "No Redis URL configured, claims are process-local")

		return claim.NewMemoryClaimer()
	}

	claimer, err := claim.NewRedisClaimerFromURL(ctx, redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to connect to Redis: %w", err))
	}

	return claimer
}
