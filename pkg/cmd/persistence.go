package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/dukex/leadflow/pkg/persistence/file"
	"github.com/dukex/leadflow/pkg/persistence/postgresql"
)

// NewPersistence opens the backend named by the URL scheme: postgres:// or
// postgresql:// for PostgreSQL, file:// (or a bare path) for the JSON file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	provider, location := parsePersistenceURL(databaseURL)

	switch provider {
	case "postgresql":
		postgres, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err))
		}

		return postgres
	default:
		return file.NewPersistence(location)
	}
}

func parsePersistenceURL(databaseURL string) (string, string) {
	scheme, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file", databaseURL
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql", databaseURL
	default:
		return "file", rest
	}
}
