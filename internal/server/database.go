package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docuextract/internal/common"
	repo "github.com/joseph-ayodele/docuextract/internal/repository"
)

// ConnectStore builds the document store. With a DSN it connects to Postgres or SQLite,
// migrates the documents table and loads persisted records; without one it is memory only.
// The returned closer releases database connections.
func ConnectStore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger, opts ...repo.StoreOption) (*repo.DocumentStore, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		logger.Info("document store is memory only")
		return repo.NewDocumentStore(logger, opts...), func() {}, nil
	}

	drv, pool, err := repo.Open(ctx, repo.Config{
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, nil, common.WrapError(err, "connect database")
	}
	closeDB := func() { repo.Close(drv, pool, logger) }

	if err := repo.HealthCheck(ctx, drv, 3*time.Second, logger); err != nil {
		closeDB()
		return nil, nil, common.WrapError(err, "ping database")
	}

	persister := repo.NewSQLPersister(drv, logger)
	if err := persister.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, common.WrapError(err, "migrate documents table")
	}

	store := repo.NewDocumentStore(logger, append([]repo.StoreOption{repo.WithPersister(persister)}, opts...)...)
	if err := store.Load(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	return store, closeDB, nil
}
