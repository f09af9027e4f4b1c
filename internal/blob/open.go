package blob

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/joseph-ayodele/docuextract/internal/common"
)

// Open builds the Store selected by cfg. The returned close func releases the GCS client, if any.
func Open(ctx context.Context, cfg common.BlobConfig) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), noop, nil
	case "fs":
		s, err := NewFS(cfg.Dir)
		return s, noop, err
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create storage client: %w", err)
		}
		return NewGCS(client, cfg.Bucket, cfg.Prefix), client.Close, nil
	}
	return nil, noop, common.ConfigurationError("unknown blob backend: " + cfg.Backend)
}
