package index

import (
	"context"
	"fmt"
	"log/slog"
)

func NewIndex(ctx context.Context, indexType, connectionString, key string) (index IndexService, err error) {
	switch indexType {
	case "memory":
		index = NewMemoryIndex()
	case "sqlite":
		index, err = NewSQLiteIndex(connectionString)
	case "redis":
		index, err = NewRedisIndex(connectionString, key)
	default:
		return nil, fmt.Errorf("unsupported index type: %s", indexType)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("initializing image index (dropping records of earlier runs)", "type", indexType)
	if err = index.CreateIndex(ctx); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return index, nil
}
