package storage

import (
	"context"
	"fmt"
)

func NewFileStore(ctx context.Context, storeType, dir string, opts MinioOptions) (FileStore, error) {
	switch storeType {
	case "disk":
		return NewDiskStore(dir)
	case "minio":
		return NewMinioStore(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storeType)
	}
}
