package index

import "context"

type IndexService interface {
	// CreateIndex prepares an empty index. Records left over from a previous
	// process are dropped, so every backend starts empty.
	CreateIndex(ctx context.Context) error
	Close() error

	// AppendImages adds a batch to the end of the index. A batch is applied as a
	// whole or not at all and never interleaves with another batch.
	AppendImages(ctx context.Context, images []Image) error
	// GetImages returns a copy of all records in insertion order.
	GetImages(ctx context.Context) ([]Image, error)
	// GetImageByID returns nil without error if no record has the id.
	GetImageByID(ctx context.Context, id string) (*Image, error)
}
