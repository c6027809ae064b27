package index

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type backend struct {
	name  string
	setup func(t *testing.T) IndexService
}

func newTestBackends() []backend {
	return []backend{
		{name: "memory", setup: newTestMemoryIndex},
		{name: "sqlite", setup: newTestSQLiteIndex},
		{name: "redis", setup: newTestRedisIndex},
	}
}

func newTestMemoryIndex(t *testing.T) IndexService {
	t.Helper()
	idx, err := NewIndex(context.Background(), "memory", "", "")
	if err != nil {
		t.Fatalf("NewIndex(memory) error: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func newTestSQLiteIndex(t *testing.T) IndexService {
	t.Helper()
	idx, err := NewIndex(context.Background(), "sqlite", ":memory:", "")
	if err != nil {
		t.Fatalf("NewIndex(sqlite) error: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func newTestRedisIndex(t *testing.T) IndexService {
	t.Helper()
	mr := miniredis.RunT(t)
	idx, err := NewIndex(context.Background(), "redis", "redis://"+mr.Addr(), "test:images")
	if err != nil {
		t.Fatalf("NewIndex(redis) error: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testImage(n int) Image {
	return Image{
		ID:   NewImageID(),
		Src:  fmt.Sprintf("/uploads/file-%d.png", n),
		Tags: []string{"image/png"},
	}
}

func TestIndex_StartsEmpty(t *testing.T) {
	for _, b := range newTestBackends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.setup(t)
			images, err := idx.GetImages(context.Background())
			if err != nil {
				t.Fatalf("GetImages error: %v", err)
			}
			if images == nil {
				t.Fatalf("expected empty non-nil slice, got nil")
			}
			if len(images) != 0 {
				t.Fatalf("expected 0 images, got %d", len(images))
			}
		})
	}
}

func TestIndex_AppendKeepsInsertionOrder(t *testing.T) {
	for _, b := range newTestBackends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.setup(t)
			ctx := context.Background()

			first := []Image{testImage(1), testImage(2)}
			second := []Image{testImage(3)}
			second[0].Name = "original.png"

			if err := idx.AppendImages(ctx, first); err != nil {
				t.Fatalf("AppendImages #1 error: %v", err)
			}
			if err := idx.AppendImages(ctx, nil); err != nil {
				t.Fatalf("AppendImages(empty) error: %v", err)
			}
			if err := idx.AppendImages(ctx, second); err != nil {
				t.Fatalf("AppendImages #2 error: %v", err)
			}

			images, err := idx.GetImages(ctx)
			if err != nil {
				t.Fatalf("GetImages error: %v", err)
			}
			want := append(append([]Image{}, first...), second...)
			if len(images) != len(want) {
				t.Fatalf("expected %d images, got %d", len(want), len(images))
			}
			for i := range want {
				if images[i].ID != want[i].ID || images[i].Src != want[i].Src || images[i].Name != want[i].Name {
					t.Errorf("image[%d] = %+v, want %+v", i, images[i], want[i])
				}
				if len(images[i].Tags) != 1 || images[i].Tags[0] != "image/png" {
					t.Errorf("image[%d].Tags = %v, want [image/png]", i, images[i].Tags)
				}
			}
		})
	}
}

func TestIndex_GetImageByID(t *testing.T) {
	for _, b := range newTestBackends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.setup(t)
			ctx := context.Background()

			img := testImage(1)
			if err := idx.AppendImages(ctx, []Image{testImage(0), img}); err != nil {
				t.Fatalf("AppendImages error: %v", err)
			}

			got, err := idx.GetImageByID(ctx, img.ID)
			if err != nil {
				t.Fatalf("GetImageByID error: %v", err)
			}
			if got == nil {
				t.Fatalf("GetImageByID returned nil; expected image")
			}
			if got.Src != img.Src {
				t.Errorf("expected src %q, got %q", img.Src, got.Src)
			}

			missing, err := idx.GetImageByID(ctx, "non-existent-id")
			if err != nil {
				t.Fatalf("GetImageByID(non-existent) error: %v", err)
			}
			if missing != nil {
				t.Fatalf("GetImageByID(non-existent) returned non-nil; expected nil")
			}
		})
	}
}

func TestIndex_CreateIndexDropsRecords(t *testing.T) {
	for _, b := range newTestBackends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.setup(t)
			ctx := context.Background()

			if err := idx.AppendImages(ctx, []Image{testImage(1)}); err != nil {
				t.Fatalf("AppendImages error: %v", err)
			}
			if err := idx.CreateIndex(ctx); err != nil {
				t.Fatalf("CreateIndex error: %v", err)
			}
			images, err := idx.GetImages(ctx)
			if err != nil {
				t.Fatalf("GetImages error: %v", err)
			}
			if len(images) != 0 {
				t.Fatalf("expected empty index after CreateIndex, got %d images", len(images))
			}
		})
	}
}

func TestIndex_ConcurrentAppendsLoseNothing(t *testing.T) {
	for _, b := range newTestBackends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.setup(t)
			ctx := context.Background()

			const writers = 8
			const perBatch = 5
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					batch := make([]Image, perBatch)
					for i := range batch {
						batch[i] = testImage(w*perBatch + i)
					}
					errs <- idx.AppendImages(ctx, batch)
				}(w)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("AppendImages error: %v", err)
				}
			}

			images, err := idx.GetImages(ctx)
			if err != nil {
				t.Fatalf("GetImages error: %v", err)
			}
			if len(images) != writers*perBatch {
				t.Fatalf("expected %d images, got %d", writers*perBatch, len(images))
			}
			// batches never interleave: each run of perBatch records comes from one writer
			for start := 0; start < len(images); start += perBatch {
				var first int
				if _, err := fmt.Sscanf(images[start].Src, "/uploads/file-%d.png", &first); err != nil {
					t.Fatalf("unexpected src %q", images[start].Src)
				}
				for i := 1; i < perBatch; i++ {
					want := fmt.Sprintf("/uploads/file-%d.png", first+i)
					if images[start+i].Src != want {
						t.Fatalf("batch starting at %d interleaved: got %q, want %q", start, images[start+i].Src, want)
					}
				}
			}
		})
	}
}

func TestNewIndex_UnsupportedType(t *testing.T) {
	if _, err := NewIndex(context.Background(), "postgres", "", ""); err == nil {
		t.Fatalf("expected error for unsupported index type, got nil")
	}
}
