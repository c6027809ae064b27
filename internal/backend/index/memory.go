package index

import (
	"context"
	"sync"
)

// MemoryIndex keeps the index in a slice for the lifetime of the process.
type MemoryIndex struct {
	mu     sync.RWMutex
	images []Image
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) CreateIndex(_ context.Context) error {
	m.mu.Lock()
	m.images = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Close() error {
	return nil
}

func (m *MemoryIndex) AppendImages(_ context.Context, images []Image) error {
	if len(images) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range images {
		m.images = append(m.images, img.clone())
	}
	return nil
}

func (m *MemoryIndex) GetImages(_ context.Context) ([]Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Image, len(m.images))
	for i, img := range m.images {
		out[i] = img.clone()
	}
	return out, nil
}

func (m *MemoryIndex) GetImageByID(_ context.Context, id string) (*Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, img := range m.images {
		if img.ID == id {
			found := img.clone()
			return &found, nil
		}
	}
	return nil, nil
}
