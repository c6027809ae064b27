package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"
)

var (
	// ErrNotFound indicates the name is not in the store.
	ErrNotFound = errors.New("not found")
	// ErrInvalidName indicates a name outside the flat namespace.
	ErrInvalidName = errors.New("invalid name")
)

// FileStore holds uploaded files in a flat namespace.
type FileStore interface {
	// Put moves the staged file into the store under name. An existing
	// object with the same name is replaced. The staged file is gone afterwards.
	// Names outside the flat namespace fail with ErrInvalidName.
	Put(ctx context.Context, stagedPath, name, contentType string) error

	// Open should return ErrNotFound if name is not in the store, including
	// names that could never have been stored.
	Open(ctx context.Context, name string) (*Object, error)

	Close() error
}

// Object is a stored file opened for reading.
type Object struct {
	io.ReadSeekCloser
	ModTime time.Time
	Size    int64
}

// checkName rejects names that would leave the flat namespace.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
