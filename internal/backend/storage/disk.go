package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// DiskStore implements FileStore on a single directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not make upload dir %q: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Put(_ context.Context, stagedPath, name, _ string) error {
	if err := checkName(name); err != nil {
		return err
	}
	dst := filepath.Join(s.dir, name)
	err := os.Rename(stagedPath, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EXDEV) {
		// staging dir on another device
		return moveByCopy(stagedPath, dst)
	}
	return fmt.Errorf("could not move %q to %q: %w", stagedPath, dst, err)
}

func (s *DiskStore) Open(_ context.Context, name string) (*Object, error) {
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return &Object{ReadSeekCloser: f, ModTime: info.ModTime(), Size: info.Size()}, nil
}

func (s *DiskStore) Close() error {
	return nil
}

func moveByCopy(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".move-*")
	if err != nil {
		return fmt.Errorf("could not create temp file next to %q: %w", dst, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("could not copy %q: %w", src, err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("could not move %q to %q: %w", tmp.Name(), dst, err)
	}
	return os.Remove(src)
}
