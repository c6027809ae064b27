package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestDiskStore(t *testing.T) (*DiskStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore error: %v", err)
	}
	return store, dir
}

func stageFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "staged-*")
	if err != nil {
		t.Fatalf("CreateTemp error: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("WriteString error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	return f.Name()
}

func readObject(t *testing.T, store FileStore, name string) string {
	t.Helper()
	obj, err := store.Open(context.Background(), name)
	if err != nil {
		t.Fatalf("Open(%q) error: %v", name, err)
	}
	defer func() { _ = obj.Close() }()
	data, err := io.ReadAll(obj)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	return string(data)
}

func TestDiskStore_PutMovesStagedFile(t *testing.T) {
	store, dir := newTestDiskStore(t)
	staged := stageFile(t, "cat")

	if err := store.Put(context.Background(), staged, "cat.png", "image/png"); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	if _, err := os.Stat(staged); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected staged file to be gone, stat error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cat.png")); err != nil {
		t.Errorf("expected file in upload dir: %v", err)
	}
	if got := readObject(t, store, "cat.png"); got != "cat" {
		t.Errorf("expected content %q, got %q", "cat", got)
	}
}

func TestDiskStore_PutReplacesExisting(t *testing.T) {
	store, _ := newTestDiskStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, stageFile(t, "first"), "same.png", "image/png"); err != nil {
		t.Fatalf("Put #1 error: %v", err)
	}
	if err := store.Put(ctx, stageFile(t, "second"), "same.png", "image/png"); err != nil {
		t.Fatalf("Put #2 error: %v", err)
	}
	if got := readObject(t, store, "same.png"); got != "second" {
		t.Errorf("expected second upload to win, got %q", got)
	}
}

func TestDiskStore_PutMissingStagedFile(t *testing.T) {
	store, _ := newTestDiskStore(t)
	err := store.Put(context.Background(), filepath.Join(t.TempDir(), "missing"), "x.png", "image/png")
	if err == nil {
		t.Fatalf("expected error for missing staged file, got nil")
	}
}

func TestDiskStore_PutRejectsInvalidName(t *testing.T) {
	store, dir := newTestDiskStore(t)

	for _, name := range []string{"", ".", "..", "sub/x.png", "../x.png"} {
		t.Run(name, func(t *testing.T) {
			staged := stageFile(t, "payload")
			err := store.Put(context.Background(), staged, name, "image/png")
			if !errors.Is(err, ErrInvalidName) {
				t.Fatalf("Put(%q) error = %v, want ErrInvalidName", name, err)
			}
			if _, err := os.Stat(staged); err != nil {
				t.Errorf("expected staged file to be left for the caller: %v", err)
			}
		})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected upload dir to stay empty, found %d entries", len(entries))
	}
}

func TestDiskStore_OpenNotFound(t *testing.T) {
	store, dir := newTestDiskStore(t)
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}

	tests := []string{"absent.png", "", ".", "..", "sub", "../uploads/x.png", "sub/x.png"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := store.Open(context.Background(), name)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("Open(%q) error = %v, want ErrNotFound", name, err)
			}
		})
	}
}

func TestMoveByCopy(t *testing.T) {
	staged := stageFile(t, "payload")
	dst := filepath.Join(t.TempDir(), "dst.bin")

	if err := moveByCopy(staged, dst); err != nil {
		t.Fatalf("moveByCopy error: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("expected %q, got %q", "payload", string(data))
	}
	if _, err := os.Stat(staged); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected source to be removed, stat error: %v", err)
	}
}

func TestNewFileStore_UnsupportedType(t *testing.T) {
	if _, err := NewFileStore(context.Background(), "ftp", t.TempDir(), MinioOptions{}); err == nil {
		t.Fatalf("expected error for unsupported storage type, got nil")
	}
}
