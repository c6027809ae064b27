package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/jo-hoe/goimageindex/internal/backend/index"
	"github.com/jo-hoe/goimageindex/internal/backend/storage"
	"github.com/jo-hoe/goimageindex/internal/backend/thumbnail"
)

// defaultMediaType is used for file parts that carry no Content-Type header.
const defaultMediaType = "text/plain"

type CoreService struct {
	config       *ServiceConfig
	indexService index.IndexService
	fileStore    storage.FileStore
}

func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	if err := os.MkdirAll(config.StagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir %s: %w", config.StagingDir, err)
	}

	indexService, err := index.NewIndex(ctx, config.Index.Type, config.Index.ConnectionString, config.Index.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize index: %w", err)
	}
	slog.Info("index initialized successfully", "type", config.Index.Type)

	fileStore, err := storage.NewFileStore(ctx, config.Storage.Type, config.UploadDir, storage.MinioOptions{
		Endpoint:  config.Storage.Endpoint,
		AccessKey: config.Storage.AccessKey,
		SecretKey: config.Storage.SecretKey,
		Bucket:    config.Storage.Bucket,
	})
	if err != nil {
		_ = indexService.Close()
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	slog.Info("file store initialized successfully", "type", config.Storage.Type)

	return &CoreService{
		config:       config,
		indexService: indexService,
		fileStore:    fileStore,
	}, nil
}

func (service *CoreService) Close() error {
	return errors.Join(service.indexService.Close(), service.fileStore.Close())
}

// AddImages stores every file in request order and then appends their records
// to the index as one batch. If a file cannot be stored nothing is appended;
// files moved before the failure stay in place. A filename that cannot be
// stored fails with ErrValidation, any other storage error with ErrStorage.
func (service *CoreService) AddImages(ctx context.Context, files []*multipart.FileHeader) ([]index.Image, error) {
	images := make([]index.Image, 0, len(files))
	for _, file := range files {
		mediaType := file.Header.Get("Content-Type")
		if mediaType == "" {
			mediaType = defaultMediaType
		}
		image, storageName := service.newImage(file.Filename, mediaType)

		if err := service.storeUpload(ctx, file, storageName, mediaType); err != nil {
			return nil, err
		}
		images = append(images, image)
	}

	if err := service.indexService.AppendImages(ctx, images); err != nil {
		return nil, fmt.Errorf("%w: failed to append %d images to index: %w", ErrStorage, len(images), err)
	}

	slog.Info("images added", "count", len(images))
	return images, nil
}

// SearchImages returns all records in insertion order, never nil.
func (service *CoreService) SearchImages(ctx context.Context) ([]index.Image, error) {
	images, err := service.indexService.GetImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read index: %w", ErrStorage, err)
	}
	if images == nil {
		images = []index.Image{}
	}
	return images, nil
}

func (service *CoreService) GetImageByID(ctx context.Context, id string) (*index.Image, error) {
	image, err := service.indexService.GetImageByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read index: %w", ErrStorage, err)
	}
	if image == nil {
		return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	return image, nil
}

// OpenUpload opens a stored file by the name it is served under.
func (service *CoreService) OpenUpload(ctx context.Context, name string) (*storage.Object, error) {
	object, err := service.fileStore.Open(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("upload %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open upload %q: %w", ErrStorage, name, err)
	}
	return object, nil
}

// Thumbnail renders a PNG preview of an image record. A width of 0 selects
// the configured thumbnail width.
func (service *CoreService) Thumbnail(ctx context.Context, id string, width int) ([]byte, error) {
	if width == 0 {
		width = service.config.ThumbnailWidth
	}

	image, err := service.GetImageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hasImageTag(image.Tags) {
		return nil, fmt.Errorf("%w: image %s is tagged %v", ErrUnsupportedMedia, id, image.Tags)
	}

	object, err := service.OpenUpload(ctx, service.storageNameOf(*image))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := object.Close(); cerr != nil {
			slog.Error("Thumbnail: failed to close upload", "error", cerr, "image_id", id)
		}
	}()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read upload of image %s: %w", ErrStorage, id, err)
	}

	thumb, err := thumbnail.Generate(data, width)
	if errors.Is(err, thumbnail.ErrUndecodable) {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedMedia, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return thumb, nil
}

func (service *CoreService) newImage(filename, mediaType string) (index.Image, string) {
	image := index.Image{
		ID:   index.NewImageID(),
		Tags: []string{mediaType},
	}
	storageName := filename
	if service.config.StorageNaming == NamingID {
		storageName = image.ID + filepath.Ext(filename)
		image.Name = filename
	}
	image.Src = service.config.UploadRoute + "/" + storageName
	return image, storageName
}

func (service *CoreService) storageNameOf(image index.Image) string {
	return strings.TrimPrefix(image.Src, service.config.UploadRoute+"/")
}

// storeUpload copies the part into the staging dir and moves it into the file store.
func (service *CoreService) storeUpload(ctx context.Context, file *multipart.FileHeader, storageName, mediaType string) error {
	staged, err := service.stage(file)
	if err != nil {
		return fmt.Errorf("%w: failed to stage %s: %w", ErrStorage, file.Filename, err)
	}
	if err := service.fileStore.Put(ctx, staged, storageName, mediaType); err != nil {
		_ = os.Remove(staged)
		if errors.Is(err, storage.ErrInvalidName) {
			return fmt.Errorf("%w: cannot store upload named %q: %w", ErrValidation, file.Filename, err)
		}
		return fmt.Errorf("%w: failed to store %s: %w", ErrStorage, file.Filename, err)
	}
	return nil
}

func (service *CoreService) stage(file *multipart.FileHeader) (path string, err error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.CreateTemp(service.config.StagingDir, "upload-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dst.Name())
		}
	}()

	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	if err = dst.Close(); err != nil {
		return "", err
	}
	return dst.Name(), nil
}

func hasImageTag(tags []string) bool {
	for _, tag := range tags {
		if strings.HasPrefix(strings.ToLower(tag), "image/") {
			return true
		}
	}
	return false
}
