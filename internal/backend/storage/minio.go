package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions describes an S3 compatible bucket.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// MinioStore implements FileStore on an S3 compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	endpoint, secure, err := normaliseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("could not check bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("could not create bucket %q: %w", opts.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: opts.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, stagedPath, name, contentType string) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, err := s.client.FPutObject(ctx, s.bucket, name, stagedPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("could not put %q: %w", name, err)
	}
	return os.Remove(stagedPath)
}

func (s *MinioStore) Open(ctx context.Context, name string) (*Object, error) {
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("could not get %q: %w", name, err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("could not stat %q: %w", name, err)
	}
	return &Object{ReadSeekCloser: obj, ModTime: info.LastModified, Size: info.Size}, nil
}

func (s *MinioStore) Close() error {
	return nil
}

// normaliseEndpoint accepts "host:port" or "http(s)://host:port".
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}
	if !strings.Contains(raw, "://") {
		return raw, false, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, err
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint %q", raw)
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, fmt.Errorf("endpoint must not contain a path: %q", raw)
	}
	return u.Host, u.Scheme == "https", nil
}
