package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/linkfolio-api/pkg/helpers"
)

// ErrObjectNotFound is returned by BlobStore.Delete for a missing object.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore persists uploaded bytes under a flat object name.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) error
	Delete(ctx context.Context, name string) error
}

// LocalStore writes objects into a directory on disk.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("uploads directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrObjectNotFound
	}
	return err
}

// GCSStore keeps objects in a Google Cloud Storage bucket under prefix.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStore(client *storage.Client, bucket, prefix string) (*GCSStore, error) {
	if client == nil || bucket == "" {
		return nil, errors.New("gcs not configured")
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) object(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *GCSStore) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	_, err := helpers.UploadObject(ctx, s.client, s.bucket, s.object(name), contentType, r)
	return err
}

func (s *GCSStore) Delete(ctx context.Context, name string) error {
	err := s.client.Bucket(s.bucket).Object(s.object(name)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}
