package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/linkfolio-api/internal/domain/apperr"
)

const (
	PublicPrefix   = "/uploads/"
	DefaultMaxSize = 5 << 20
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var allowedExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// File is an uploaded file that has not been persisted yet.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromHeader adapts a multipart file header.
func FromHeader(field string, fh *multipart.FileHeader) File {
	return File{
		Field:       field,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Manager validates, stores and removes uploaded images and hands out their
// public reference paths.
type Manager struct {
	blobs     BlobStore
	maxSize   int64
	protected map[string]bool
	now       func() time.Time
}

// NewManager builds a Manager. placeholders are default references that
// Delete must never remove.
func NewManager(blobs BlobStore, maxSize int64, placeholders ...string) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	protected := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		protected[p] = true
	}
	return &Manager{blobs: blobs, maxSize: maxSize, protected: protected, now: time.Now}
}

func (m *Manager) MaxSize() int64 { return m.maxSize }

// Check rejects a file whose type or size is not allowed. It runs before any
// bytes are written.
func (m *Manager) Check(f File) error {
	var msgs []string
	if _, ok := allowedTypes[mediaType(f.ContentType)]; !ok {
		msgs = append(msgs, f.Field+" must be an image (jpeg, jpg, png, gif, webp)")
	}
	if ext := strings.ToLower(filepath.Ext(f.Filename)); ext != "" && !allowedExts[ext] {
		msgs = append(msgs, f.Field+" has an unsupported file extension")
	}
	if f.Size > m.maxSize {
		msgs = append(msgs, fmt.Sprintf("%s must be at most %dMB", f.Field, m.maxSize>>20))
	}
	if len(msgs) > 0 {
		return apperr.Validation(msgs...)
	}
	return nil
}

// Save stores f under a fresh name and returns its reference path.
func (m *Manager) Save(ctx context.Context, f File) (string, error) {
	if err := m.Check(f); err != nil {
		return "", err
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	name := m.newName(f)
	// Guard against a client lying about Size.
	lr := &io.LimitedReader{R: rc, N: m.maxSize + 1}
	if err := m.blobs.Put(ctx, name, mediaType(f.ContentType), lr); err != nil {
		return "", err
	}
	if lr.N <= 0 {
		_ = m.blobs.Delete(ctx, name)
		return "", apperr.Validation(fmt.Sprintf("%s must be at most %dMB", f.Field, m.maxSize>>20))
	}
	return PublicPrefix + name, nil
}

// Delete removes the object behind ref. Empty refs, placeholders, refs
// outside the uploads prefix and missing objects are not errors.
func (m *Manager) Delete(ctx context.Context, ref string) error {
	if m.protected[ref] {
		return nil
	}
	name, ok := objectName(ref)
	if !ok {
		return nil
	}
	err := m.blobs.Delete(ctx, name)
	if errors.Is(err, ErrObjectNotFound) {
		return nil
	}
	return err
}

func (m *Manager) newName(f File) string {
	ext := strings.ToLower(filepath.Ext(f.Filename))
	if ext == "" {
		ext = allowedTypes[mediaType(f.ContentType)]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d-%s%s", m.now().UnixMilli(), suffix, ext)
}

func objectName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, PublicPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(ref, PublicPrefix)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

func mediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return strings.ToLower(mt)
}
