package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/linkfolio-api/internal/domain/apperr"
	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/domain/repository"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/memory"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/uploads"
	"github.com/oksasatya/linkfolio-api/pkg/events"
)

type fakeFiles struct {
	mu      sync.Mutex
	n       int
	saved   []string
	deleted []string
	saveErr error
}

func (f *fakeFiles) Check(file uploads.File) error {
	if file.ContentType != "image/png" {
		return apperr.Validation(file.Field + " must be an image")
	}
	return nil
}

func (f *fakeFiles) Save(ctx context.Context, file uploads.File) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil && f.n > 0 {
		return "", f.saveErr
	}
	f.n++
	ref := fmt.Sprintf("/uploads/file-%d.png", f.n)
	f.saved = append(f.saved, ref)
	return ref, nil
}

// Delete fails on a done context like a network-backed blob store would.
func (f *fakeFiles) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.RecordEvent
	err    error
}

func (p *fakePublisher) PublishJSON(ctx context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, body.(events.RecordEvent))
	return nil
}

func png(field string) uploads.File {
	return uploads.File{
		Field:       field,
		Filename:    field + ".png",
		ContentType: "image/png",
		Size:        4,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("\x89PNG")), nil
		},
	}
}

func newTestService(t *testing.T, kind entity.Kind) (*CatalogService, *fakeFiles, *fakePublisher) {
	t.Helper()
	repo := NewRecordRepository(kind, memory.NewStore())
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	files := &fakeFiles{}
	pub := &fakePublisher{}
	return NewCatalogService(repo, files, pub, nil), files, pub
}

// ctxStore fails writes on a done context and can run a hook just before an
// update lands, standing in for a concurrent request.
type ctxStore struct {
	repository.DocumentStore
	beforeUpdate func()
}

func (s *ctxStore) InsertOne(ctx context.Context, collection string, doc entity.Record) (entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.DocumentStore.InsertOne(ctx, collection, doc)
}

func (s *ctxStore) FindOneAndUpdate(ctx context.Context, collection, id string, set map[string]any) (entity.Record, entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if s.beforeUpdate != nil {
		hook := s.beforeUpdate
		s.beforeUpdate = nil
		hook()
	}
	return s.DocumentStore.FindOneAndUpdate(ctx, collection, id, set)
}

func newCtxService(t *testing.T, kind entity.Kind) (*CatalogService, *ctxStore, *fakeFiles) {
	t.Helper()
	store := &ctxStore{DocumentStore: memory.NewStore()}
	repo := NewRecordRepository(kind, store)
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	files := &fakeFiles{}
	return NewCatalogService(repo, files, nil, nil), store, files
}

func yogaInput() map[string]any {
	return map[string]any{"name": "Yoga", "description": "Morning flow", "price": "10"}
}

func TestCatalogService_Create_WithPhoto(t *testing.T) {
	t.Parallel()
	svc, files, pub := newTestService(t, entity.Service())

	rec, err := svc.Create(context.Background(), Input{
		Fields: yogaInput(),
		Files:  map[string][]uploads.File{"photo": {png("photo")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/uploads/file-1.png", rec["photo"])
	assert.Empty(t, files.deleted)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.RecordCreated, pub.events[0].Type)
	assert.Equal(t, "services", pub.events[0].Collection)
	assert.Equal(t, rec.ID(), pub.events[0].ID)
	assert.Equal(t, "Yoga", pub.events[0].Record["name"])
}

func TestCatalogService_Create_IgnoresClientImageRefs(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t, entity.Service())

	in := yogaInput()
	in["photo"] = "/uploads/someone-elses.png"
	rec, err := svc.Create(context.Background(), Input{Fields: in})
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultServicePhoto, rec["photo"])
}

func TestCatalogService_Create_FailureRemovesUpload(t *testing.T) {
	t.Parallel()
	svc, files, pub := newTestService(t, entity.Service())

	_, err := svc.Create(context.Background(), Input{
		Fields: map[string]any{"name": "Yoga"},
		Files:  map[string][]uploads.File{"photo": {png("photo")}},
	})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, files.saved, files.deleted)
	assert.Empty(t, pub.events)
}

func TestCatalogService_Create_SaveFailureRemovesEarlierFiles(t *testing.T) {
	t.Parallel()
	svc, files, _ := newTestService(t, entity.About())
	files.saveErr = errors.New("disk full")

	_, err := svc.Create(context.Background(), Input{
		Fields: map[string]any{"description": "hi"},
		Files:  map[string][]uploads.File{"images": {png("images"), png("images")}},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"/uploads/file-1.png"}, files.deleted)
}

func TestCatalogService_Create_RejectsBadFiles(t *testing.T) {
	t.Parallel()
	svc, files, _ := newTestService(t, entity.Service())

	bad := png("photo")
	bad.ContentType = "text/plain"
	_, err := svc.Create(context.Background(), Input{
		Fields: yogaInput(),
		Files: map[string][]uploads.File{
			"photo":  {png("photo"), bad},
			"avatar": {png("avatar")},
		},
	})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.ElementsMatch(t, []string{
		"photo accepts at most 1 file(s)",
		"photo must be an image",
		"unexpected file field avatar",
	}, apperr.MessagesOf(err))
	assert.Empty(t, files.saved)
}

func TestCatalogService_Update_ReplacesPhotoAfterCommit(t *testing.T) {
	t.Parallel()
	svc, files, pub := newTestService(t, entity.Service())
	ctx := context.Background()

	rec, err := svc.Create(ctx, Input{Fields: yogaInput(), Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, rec.ID(), Input{Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.NoError(t, err)

	assert.Equal(t, "/uploads/file-2.png", updated["photo"])
	assert.Equal(t, []string{"/uploads/file-1.png"}, files.deleted)
	require.Len(t, pub.events, 2)
	assert.Equal(t, events.RecordUpdated, pub.events[1].Type)
}

func TestCatalogService_Update_PlaceholderIsNeverDeleted(t *testing.T) {
	t.Parallel()
	svc, files, _ := newTestService(t, entity.Service())
	ctx := context.Background()

	rec, err := svc.Create(ctx, Input{Fields: yogaInput()})
	require.NoError(t, err)

	_, err = svc.Update(ctx, rec.ID(), Input{Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.NoError(t, err)
	assert.Empty(t, files.deleted)
}

func TestCatalogService_Update_FailureKeepsOldPhoto(t *testing.T) {
	t.Parallel()
	svc, files, _ := newTestService(t, entity.Service())
	ctx := context.Background()

	rec, err := svc.Create(ctx, Input{Fields: yogaInput(), Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.NoError(t, err)

	_, err = svc.Update(ctx, rec.ID(), Input{
		Fields: map[string]any{"price": strings.Repeat("9", 51)},
		Files:  map[string][]uploads.File{"photo": {png("photo")}},
	})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, []string{"/uploads/file-2.png"}, files.deleted)

	got, err := svc.Get(ctx, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, "/uploads/file-1.png", got["photo"])
}

func TestCatalogService_Update_MissingRecordSavesNothing(t *testing.T) {
	t.Parallel()
	svc, files, _ := newTestService(t, entity.Service())

	_, err := svc.Update(context.Background(), "bogus", Input{Files: map[string][]uploads.File{"photo": {png("photo")}}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, files.saved)
}

func TestCatalogService_Update_AboutReplacesGallery(t *testing.T) {
	t.Parallel()
	svc, files, _ := newTestService(t, entity.About())
	ctx := context.Background()

	rec, err := svc.Create(ctx, Input{
		Fields: map[string]any{"description": "hi"},
		Files:  map[string][]uploads.File{"images": {png("images"), png("images")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/file-1.png", "/uploads/file-2.png"}, rec["images"])

	updated, err := svc.Update(ctx, rec.ID(), Input{Files: map[string][]uploads.File{"images": {png("images")}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/file-3.png"}, updated["images"])
	assert.ElementsMatch(t, []string{"/uploads/file-1.png", "/uploads/file-2.png"}, files.deleted)
}

func TestCatalogService_Delete_RemovesFiles(t *testing.T) {
	t.Parallel()
	svc, files, pub := newTestService(t, entity.Service())
	ctx := context.Background()

	rec, err := svc.Create(ctx, Input{Fields: yogaInput(), Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/file-1.png"}, files.deleted)

	last := pub.events[len(pub.events)-1]
	assert.Equal(t, events.RecordDeleted, last.Type)
	assert.Nil(t, last.Record)

	_, err = svc.Get(ctx, rec.ID())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCatalogService_PublishFailureDoesNotFailWrite(t *testing.T) {
	t.Parallel()
	svc, _, pub := newTestService(t, entity.Product())
	pub.err = errors.New("broker down")

	rec, err := svc.Create(context.Background(), Input{Fields: map[string]any{"name": "Guide", "description": "pdf", "price": "free"}})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID())
}

func TestCatalogService_UserEventCarriesFullName(t *testing.T) {
	t.Parallel()
	svc, _, pub := newTestService(t, entity.User())

	_, err := svc.Create(context.Background(), Input{Fields: validUser("ada", "ada@example.com")})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "Ada Lovelace", pub.events[0].Record["fullName"])
}

func TestCatalogService_Create_CancelledRequestStillRemovesUpload(t *testing.T) {
	t.Parallel()
	svc, _, files := newCtxService(t, entity.Service())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Create(ctx, Input{Fields: yogaInput(), Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.True(t, apperr.Is(err, apperr.KindInternal))
	require.Len(t, files.saved, 1)
	assert.Equal(t, files.saved, files.deleted)
}

func TestCatalogService_Update_CancelledRequestStillRemovesUpload(t *testing.T) {
	t.Parallel()
	svc, _, files := newCtxService(t, entity.Service())

	rec, err := svc.Create(context.Background(), Input{Fields: yogaInput(), Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Update(ctx, rec.ID(), Input{Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.Error(t, err)
	assert.Equal(t, []string{"/uploads/file-2.png"}, files.deleted)

	got, err := svc.Get(context.Background(), rec.ID())
	require.NoError(t, err)
	assert.Equal(t, "/uploads/file-1.png", got["photo"])
}

func TestCatalogService_Update_RemovesPhotoWrittenByConcurrentUpdate(t *testing.T) {
	t.Parallel()
	svc, store, files := newCtxService(t, entity.Service())
	ctx := context.Background()

	rec, err := svc.Create(ctx, Input{Fields: yogaInput(), Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.NoError(t, err)

	// another request swaps the photo between our lookup and our write
	store.beforeUpdate = func() {
		_, _, err := store.DocumentStore.FindOneAndUpdate(ctx, "services", rec.ID(), map[string]any{"photo": "/uploads/other.png"})
		require.NoError(t, err)
	}

	updated, err := svc.Update(ctx, rec.ID(), Input{Files: map[string][]uploads.File{"photo": {png("photo")}}})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/file-2.png", updated["photo"])
	assert.Equal(t, []string{"/uploads/other.png"}, files.deleted)
}
