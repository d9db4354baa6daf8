package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/linkfolio-api/internal/domain/apperr"
	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/uploads"
	"github.com/oksasatya/linkfolio-api/pkg/events"
)

// FileStore is the part of uploads.Manager the service relies on.
type FileStore interface {
	Check(f uploads.File) error
	Save(ctx context.Context, f uploads.File) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Input is a create or update request: plain fields plus uploaded files keyed
// by image field name.
type Input struct {
	Fields map[string]any
	Files  map[string][]uploads.File
}

const cleanupTimeout = 10 * time.Second

// CatalogService runs one entity kind end to end. Files are written before
// the store call and removed again if that call fails; replaced files are
// removed only after the update commits.
type CatalogService struct {
	Kind   entity.Kind
	Repo   *RecordRepository
	Files  FileStore
	Events events.Publisher
	Logger *logrus.Logger
}

func NewCatalogService(repo *RecordRepository, files FileStore, pub events.Publisher, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		Kind:   repo.Kind(),
		Repo:   repo,
		Files:  files,
		Events: pub,
		Logger: logger,
	}
}

func (s *CatalogService) List(ctx context.Context, q ListQuery) (*Page, error) {
	return s.Repo.List(ctx, q)
}

func (s *CatalogService) Get(ctx context.Context, id string) (entity.Record, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, in Input) (entity.Record, error) {
	if err := s.checkFiles(in.Files); err != nil {
		return nil, err
	}
	fields, saved, err := s.attachFiles(ctx, in)
	if err != nil {
		return nil, err
	}
	rec, err := s.Repo.Create(ctx, fields)
	if err != nil {
		s.discard(ctx, saved)
		return nil, err
	}
	s.publish(ctx, events.RecordCreated, rec)
	return rec, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, in Input) (entity.Record, error) {
	if err := s.checkFiles(in.Files); err != nil {
		return nil, err
	}
	if len(in.Files) > 0 {
		// a bad id or missing record fails before any file is written
		if _, err := s.Repo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}
	fields, saved, err := s.attachFiles(ctx, in)
	if err != nil {
		return nil, err
	}
	before, rec, err := s.Repo.UpdateWithPrevious(ctx, id, fields)
	if err != nil {
		s.discard(ctx, saved)
		return nil, err
	}
	if len(in.Files) > 0 {
		s.discard(ctx, replaced(s.Kind, before, rec, in.Files))
	}
	s.publish(ctx, events.RecordUpdated, rec)
	return rec, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) (entity.Record, error) {
	rec, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.discard(ctx, s.Kind.References(rec))
	s.publish(ctx, events.RecordDeleted, rec)
	return rec, nil
}

func (s *CatalogService) checkFiles(files map[string][]uploads.File) error {
	var msgs []string
	for field, list := range files {
		img, ok := s.Kind.ImageField(field)
		if !ok {
			msgs = append(msgs, fmt.Sprintf("unexpected file field %s", field))
			continue
		}
		limit := img.MaxFiles
		if limit < 1 {
			limit = 1
		}
		if len(list) > limit {
			msgs = append(msgs, fmt.Sprintf("%s accepts at most %d file(s)", field, limit))
		}
		for _, f := range list {
			if err := s.Files.Check(f); err != nil {
				msgs = append(msgs, apperr.MessagesOf(err)...)
			}
		}
	}
	if len(msgs) > 0 {
		return apperr.Validation(msgs...)
	}
	return nil
}

// attachFiles saves uploads and returns the fields with image references set.
// Client-supplied values for image fields are ignored so references only ever
// point at stored files or placeholders.
func (s *CatalogService) attachFiles(ctx context.Context, in Input) (map[string]any, []string, error) {
	fields := make(map[string]any, len(in.Fields)+len(in.Files))
	for k, v := range in.Fields {
		if _, isImage := s.Kind.ImageField(k); isImage {
			continue
		}
		fields[k] = v
	}

	var saved []string
	for _, img := range s.Kind.Images {
		list := in.Files[img.Name]
		if len(list) == 0 {
			continue
		}
		refs := make([]string, 0, len(list))
		for _, f := range list {
			ref, err := s.Files.Save(ctx, f)
			if err != nil {
				s.discard(ctx, saved)
				return nil, nil, err
			}
			saved = append(saved, ref)
			refs = append(refs, ref)
		}
		if img.Multi {
			fields[img.Name] = refs
		} else {
			fields[img.Name] = refs[0]
		}
	}
	return fields, saved, nil
}

// replaced lists references held by before that the update swapped out.
func replaced(kind entity.Kind, before, after entity.Record, files map[string][]uploads.File) []string {
	keep := map[string]bool{}
	for _, ref := range kind.References(after) {
		keep[ref] = true
	}
	var out []string
	for _, img := range kind.Images {
		if len(files[img.Name]) == 0 {
			continue
		}
		old := before.Strings(img.Name)
		if !img.Multi {
			old = []string{before.String(img.Name)}
		}
		for _, ref := range old {
			if ref != "" && !kind.IsPlaceholder(ref) && !keep[ref] {
				out = append(out, ref)
			}
		}
	}
	return out
}

// discard removes files on a context detached from the request: the store
// call that failed may have failed because the request was cancelled.
func (s *CatalogService) discard(ctx context.Context, refs []string) {
	if len(refs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, ref := range refs {
		if err := s.Files.Delete(ctx, ref); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"collection": s.Kind.Name,
				"ref":        ref,
			}).Warn("failed to remove upload")
		}
	}
}

func (s *CatalogService) publish(ctx context.Context, typ events.Type, rec entity.Record) {
	if s.Events == nil {
		return
	}
	ev := events.RecordEvent{
		Type:       typ,
		Collection: s.Kind.Name,
		ID:         rec.ID(),
		OccurredAt: time.Now().UTC(),
	}
	if typ != events.RecordDeleted {
		ev.Record = s.Kind.Present(rec)
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.Events.PublishJSON(c, ev); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"collection": s.Kind.Name,
			"id":         ev.ID,
			"type":       typ,
		}).Warn("publish record event failed")
	}
}
