package application

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/oksasatya/linkfolio-api/internal/domain/apperr"
	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/domain/repository"
	"github.com/oksasatya/linkfolio-api/internal/domain/schema"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps the skip offset representable for any limit.
	MaxPage = math.MaxInt / MaxLimit
)

// ListQuery is the paging and search input of List.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// Page is one page of records plus totals.
type Page struct {
	Items      []entity.Record
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// RecordRepository is the single CRUD engine shared by every entity kind. It
// sanitizes input against the kind's schema, stamps timestamps and translates
// store failures into apperr kinds.
type RecordRepository struct {
	kind  entity.Kind
	store repository.DocumentStore
	now   func() time.Time
}

func NewRecordRepository(kind entity.Kind, store repository.DocumentStore) *RecordRepository {
	return &RecordRepository{kind: kind, store: store, now: time.Now}
}

func (r *RecordRepository) Kind() entity.Kind { return r.kind }

// EnsureIndexes creates the unique indexes the kind declares.
func (r *RecordRepository) EnsureIndexes(ctx context.Context) error {
	return r.store.EnsureIndexes(ctx, r.kind.Name, r.kind.UniqueFields)
}

func (r *RecordRepository) Create(ctx context.Context, input map[string]any) (entity.Record, error) {
	doc, err := schema.Sanitize(r.kind.Fields, input, schema.Full)
	if err != nil {
		return nil, err
	}
	if err := r.checkUnique(ctx, doc, ""); err != nil {
		return nil, err
	}
	now := r.stamp()
	doc[entity.FieldCreatedAt] = now
	doc[entity.FieldUpdatedAt] = now

	rec, err := r.store.InsertOne(ctx, r.kind.Name, entity.Record(doc))
	if err != nil {
		return nil, r.translate(err)
	}
	return rec, nil
}

func (r *RecordRepository) List(ctx context.Context, q ListQuery) (*Page, error) {
	page := q.Page
	switch {
	case page < 1:
		page = DefaultPage
	case page > MaxPage:
		page = MaxPage
	}
	limit := q.Limit
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 1:
		limit = 1
	case limit > MaxLimit:
		limit = MaxLimit
	}

	filter := repository.Filter{}
	if term := strings.TrimSpace(q.Search); term != "" {
		filter.Search = term
		filter.SearchFields = r.kind.SearchFields
	}

	total, err := r.store.Count(ctx, r.kind.Name, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	items, err := r.store.Find(ctx, r.kind.Name, filter, repository.FindOptions{
		Skip:      int64(page-1) * int64(limit),
		Limit:     int64(limit),
		SortField: entity.FieldCreatedAt,
		SortDesc:  true,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if items == nil {
		items = []entity.Record{}
	}
	return &Page{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func (r *RecordRepository) FindByID(ctx context.Context, id string) (entity.Record, error) {
	if !r.store.ValidID(id) {
		return nil, apperr.Validation("invalid id")
	}
	rec, err := r.store.FindOne(ctx, r.kind.Name, id)
	if err != nil {
		return nil, r.translate(err)
	}
	return rec, nil
}

// Update applies a partial update. Fields missing from input keep their
// stored values.
func (r *RecordRepository) Update(ctx context.Context, id string, input map[string]any) (entity.Record, error) {
	_, rec, err := r.UpdateWithPrevious(ctx, id, input)
	return rec, err
}

// UpdateWithPrevious is Update that also returns the record exactly as the
// write replaced it, for callers that clean up what the update swapped out.
func (r *RecordRepository) UpdateWithPrevious(ctx context.Context, id string, input map[string]any) (before, after entity.Record, err error) {
	if len(input) == 0 {
		return nil, nil, apperr.Validation("no fields to update")
	}
	if !r.store.ValidID(id) {
		return nil, nil, apperr.Validation("invalid id")
	}
	set, err := schema.Sanitize(r.kind.Fields, input, schema.Partial)
	if err != nil {
		return nil, nil, err
	}
	if len(set) == 0 {
		return nil, nil, apperr.Validation("no fields to update")
	}
	prev, err := r.store.FindOne(ctx, r.kind.Name, id)
	if err != nil {
		return nil, nil, r.translate(err)
	}
	if err := r.checkUnique(ctx, set, id); err != nil {
		return nil, nil, err
	}

	// updatedAt must move forward even when two writes land in the same
	// millisecond.
	now := r.stamp()
	if last := prev.Time(entity.FieldUpdatedAt); !now.After(last) {
		now = last.Add(time.Millisecond)
	}
	set[entity.FieldUpdatedAt] = now

	before, after, err = r.store.FindOneAndUpdate(ctx, r.kind.Name, id, set)
	if err != nil {
		return nil, nil, r.translate(err)
	}
	return before, after, nil
}

// Delete removes the record and returns it so callers can clean up its files.
func (r *RecordRepository) Delete(ctx context.Context, id string) (entity.Record, error) {
	if !r.store.ValidID(id) {
		return nil, apperr.Validation("invalid id")
	}
	rec, err := r.store.FindOneAndDelete(ctx, r.kind.Name, id)
	if err != nil {
		return nil, r.translate(err)
	}
	return rec, nil
}

// checkUnique is an early exit for the common duplicate case. The store's
// unique index still decides races.
func (r *RecordRepository) checkUnique(ctx context.Context, doc map[string]any, selfID string) error {
	var dups []string
	for _, f := range r.kind.UniqueFields {
		v, ok := doc[f]
		if !ok {
			continue
		}
		n, err := r.store.Count(ctx, r.kind.Name, repository.Filter{
			Equals:    map[string]any{f: v},
			ExcludeID: selfID,
		})
		if err != nil {
			return apperr.Internal(err)
		}
		if n > 0 {
			dups = append(dups, f)
		}
	}
	if len(dups) > 0 {
		return apperr.Conflict(dups...)
	}
	return nil
}

func (r *RecordRepository) translate(err error) error {
	if errors.Is(err, repository.ErrNoDocument) {
		return apperr.NotFound(r.kind.Singular + " not found")
	}
	var dup *repository.DuplicateKeyError
	if errors.As(err, &dup) {
		fields := dup.Fields
		if len(fields) == 0 {
			fields = r.kind.UniqueFields
		}
		return apperr.Conflict(fields...)
	}
	return apperr.Internal(err)
}

func (r *RecordRepository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}
