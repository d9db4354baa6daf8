package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
)

// ErrNoDocument is returned when a lookup by id matches nothing.
var ErrNoDocument = errors.New("document not found")

// DuplicateKeyError reports a unique index violation. Fields lists the
// offending document fields when the backend can tell.
type DuplicateKeyError struct {
	Fields []string
	Err    error
}

func (e *DuplicateKeyError) Error() string {
	if len(e.Fields) > 0 {
		return "duplicate key: " + strings.Join(e.Fields, ", ")
	}
	return "duplicate key"
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// Filter selects documents. Search matches a case-insensitive substring in any
// of SearchFields; Equals requires exact values; ExcludeID skips one document.
type Filter struct {
	Search       string
	SearchFields []string
	Equals       map[string]any
	ExcludeID    string
}

// FindOptions pages and orders a Find.
type FindOptions struct {
	Skip      int64
	Limit     int64
	SortField string
	SortDesc  bool
}

// DocumentStore is the persistence capability every entity repository is
// built on. Implementations assign ids on insert and return records with the
// "id" key set. set keys passed to FindOneAndUpdate may be dotted paths into
// nested objects; it returns the document as it was replaced and as stored,
// both taken from the same atomic write.
type DocumentStore interface {
	ValidID(id string) bool
	InsertOne(ctx context.Context, collection string, doc entity.Record) (entity.Record, error)
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]entity.Record, error)
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	FindOne(ctx context.Context, collection, id string) (entity.Record, error)
	FindOneAndUpdate(ctx context.Context, collection, id string, set map[string]any) (before, after entity.Record, err error)
	FindOneAndDelete(ctx context.Context, collection, id string) (entity.Record, error)
	EnsureIndexes(ctx context.Context, collection string, unique []string) error
}
