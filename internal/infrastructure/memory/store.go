package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/domain/repository"
)

type collection struct {
	docs   map[string]entity.Record
	order  map[string]int64
	unique []string
}

// Store is an in-memory DocumentStore. It enforces unique indexes the same
// way the database backends do, which makes it suitable for handler tests and
// local runs without a database.
type Store struct {
	mu          sync.RWMutex
	seq         int64
	collections map[string]*collection
}

func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

var _ repository.DocumentStore = (*Store)(nil)

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]entity.Record), order: make(map[string]int64)}
		s.collections[name] = c
	}
	return c
}

func (s *Store) ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Store) EnsureIndexes(ctx context.Context, name string, unique []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll(name).unique = append([]string{}, unique...)
	return nil
}

func (s *Store) InsertOne(ctx context.Context, name string, doc entity.Record) (entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	if err := c.checkUnique(doc, ""); err != nil {
		return nil, err
	}
	stored := doc.Clone()
	id := uuid.NewString()
	stored[entity.FieldID] = id
	s.seq++
	c.docs[id] = stored
	c.order[id] = s.seq
	return stored.Clone(), nil
}

func (s *Store) Find(ctx context.Context, name string, filter repository.Filter, opts repository.FindOptions) ([]entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.coll(name)
	matched := c.match(filter)
	sortField := opts.SortField
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if sortField != "" {
			ta, tb := a.Time(sortField), b.Time(sortField)
			if !ta.Equal(tb) {
				if opts.SortDesc {
					return ta.After(tb)
				}
				return ta.Before(tb)
			}
		}
		if opts.SortDesc {
			return c.order[a.ID()] > c.order[b.ID()]
		}
		return c.order[a.ID()] < c.order[b.ID()]
	})

	start := opts.Skip
	if start < 0 {
		start = 0
	}
	if start > int64(len(matched)) {
		start = int64(len(matched))
	}
	end := int64(len(matched))
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	out := make([]entity.Record, 0, end-start)
	for _, d := range matched[start:end] {
		out = append(out, d.Clone())
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, name string, filter repository.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.coll(name).match(filter))), nil
}

func (s *Store) FindOne(ctx context.Context, name, id string) (entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.coll(name).docs[id]
	if !ok {
		return nil, repository.ErrNoDocument
	}
	return d.Clone(), nil
}

func (s *Store) FindOneAndUpdate(ctx context.Context, name, id string, set map[string]any) (entity.Record, entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	d, ok := c.docs[id]
	if !ok {
		return nil, nil, repository.ErrNoDocument
	}
	next := d.Clone()
	repository.ApplySet(next, set)
	if err := c.checkUnique(next, id); err != nil {
		return nil, nil, err
	}
	c.docs[id] = next
	return d.Clone(), next.Clone(), nil
}

func (s *Store) FindOneAndDelete(ctx context.Context, name, id string) (entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	d, ok := c.docs[id]
	if !ok {
		return nil, repository.ErrNoDocument
	}
	delete(c.docs, id)
	delete(c.order, id)
	return d, nil
}

func (c *collection) checkUnique(doc entity.Record, selfID string) error {
	var dups []string
	for _, field := range c.unique {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		for id, other := range c.docs {
			if id == selfID {
				continue
			}
			if fmt.Sprint(other[field]) == fmt.Sprint(v) {
				dups = append(dups, field)
				break
			}
		}
	}
	if len(dups) > 0 {
		return &repository.DuplicateKeyError{Fields: dups}
	}
	return nil
}

func (c *collection) match(f repository.Filter) []entity.Record {
	term := strings.ToLower(f.Search)
	out := make([]entity.Record, 0, len(c.docs))
	for id, d := range c.docs {
		if f.ExcludeID != "" && id == f.ExcludeID {
			continue
		}
		if !matchEquals(d, f.Equals) {
			continue
		}
		if term != "" && !matchSearch(d, f.SearchFields, term) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func matchEquals(d entity.Record, eq map[string]any) bool {
	for k, v := range eq {
		if fmt.Sprint(d[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func matchSearch(d entity.Record, fields []string, term string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(d.String(f)), term) {
			return true
		}
	}
	return false
}
