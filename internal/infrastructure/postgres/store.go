package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/domain/repository"
)

const uniqueViolation = "23505"

// Store keeps each collection in its own table as a JSONB document:
//
//	(id uuid, seq bigserial, doc jsonb, created_at timestamptz)
//
// Tables and unique expression indexes come from the migrations; EnsureIndexes
// only re-asserts the indexes.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ repository.DocumentStore = (*Store)(nil)

func table(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

func indexName(collection, field string) string {
	return collection + "_" + field + "_key"
}

func (s *Store) ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Store) EnsureIndexes(ctx context.Context, collection string, unique []string) error {
	for _, f := range unique {
		sql := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ((doc->>%s))`,
			pgx.Identifier{indexName(collection, f)}.Sanitize(), table(collection), quoteLiteral(f))
		if _, err := s.pool.Exec(ctx, sql); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc entity.Record) (entity.Record, error) {
	body := doc.Clone()
	delete(body, entity.FieldID)
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+table(collection)+` (doc, created_at) VALUES ($1, $2) RETURNING id::text`,
		b, body.Time(entity.FieldCreatedAt),
	).Scan(&id)
	if err != nil {
		return nil, translate(collection, err)
	}
	body[entity.FieldID] = id
	return body, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter repository.Filter, opts repository.FindOptions) ([]entity.Record, error) {
	where, args := buildWhere(filter)
	sql := `SELECT id::text, doc FROM ` + table(collection) + where
	if opts.SortField != "" {
		dir := "ASC"
		if opts.SortDesc {
			dir = "DESC"
		}
		if opts.SortField == entity.FieldCreatedAt {
			sql += " ORDER BY created_at " + dir + ", seq " + dir
		} else {
			args = append(args, opts.SortField)
			sql += fmt.Sprintf(" ORDER BY doc->>($%d::text) %s, seq %s", len(args), dir, dir)
		}
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Skip > 0 {
		args = append(args, opts.Skip)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, collection string, filter repository.Filter) (int64, error) {
	where, args := buildWhere(filter)
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+table(collection)+where, args...).Scan(&n)
	return n, err
}

func (s *Store) FindOne(ctx context.Context, collection, id string) (entity.Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT id::text, doc FROM `+table(collection)+` WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, translate(collection, err)
	}
	return rec, nil
}

// FindOneAndUpdate locks the row, merges set into the document and writes it
// back in one transaction.
func (s *Store) FindOneAndUpdate(ctx context.Context, collection, id string, set map[string]any) (entity.Record, entity.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT id::text, doc FROM `+table(collection)+` WHERE id = $1 FOR UPDATE`, id)
	before, err := scanRecord(row)
	if err != nil {
		return nil, nil, translate(collection, err)
	}
	after := before.Clone()
	repository.ApplySet(after, set)
	body := after.Clone()
	delete(body, entity.FieldID)
	b, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE `+table(collection)+` SET doc = $2 WHERE id = $1`, id, b); err != nil {
		return nil, nil, translate(collection, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, translate(collection, err)
	}
	return before, after, nil
}

func (s *Store) FindOneAndDelete(ctx context.Context, collection, id string) (entity.Record, error) {
	row := s.pool.QueryRow(ctx, `DELETE FROM `+table(collection)+` WHERE id = $1 RETURNING id::text, doc`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, translate(collection, err)
	}
	return rec, nil
}

func buildWhere(f repository.Filter) (string, []any) {
	var conds []string
	var args []any
	for k, v := range f.Equals {
		args = append(args, k, fmt.Sprint(v))
		conds = append(conds, fmt.Sprintf("doc->>($%d::text) = $%d", len(args)-1, len(args)))
	}
	if f.ExcludeID != "" {
		args = append(args, f.ExcludeID)
		conds = append(conds, fmt.Sprintf("id::text <> $%d", len(args)))
	}
	if f.Search != "" && len(f.SearchFields) > 0 {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		p := len(args)
		ors := make([]string, 0, len(f.SearchFields))
		for _, field := range f.SearchFields {
			args = append(args, field)
			ors = append(ors, fmt.Sprintf("doc->>($%d::text) ILIKE $%d", len(args), p))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func scanRecord(row pgx.Row) (entity.Record, error) {
	var id string
	var doc map[string]any
	if err := row.Scan(&id, &doc); err != nil {
		return nil, err
	}
	rec := entity.Record(doc)
	rec[entity.FieldID] = id
	for _, f := range []string{entity.FieldCreatedAt, entity.FieldUpdatedAt} {
		if s, ok := rec[f].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				rec[f] = t.UTC()
			}
		}
	}
	return rec, nil
}

func translate(collection string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNoDocument
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		field := strings.TrimSuffix(strings.TrimPrefix(pgErr.ConstraintName, collection+"_"), "_key")
		var fields []string
		if field != "" {
			fields = append(fields, field)
		}
		return &repository.DuplicateKeyError{Fields: fields, Err: err}
	}
	return err
}
