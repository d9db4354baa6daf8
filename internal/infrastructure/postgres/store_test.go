package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/linkfolio-api/internal/domain/repository"
)

func TestBuildWhere_Empty(t *testing.T) {
	t.Parallel()

	where, args := buildWhere(repository.Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildWhere_EqualsAndExclude(t *testing.T) {
	t.Parallel()

	where, args := buildWhere(repository.Filter{
		Equals:    map[string]any{"email": "a@b.co"},
		ExcludeID: "5d0c6a1e-0000-4000-8000-000000000000",
	})
	assert.Equal(t, " WHERE doc->>($1::text) = $2 AND id::text <> $3", where)
	assert.Equal(t, []any{"email", "a@b.co", "5d0c6a1e-0000-4000-8000-000000000000"}, args)
}

func TestBuildWhere_SearchEscapesLike(t *testing.T) {
	t.Parallel()

	where, args := buildWhere(repository.Filter{Search: "50%_off", SearchFields: []string{"name", "description"}})
	assert.Equal(t, " WHERE (doc->>($2::text) ILIKE $1 OR doc->>($3::text) ILIKE $1)", where)
	assert.Equal(t, []any{`%50\%\_off%`, "name", "description"}, args)
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, translate("users", pgx.ErrNoRows), repository.ErrNoDocument)

	pgErr := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"}
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, translate("users", fmt.Errorf("insert: %w", pgErr)), &dup)
	assert.Equal(t, []string{"email"}, dup.Fields)

	other := errors.New("connection reset")
	assert.Equal(t, other, translate("users", other))
}

func TestIdentifiers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"users"`, table("users"))
	assert.Equal(t, "workshops_link_key", indexName("workshops", "link"))
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
}
