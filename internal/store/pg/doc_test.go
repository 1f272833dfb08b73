package pg

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/store"
)

func TestBuildListQueryAppliesFilters(t *testing.T) {
	query, args := buildListQuery("networks", store.ListFilter{Name: "corp", Page: 2, Size: 10})
	require.Contains(t, query, "AND name = $1")
	require.Contains(t, query, "ORDER BY name ASC")
	require.Contains(t, query, "LIMIT 10 OFFSET 10")
	require.Equal(t, []any{"corp"}, args)
}

func TestBuildListQueryIDIn(t *testing.T) {
	query, args := buildListQuery("networks", store.ListFilter{IDIn: []string{"a", "b"}})
	require.Contains(t, query, "id = ANY($1)")
	require.Equal(t, []any{[]string{"a", "b"}}, args)
}

func TestOrderByClauseRejectsUnknownField(t *testing.T) {
	require.Equal(t, "name ASC", orderByClause("garbage"))
	require.Equal(t, "created_at DESC", orderByClause("-created_at"))
	require.Equal(t, "id ASC", orderByClause("+id"))
}

func TestIsUniqueViolationMatchesPgErrorCode(t *testing.T) {
	require.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, isUniqueViolation(nil))
	require.True(t, isUniqueViolation(errors.New("duplicate key value violates unique constraint")))
}

func TestInsertColumnSplicesSelectList(t *testing.T) {
	query, _ := buildListQuery("policies", store.ListFilter{})
	spliced := insertColumn(query, "edited")
	require.Contains(t, spliced, "SELECT id, name, edited, data")
}
