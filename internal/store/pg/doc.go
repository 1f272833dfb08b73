package pg

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/store"
)

func newID() string { return uuid.NewString() }

// docRow is the shape shared by every JSONB-document table: an id/name
// pair Postgres indexes directly, plus the nested structure as JSON.
type docRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// error, so callers can translate it into apperr.Conflict the way spec §5
// requires ("the handler performs a pre-check... but MUST rely on the
// constraint for correctness").
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}

func wrapNotFound(err error, resource, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(resource, id)
	}
	return err
}

func buildListQuery(table string, f store.ListFilter) (string, []any) {
	query := fmt.Sprintf("SELECT id, name, data, created_at, updated_at FROM %s WHERE 1=1", table)
	var args []any
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if f.ID != "" {
		query += " AND id = " + arg(f.ID)
	}
	if len(f.IDIn) > 0 {
		query += " AND id = ANY(" + arg(f.IDIn) + ")"
	}
	if f.Name != "" {
		query += " AND name = " + arg(f.Name)
	}
	if f.NameILike != "" {
		query += " AND name ILIKE " + arg("%"+f.NameILike+"%")
	}

	query += " ORDER BY " + orderByClause(f.OrderBy)

	if f.Size > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Size, pageOffset(f))
	}
	return query, args
}

func orderByClause(orderBy string) string {
	if orderBy == "" {
		return "name ASC"
	}
	dir := "ASC"
	field := orderBy
	if orderBy[0] == '+' || orderBy[0] == '-' {
		field = orderBy[1:]
		if orderBy[0] == '-' {
			dir = "DESC"
		}
	}
	switch field {
	case "id", "name", "created_at", "updated_at":
		return field + " " + dir
	default:
		return "name ASC"
	}
}

func pageOffset(f store.ListFilter) int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.Size
}

func marshalDoc(v any) ([]byte, error) {
	return json.Marshal(v)
}
