// Package pg implements store.Store against Postgres using pgx/v5 as the
// database/sql driver and sqlx for scanning convenience, the way the
// teacher wires its own relational backends. Nested authoring structures
// (NetworkAddress, PolicyTerm, TestCase, ...) are persisted as JSONB
// columns on their owning row rather than normalized into join tables —
// DESIGN.md records why.
package pg

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
)

// Store wraps a *sqlx.DB and implements store.Store.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres via the pgx stdlib driver and wraps the
// resulting *sql.DB with sqlx.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }
