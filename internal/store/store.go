// Package store implements the relational data model of §3 on Postgres,
// one file per aggregate, grounded on the pgxpool + raw-SQL idiom used by
// dmorn-m4d-coso/schema.go and vanducng-goclaw/internal/store/pg. No ORM:
// every query is hand-written, matching the teacher's opencart SQL client.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by single-row lookups that find nothing; callers
// generally treat it as a user-visible logic message, not a system error.
var ErrNotFound = errors.New("store: not found")

const uniqueViolation = "23505"

// Store bundles a connection pool; it exclusively serves the Worker
// process (§3 "Ownership"). Poller and Sender never construct one.
type Store struct {
	pool *pgxpool.Pool
}

// Open dials Postgres, retrying a few times so the Worker can start before
// the database container is fully up (same idiom as the teacher's
// opencart/database/sql-client.go ping retry loop).
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}

	var pingErr error
	for i := 0; i < 5; i++ {
		pingErr = pool.Ping(ctx)
		if pingErr == nil {
			break
		}
		if i == 4 {
			pool.Close()
			return nil, fmt.Errorf("store: ping: %w", pingErr)
		}
		time.Sleep(3 * time.Second)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// isIgnorableConflict reports whether err is a unique-violation that a
// caller's insert-or-ignore statement should swallow as success (§7:
// "Database integrity violation ... treat as success"). Kept for callers
// that cannot express the conflict purely in SQL (ON CONFLICT DO NOTHING
// covers most cases already).
func isIgnorableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
