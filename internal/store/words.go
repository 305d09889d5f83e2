package store

import (
	"context"
	"fmt"
	"strings"

	"citywords/entity"
)

func (s *Store) FindWordByName(ctx context.Context, name string) (*entity.Word, error) {
	var w entity.Word
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM words WHERE name = $1`,
		strings.ToUpper(name),
	).Scan(&w.Id, &w.Name)
	if noRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find word: %w", err)
	}
	return &w, nil
}

// EnsureWord inserts the word into the global dictionary of words ever
// accepted if it isn't already there, and returns its id either way.
func (s *Store) EnsureWord(ctx context.Context, name string) (int64, error) {
	name = strings.ToUpper(name)
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO words (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: ensure word: %w", err)
	}
	return id, nil
}

// MarkWordUsed records a word as played in this session. Unique on
// (session_id, word_id) — a duplicate call is ignored.
func (s *Store) MarkWordUsed(ctx context.Context, sessionId, wordId int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO words_used (session_id, word_id) VALUES ($1, $2)
		 ON CONFLICT (session_id, word_id) DO NOTHING`,
		sessionId, wordId,
	)
	if err != nil {
		return fmt.Errorf("store: mark word used: %w", err)
	}
	return nil
}

func (s *Store) WordUsedInSession(ctx context.Context, sessionId int64, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM words_used wu
			JOIN words w ON w.id = wu.word_id
			WHERE wu.session_id = $1 AND w.name = $2
		 )`,
		sessionId, strings.ToUpper(name),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: word used in session: %w", err)
	}
	return exists, nil
}
