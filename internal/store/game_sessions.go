package store

import (
	"context"
	"fmt"

	"citywords/entity"
)

func scanSession(row interface {
	Scan(dest ...any) error
}) (*entity.GameSession, error) {
	var s entity.GameSession
	err := row.Scan(
		&s.Id, &s.ChatId, &s.Kind, &s.Active, &s.NextStartLetter, &s.NextUserId,
		&s.CurrentPollId, &s.PendingPollWord, &s.CreatorId, &s.Words, &s.ResponseTimeSec, &s.PollTimeSec,
		&s.Anonymous, &s.StartingLives, &s.CreatedAt,
	)
	if noRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan session: %w", err)
	}
	return &s, nil
}

const sessionColumns = `id, chat_id, kind, is_active, next_start_letter, next_user_id,
	coalesce(current_poll_id, ''), coalesce(pending_poll_word, ''), creator_id, words, response_time_sec, poll_time_sec,
	anonymous, starting_lives, created_at`

// GetActiveSession returns the in-force session for a chat (I P1: at most
// one such row exists).
func (s *Store) GetActiveSession(ctx context.Context, chatId int64) (*entity.GameSession, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE chat_id = $1 AND is_active = true`,
		chatId,
	)
	return scanSession(row)
}

func (s *Store) GetSession(ctx context.Context, id int64) (*entity.GameSession, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetSessionByPollId looks up the session currently paused on pollId.
// After PollResult clears current_poll_id this returns ErrNotFound, which
// is how a duplicate poll_result becomes a no-op (§4.3.4 iv).
func (s *Store) GetSessionByPollId(ctx context.Context, pollId string) (*entity.GameSession, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE current_poll_id = $1`,
		pollId,
	)
	return scanSession(row)
}

// CreateSession inserts a new session. The caller must ensure no other
// active session exists for the chat (checked by the Worker before
// calling, and enforced by a partial unique index as a backstop).
func (s *Store) CreateSession(ctx context.Context, sess *entity.GameSession) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO game_sessions
			(chat_id, kind, is_active, next_start_letter, next_user_id, current_poll_id,
			 pending_poll_word, creator_id, words, response_time_sec, poll_time_sec, anonymous, starting_lives)
		 VALUES ($1, $2, true, $3, $4, NULL, NULL, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		sess.ChatId, sess.Kind, sess.NextStartLetter, sess.NextUserId, sess.CreatorId,
		sess.Words, sess.ResponseTimeSec, sess.PollTimeSec, sess.Anonymous, sess.StartingLives,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: create session: %w", err)
	}
	return id, nil
}

func (s *Store) DeactivateSession(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE game_sessions SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: deactivate session: %w", err)
	}
	return nil
}

func (s *Store) SetNextLetter(ctx context.Context, id int64, letter string) error {
	_, err := s.pool.Exec(ctx, `UPDATE game_sessions SET next_start_letter = $2 WHERE id = $1`, id, letter)
	if err != nil {
		return fmt.Errorf("store: set next letter: %w", err)
	}
	return nil
}

func (s *Store) SetNextUser(ctx context.Context, id int64, userId int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE game_sessions SET next_user_id = $2 WHERE id = $1`, id, userId)
	if err != nil {
		return fmt.Errorf("store: set next user: %w", err)
	}
	return nil
}

// SetCurrentPoll acts as the poll-vs-turn lock (I2, §4.3.4 iii): while
// non-null, slow_player timeouts are dropped and pickLeader refuses to run.
// word is the pending submission under vote, recalled by PollResult.
func (s *Store) SetCurrentPoll(ctx context.Context, id int64, pollId, word string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET current_poll_id = $2, pending_poll_word = $3 WHERE id = $1`,
		id, pollId, word,
	)
	if err != nil {
		return fmt.Errorf("store: set current poll: %w", err)
	}
	return nil
}

func (s *Store) ClearCurrentPoll(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET current_poll_id = NULL, pending_poll_word = NULL WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("store: clear current poll: %w", err)
	}
	return nil
}

func (s *Store) AppendSessionWord(ctx context.Context, id int64, word string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET words = trim(both ',' from words || ',' || $2) WHERE id = $1`,
		id, word,
	)
	if err != nil {
		return fmt.Errorf("store: append session word: %w", err)
	}
	return nil
}
