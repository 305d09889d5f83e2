package store

import (
	"context"
	"fmt"

	"citywords/entity"
)

// AddUserToTeam binds a user to a pending/active group session with a
// starting life count. Idempotent (§4.3.4 i): ON CONFLICT DO NOTHING, so a
// duplicate "/yes" callback never resets a player's progress.
func (s *Store) AddUserToTeam(ctx context.Context, sessionId, userId int64, startingLives int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_game_sessions (game_session_id, user_id, lives, round_, point, last_poll_vote)
		 VALUES ($1, $2, $3, 0, 0, 0)
		 ON CONFLICT (game_session_id, user_id) DO NOTHING`,
		sessionId, userId, startingLives,
	)
	if err != nil {
		return fmt.Errorf("store: add user to team: %w", err)
	}
	return nil
}

func scanPlayer(row interface{ Scan(dest ...any) error }) (*entity.UserGameSession, error) {
	var p entity.UserGameSession
	err := row.Scan(&p.GameSessionId, &p.UserId, &p.Lives, &p.Round, &p.Points, &p.LastPollVote)
	if noRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan player: %w", err)
	}
	return &p, nil
}

const playerColumns = `game_session_id, user_id, lives, round_, point, last_poll_vote`

func (s *Store) GetPlayer(ctx context.Context, sessionId, userId int64) (*entity.UserGameSession, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM user_game_sessions WHERE game_session_id = $1 AND user_id = $2`,
		sessionId, userId,
	)
	return scanPlayer(row)
}

// AliveTeam returns every player with lives remaining, ordered so that
// players who have played the fewest rounds come first (§4.3.3 step 1).
func (s *Store) AliveTeam(ctx context.Context, sessionId int64) ([]*entity.UserGameSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+playerColumns+` FROM user_game_sessions
		 WHERE game_session_id = $1 AND lives > 0
		 ORDER BY round_ ASC, user_id ASC`,
		sessionId,
	)
	if err != nil {
		return nil, fmt.Errorf("store: alive team: %w", err)
	}
	defer rows.Close()

	var players []*entity.UserGameSession
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// AllPlayers returns every player who ever joined the session, for
// end-of-game stats rollup, ordered by points descending.
func (s *Store) AllPlayers(ctx context.Context, sessionId int64) ([]*entity.UserGameSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+playerColumns+` FROM user_game_sessions WHERE game_session_id = $1 ORDER BY point DESC`,
		sessionId,
	)
	if err != nil {
		return nil, fmt.Errorf("store: all players: %w", err)
	}
	defer rows.Close()

	var players []*entity.UserGameSession
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// DecrementLife applies a single life loss. Idempotency against duplicate
// delivery is the caller's job (§4.3.4 ii): the handler must only call
// this once per logical event, checked against the captured Round.
func (s *Store) DecrementLife(ctx context.Context, sessionId, userId int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_game_sessions SET lives = lives - 1
		 WHERE game_session_id = $1 AND user_id = $2 AND lives > 0`,
		sessionId, userId,
	)
	if err != nil {
		return fmt.Errorf("store: decrement life: %w", err)
	}
	return nil
}

// RightWord increments a player's points and round together (right_word,
// §4.3.3) — always applied as one statement so a crash between the two
// can't happen.
func (s *Store) RightWord(ctx context.Context, sessionId, userId int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_game_sessions SET point = point + 1, round_ = round_ + 1
		 WHERE game_session_id = $1 AND user_id = $2`,
		sessionId, userId,
	)
	if err != nil {
		return fmt.Errorf("store: right word: %w", err)
	}
	return nil
}

func (s *Store) SetPollVote(ctx context.Context, sessionId, userId int64, vote entity.PollVote) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_game_sessions SET last_poll_vote = $3 WHERE game_session_id = $1 AND user_id = $2`,
		sessionId, userId, vote,
	)
	if err != nil {
		return fmt.Errorf("store: set poll vote: %w", err)
	}
	return nil
}

// ResetPollVotes clears every player's vote at the start of a new
// admission poll so a stale vote from a prior poll can't be tallied.
func (s *Store) ResetPollVotes(ctx context.Context, sessionId int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_game_sessions SET last_poll_vote = 0 WHERE game_session_id = $1`,
		sessionId,
	)
	if err != nil {
		return fmt.Errorf("store: reset poll votes: %w", err)
	}
	return nil
}

// TallyPollVotes counts recorded per-player votes for a non-anonymous
// poll (§4.3.3 "check_not_anonim_poll").
func (s *Store) TallyPollVotes(ctx context.Context, sessionId int64) (yes, no int, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT
			count(*) FILTER (WHERE last_poll_vote = 1),
			count(*) FILTER (WHERE last_poll_vote = 2)
		 FROM user_game_sessions WHERE game_session_id = $1`,
		sessionId,
	).Scan(&yes, &no)
	if err != nil {
		return 0, 0, fmt.Errorf("store: tally poll votes: %w", err)
	}
	return yes, no, nil
}
