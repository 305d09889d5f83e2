package store

import (
	"context"
	"fmt"

	"citywords/entity"
)

// CreateUser inserts a new user if one doesn't already exist for this
// chat-platform id. Idempotent per §4.3.4(i): a duplicate call (e.g. a
// redelivered "/play") is a no-op, never an error.
func (s *Store) CreateUser(ctx context.Context, telegramId int64, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (telegram_id, name) VALUES ($1, $2)
		 ON CONFLICT (telegram_id) DO NOTHING`,
		telegramId, name,
	)
	if err != nil {
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, telegramId int64) (*entity.User, error) {
	var u entity.User
	err := s.pool.QueryRow(ctx,
		`SELECT telegram_id, name, total_point, created_at FROM users WHERE telegram_id = $1`,
		telegramId,
	).Scan(&u.TelegramId, &u.Name, &u.TotalPoint, &u.CreatedAt)
	if noRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

// AddPoints rolls a session's earned points into the user's lifetime
// total. Called once per player when a group session ends.
func (s *Store) AddPoints(ctx context.Context, telegramId int64, points int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET total_point = total_point + $2 WHERE telegram_id = $1`,
		telegramId, points,
	)
	if err != nil {
		return fmt.Errorf("store: add points: %w", err)
	}
	return nil
}
