package store

import (
	"context"
	"fmt"

	"citywords/entity"
)

// GetSettings lazily creates the GameSettings singleton row on first read
// (§3), seeded from defaults supplied by the caller (config.GameDefaults).
// Once created, the row — not the config env values — is authoritative.
func (s *Store) GetSettings(ctx context.Context, defaults entity.GameSettings) (*entity.GameSettings, error) {
	var g entity.GameSettings
	err := s.pool.QueryRow(ctx,
		`SELECT response_time_sec, poll_time_sec, anonymous, starting_lives FROM game_settings WHERE id = 1`,
	).Scan(&g.ResponseTimeSec, &g.PollTimeSec, &g.Anonymous, &g.StartingLives)
	if err == nil {
		return &g, nil
	}
	if !noRows(err) {
		return nil, fmt.Errorf("store: get settings: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_settings (id, response_time_sec, poll_time_sec, anonymous, starting_lives)
		 VALUES (1, $1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		defaults.ResponseTimeSec, defaults.PollTimeSec, defaults.Anonymous, defaults.StartingLives,
	)
	if err != nil {
		return nil, fmt.Errorf("store: seed settings: %w", err)
	}
	return &defaults, nil
}

// UpdateSettings refreshes the singleton row; callers that hold a cached
// copy (store.SettingsCache) must re-fetch afterward.
func (s *Store) UpdateSettings(ctx context.Context, g entity.GameSettings) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE game_settings SET response_time_sec = $1, poll_time_sec = $2, anonymous = $3, starting_lives = $4 WHERE id = 1`,
		g.ResponseTimeSec, g.PollTimeSec, g.Anonymous, g.StartingLives,
	)
	if err != nil {
		return fmt.Errorf("store: update settings: %w", err)
	}
	return nil
}
