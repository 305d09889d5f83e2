package store

import (
	"context"
	"fmt"
	"strings"

	"citywords/entity"
)

func (s *Store) FindCityByName(ctx context.Context, name string) (*entity.City, error) {
	var c entity.City
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM cities WHERE name = $1`,
		strings.ToUpper(name),
	).Scan(&c.Id, &c.Name)
	if noRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find city: %w", err)
	}
	return &c, nil
}

// CandidateCities returns every city starting with letter that hasn't
// been used yet in this session, ordered by id; PickCity draws one of
// them at random.
func (s *Store) CandidateCities(ctx context.Context, sessionId int64, letter string) ([]*entity.City, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.name FROM cities c
		 WHERE c.name LIKE $1 || '%'
		   AND NOT EXISTS (
		       SELECT 1 FROM used_cities uc
		       WHERE uc.session_id = $2 AND uc.city_id = c.id
		   )
		 ORDER BY c.id`,
		strings.ToUpper(letter), sessionId,
	)
	if err != nil {
		return nil, fmt.Errorf("store: candidate cities: %w", err)
	}
	defer rows.Close()

	var cities []*entity.City
	for rows.Next() {
		var c entity.City
		if err := rows.Scan(&c.Id, &c.Name); err != nil {
			return nil, fmt.Errorf("store: scan city: %w", err)
		}
		cities = append(cities, &c)
	}
	return cities, rows.Err()
}

// MarkCityUsed records a city as played in this session. Unique on
// (session_id, city_id) — a duplicate call (redelivery) is ignored,
// preserving I3/P3.
func (s *Store) MarkCityUsed(ctx context.Context, sessionId, cityId int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO used_cities (session_id, city_id) VALUES ($1, $2)
		 ON CONFLICT (session_id, city_id) DO NOTHING`,
		sessionId, cityId,
	)
	if err != nil {
		return fmt.Errorf("store: mark city used: %w", err)
	}
	return nil
}

func (s *Store) CityUsed(ctx context.Context, sessionId, cityId int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM used_cities WHERE session_id = $1 AND city_id = $2)`,
		sessionId, cityId,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: city used: %w", err)
	}
	return exists, nil
}

// UsedCitiesInOrder lists the cities played in a session in the order
// they were accepted, for the /stop summary.
func (s *Store) UsedCitiesInOrder(ctx context.Context, sessionId int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.name FROM used_cities uc
		 JOIN cities c ON c.id = uc.city_id
		 WHERE uc.session_id = $1
		 ORDER BY uc.id`,
		sessionId,
	)
	if err != nil {
		return nil, fmt.Errorf("store: used cities: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("store: scan used city: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
