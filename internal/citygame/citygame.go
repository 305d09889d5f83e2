// Package citygame implements the single-player Cities game: the
// player and the bot alternate naming cities, each one starting with
// the last non-trailing-silent letter of the previous name. An
// unknown, already-played or wrong-letter city gets a reply and the
// game goes on; the game ends when the bot runs out of cities starting
// with the required letter (bot loses) or the player sends /stop.
package citygame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"unicode/utf8"

	"citywords/entity"
	"citywords/internal/store"
	"citywords/lib/sl"
)

// trailingSilent is the set of Cyrillic letters that never start a
// city name and so are skipped when walking backwards from the end of
// a name to find its effective last letter. The letters are uppercase
// because lastLetter uppercases the name before checking it.
var trailingSilent = map[rune]bool{
	'Ь': true, 'Ы': true, 'Ъ': true, 'Й': true, 'Ё': true,
}

// lastLetter returns the effective trailing letter of name per the
// trailing-silent-letter rule, walking backwards over the name and
// skipping runes in trailingSilent. An all-silent name (degenerate,
// shouldn't occur in practice) returns "".
func lastLetter(name string) string {
	runes := []rune(strings.ToUpper(name))
	for i := len(runes) - 1; i >= 0; i-- {
		if !trailingSilent[runes[i]] {
			return string(runes[i])
		}
	}
	return ""
}

func firstLetter(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.ToUpper(name))
	if r == utf8.RuneError {
		return ""
	}
	return string(r)
}

// Store is the subset of persistence operations the Cities engine
// depends on.
type Store interface {
	FindCityByName(ctx context.Context, name string) (*entity.City, error)
	CandidateCities(ctx context.Context, sessionId int64, letter string) ([]*entity.City, error)
	MarkCityUsed(ctx context.Context, sessionId, cityId int64) error
	CityUsed(ctx context.Context, sessionId, cityId int64) (bool, error)
	SetNextLetter(ctx context.Context, id int64, letter string) error
	DeactivateSession(ctx context.Context, id int64) error
}

// Engine drives a single session's turn handling. It holds no state of
// its own beyond its dependencies — all game state lives in the
// session row and used_cities table, so a restarted Worker resumes
// exactly where it left off.
type Engine struct {
	store Store
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log.With(sl.Module("citygame"))}
}

// Outcome describes the user-visible result of an engine call so the
// worker can translate it into outbound message events without the
// engine needing to know about the broker.
type Outcome struct {
	Text        string
	SessionOver bool // true once the game has ended, win or lose
	BotLost     bool
}

// startLetters is the pool start_game draws from: common Cyrillic
// letters that are never trailing-silent, so every fresh game opens
// on a letter with plenty of city candidates.
var startLetters = []string{"А", "Б", "В", "Г", "Д", "К", "Л", "М", "Н", "П", "Р", "С", "Т"}

// RandomStartLetter picks the opening letter for a new single-player game.
func RandomStartLetter() string {
	return startLetters[rand.Intn(len(startLetters))]
}

// PickCity selects a city starting with letter that hasn't been played
// in this session yet, drawn pseudo-randomly by offset among the
// candidates, and announces it with the letter the player must answer
// with next. If no candidate remains the bot concedes and the session
// ends.
func (e *Engine) PickCity(ctx context.Context, sess *entity.GameSession, letter string) (Outcome, error) {
	candidates, err := e.store.CandidateCities(ctx, sess.Id, letter)
	if err != nil {
		return Outcome{}, fmt.Errorf("citygame: pick city: %w", err)
	}
	if len(candidates) == 0 {
		if err := e.store.DeactivateSession(ctx, sess.Id); err != nil {
			return Outcome{}, fmt.Errorf("citygame: deactivate on bot loss: %w", err)
		}
		return Outcome{
			Text:        fmt.Sprintf("I can't think of a city starting with %q. You win!", letter),
			SessionOver: true,
			BotLost:     true,
		}, nil
	}

	choice := candidates[rand.Intn(len(candidates))]
	if err := e.store.MarkCityUsed(ctx, sess.Id, choice.Id); err != nil {
		return Outcome{}, fmt.Errorf("citygame: mark city used: %w", err)
	}

	next := lastLetter(choice.Name)
	if err := e.store.SetNextLetter(ctx, sess.Id, next); err != nil {
		return Outcome{}, fmt.Errorf("citygame: set next letter: %w", err)
	}

	return Outcome{Text: fmt.Sprintf("%s. Your letter: %s", choice.Name, next)}, nil
}

// CheckCity validates the player's submission against the session's
// required start letter and the used-cities set, then hands off to
// PickCity for the bot's reply.
func (e *Engine) CheckCity(ctx context.Context, sess *entity.GameSession, submitted string) (Outcome, error) {
	city, err := e.store.FindCityByName(ctx, submitted)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Outcome{Text: "No such city."}, nil
		}
		return Outcome{}, fmt.Errorf("citygame: check city: %w", err)
	}

	used, err := e.store.CityUsed(ctx, sess.Id, city.Id)
	if err != nil {
		return Outcome{}, fmt.Errorf("citygame: check city used: %w", err)
	}
	if used {
		return Outcome{Text: "That city has already been played."}, nil
	}

	if sess.NextStartLetter != "" && firstLetter(city.Name) != sess.NextStartLetter {
		return Outcome{Text: fmt.Sprintf("Wrong letter, yours is %s.", sess.NextStartLetter)}, nil
	}

	if err := e.store.MarkCityUsed(ctx, sess.Id, city.Id); err != nil {
		return Outcome{}, fmt.Errorf("citygame: mark accepted city used: %w", err)
	}

	next := lastLetter(city.Name)
	reply, err := e.PickCity(ctx, sess, next)
	if err != nil {
		return Outcome{}, err
	}
	reply.Text = "Accepted. " + reply.Text
	return reply, nil
}
