// Package wordsgame implements the multiplayer Words game: a team of
// players takes turns naming words that start with the previous
// word's effective last letter, losing a life on a late, wrong-turn
// or rejected answer, until no player has lives left or the last
// player standing is down to a single life.
package wordsgame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"unicode/utf8"

	"citywords/entity"
	"citywords/internal/dictionary"
	"citywords/internal/store"
	"citywords/lib/sl"
)

// trailingSilent holds uppercase letters because lastLetter uppercases
// the word before checking it.
var trailingSilent = map[rune]bool{
	'Ь': true, 'Ы': true, 'Ъ': true, 'Й': true, 'Ё': true,
}

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

// Store is the subset of persistence the Words engine depends on.
type Store interface {
	GetSession(ctx context.Context, id int64) (*entity.GameSession, error)
	DeactivateSession(ctx context.Context, id int64) error
	SetNextLetter(ctx context.Context, id int64, letter string) error
	SetNextUser(ctx context.Context, id int64, userId int64) error
	SetCurrentPoll(ctx context.Context, id int64, pollId, word string) error
	ClearCurrentPoll(ctx context.Context, id int64) error
	AppendSessionWord(ctx context.Context, id int64, word string) error

	GetPlayer(ctx context.Context, sessionId, userId int64) (*entity.UserGameSession, error)
	AliveTeam(ctx context.Context, sessionId int64) ([]*entity.UserGameSession, error)
	AllPlayers(ctx context.Context, sessionId int64) ([]*entity.UserGameSession, error)
	DecrementLife(ctx context.Context, sessionId, userId int64) error
	RightWord(ctx context.Context, sessionId, userId int64) error
	SetPollVote(ctx context.Context, sessionId, userId int64, vote entity.PollVote) error
	ResetPollVotes(ctx context.Context, sessionId int64) error
	TallyPollVotes(ctx context.Context, sessionId int64) (yes, no int, err error)

	FindWordByName(ctx context.Context, name string) (*entity.Word, error)
	EnsureWord(ctx context.Context, name string) (int64, error)
	MarkWordUsed(ctx context.Context, sessionId, wordId int64) error
	WordUsedInSession(ctx context.Context, sessionId int64, name string) (bool, error)

	AddPoints(ctx context.Context, userId int64, points int) error
}

// Dictionary is the external noun lookup used to accept words not
// already known from a prior game.
type Dictionary interface {
	IsNoun(ctx context.Context, word string) (bool, error)
}

// Outcome is the user-facing effect of an engine call. OpenPoll marks a
// word-admission poll, SessionOver marks the end of the game (with
// Stats), and otherwise Text/ForceReply/ScheduleSlow describe the next
// prompt. Text may still carry a prefix such as "Accepted ..." when
// SessionOver is set.
type Outcome struct {
	Text         string
	ForceReply   bool
	TargetUserId int64 // who the prompt is addressed to, for force_reply
	ScheduleSlow bool
	SlowRound    int // the round captured at schedule time

	OpenPoll     bool
	PollQuestion string
	PollAnonymous bool
	PollPeriodSec int
	PollWord     string

	SessionOver bool
	Stats       []PlayerStat
}

type PlayerStat struct {
	UserId int64
	Points int
}

type Engine struct {
	store Store
	dict  Dictionary
	log   *slog.Logger
}

func New(st Store, dict Dictionary, log *slog.Logger) *Engine {
	return &Engine{store: st, dict: dict, log: log.With(sl.Module("wordsgame"))}
}

// PickLeader selects the next player to prompt, or ends the game if
// the team can't continue. forcedUserId, when non-zero, skips the
// random draw and re-prompts that specific player (used after a wrong
// start letter or a repeated word, which carry no penalty).
func (e *Engine) PickLeader(ctx context.Context, sess *entity.GameSession, forcedUserId int64) (Outcome, error) {
	if sess.HasPoll() {
		// A vote is in flight; turn advancement resumes once poll_result clears it.
		return Outcome{}, nil
	}

	alive, err := e.store.AliveTeam(ctx, sess.Id)
	if err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: pick leader: %w", err)
	}

	if len(alive) == 0 {
		return e.endGame(ctx, sess)
	}
	if len(alive) == 1 && alive[0].Lives == 1 {
		return e.endGame(ctx, sess)
	}

	var chosen *entity.UserGameSession
	if forcedUserId != 0 {
		for _, p := range alive {
			if p.UserId == forcedUserId {
				chosen = p
				break
			}
		}
	}
	if chosen == nil {
		pool := alive
		if len(pool) > 1 {
			pool = excludeUser(pool, sess.NextUserId)
			if len(pool) == 0 {
				return e.endGame(ctx, sess)
			}
		}
		chosen = pool[rand.Intn(len(pool))]
	}

	if err := e.store.SetNextUser(ctx, sess.Id, chosen.UserId); err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: set next user: %w", err)
	}

	letterHint := ""
	if sess.NextStartLetter != "" {
		letterHint = fmt.Sprintf(" starting with %s", sess.NextStartLetter)
	}

	return Outcome{
		Text:         fmt.Sprintf("Your turn%s.", letterHint),
		ForceReply:   true,
		TargetUserId: chosen.UserId,
		ScheduleSlow: true,
		SlowRound:    chosen.Round,
	}, nil
}

func excludeUser(players []*entity.UserGameSession, userId int64) []*entity.UserGameSession {
	out := make([]*entity.UserGameSession, 0, len(players))
	for _, p := range players {
		if p.UserId != userId {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) endGame(ctx context.Context, sess *entity.GameSession) (Outcome, error) {
	players, err := e.store.AllPlayers(ctx, sess.Id)
	if err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: end game: load players: %w", err)
	}
	if err := e.store.DeactivateSession(ctx, sess.Id); err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: end game: deactivate: %w", err)
	}

	stats := make([]PlayerStat, 0, len(players))
	for _, p := range players {
		if err := e.store.AddPoints(ctx, p.UserId, p.Points); err != nil {
			return Outcome{}, fmt.Errorf("wordsgame: end game: roll up points for %d: %w", p.UserId, err)
		}
		stats = append(stats, PlayerStat{UserId: p.UserId, Points: p.Points})
	}

	return Outcome{SessionOver: true, Stats: stats}, nil
}

// SlowPlayer handles a self-scheduled timeout for userId, dropping it
// if the session has since moved on: a vote is in progress, someone
// else is now current, or the player's round has already advanced
// past capturedRound.
func (e *Engine) SlowPlayer(ctx context.Context, sessionId, userId int64, capturedRound int) (Outcome, error) {
	sess, err := e.store.GetSession(ctx, sessionId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Outcome{}, nil
		}
		return Outcome{}, fmt.Errorf("wordsgame: slow player: load session: %w", err)
	}
	if sess.HasPoll() || sess.NextUserId != userId {
		return Outcome{}, nil
	}

	player, err := e.store.GetPlayer(ctx, sessionId, userId)
	if err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: slow player: load player: %w", err)
	}
	if player.Round != capturedRound {
		return Outcome{}, nil
	}

	if err := e.store.DecrementLife(ctx, sessionId, userId); err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: slow player: decrement life: %w", err)
	}
	return e.PickLeader(ctx, sess, 0)
}

// CheckWord validates a submitted word from authorId against the
// session's current turn and rules, then either accepts it outright,
// re-prompts without penalty, or opens a word-admission poll.
func (e *Engine) CheckWord(ctx context.Context, sess *entity.GameSession, authorId int64, word string) (Outcome, error) {
	if authorId != sess.NextUserId {
		if err := e.store.DecrementLife(ctx, sess.Id, authorId); err != nil {
			return Outcome{}, fmt.Errorf("wordsgame: check word: decrement life: %w", err)
		}
		return Outcome{Text: "Not your turn; a life was lost."}, nil
	}

	if sess.NextStartLetter != "" && firstLetter(word) != sess.NextStartLetter {
		out, err := e.PickLeader(ctx, sess, authorId)
		if err != nil {
			return Outcome{}, err
		}
		out.Text = fmt.Sprintf("Must start with %s. ", sess.NextStartLetter) + out.Text
		return out, nil
	}

	used, err := e.store.WordUsedInSession(ctx, sess.Id, word)
	if err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: check word: used check: %w", err)
	}
	if used {
		out, err := e.PickLeader(ctx, sess, authorId)
		if err != nil {
			return Outcome{}, err
		}
		out.Text = "That word has already been played. " + out.Text
		return out, nil
	}

	noun, err := e.dict.IsNoun(ctx, word)
	if err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: check word: dictionary lookup: %w", err)
	}
	if noun {
		return e.RightWord(ctx, sess, authorId, word)
	}

	return Outcome{
		OpenPoll:      true,
		PollQuestion:  fmt.Sprintf("Shall we accept %q?", word),
		PollAnonymous: sess.Anonymous,
		PollPeriodSec: sess.PollTimeSec,
		PollWord:      word,
	}, nil
}

// RightWord records word as accepted for authorId and advances the
// turn: points and round increment together, the session's next
// letter updates, and a new leader is picked with no forcing.
func (e *Engine) RightWord(ctx context.Context, sess *entity.GameSession, authorId int64, word string) (Outcome, error) {
	wordId, err := e.store.EnsureWord(ctx, word)
	if err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: right word: ensure word: %w", err)
	}
	if err := e.store.MarkWordUsed(ctx, sess.Id, wordId); err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: right word: mark used: %w", err)
	}
	if err := e.store.AppendSessionWord(ctx, sess.Id, strings.ToUpper(word)); err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: right word: append session word: %w", err)
	}
	if err := e.store.RightWord(ctx, sess.Id, authorId); err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: right word: update player: %w", err)
	}

	next := lastLetter(word)
	if err := e.store.SetNextLetter(ctx, sess.Id, next); err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: right word: set next letter: %w", err)
	}
	sess.NextStartLetter = next

	out, err := e.PickLeader(ctx, sess, 0)
	if err != nil {
		return Outcome{}, err
	}
	out.Text = fmt.Sprintf("Accepted %q. Next letter: %s. ", word, next) + out.Text
	return out, nil
}

// BindPoll records that pollId now gates this session's turn
// progression, per the current_poll_id lock (I2), and remembers word
// as the pending submission PollResult will later accept or reject.
func (e *Engine) BindPoll(ctx context.Context, sess *entity.GameSession, pollId, word string) error {
	if err := e.store.ResetPollVotes(ctx, sess.Id); err != nil {
		return fmt.Errorf("wordsgame: bind poll: reset votes: %w", err)
	}
	if err := e.store.SetCurrentPoll(ctx, sess.Id, pollId, word); err != nil {
		return fmt.Errorf("wordsgame: bind poll: %w", err)
	}
	return nil
}

// RebindPoll swaps the placeholder lock BindPoll set for the real
// Telegram-assigned poll id, once the sender reports it. The pending
// word survives unchanged.
func (e *Engine) RebindPoll(ctx context.Context, sess *entity.GameSession, pollId string) error {
	if err := e.store.SetCurrentPoll(ctx, sess.Id, pollId, sess.PendingPollWord); err != nil {
		return fmt.Errorf("wordsgame: rebind poll: %w", err)
	}
	return nil
}

// RecordPollAnswer stores a non-anonymous voter's choice for later
// tallying by PollResult.
func (e *Engine) RecordPollAnswer(ctx context.Context, sess *entity.GameSession, userId int64, vote entity.PollVote) error {
	return e.store.SetPollVote(ctx, sess.Id, userId, vote)
}

// PollResult settles an admission poll: clears the current_poll_id
// lock, then accepts or rejects the pending word depending on the
// tally (a non-anonymous poll uses the per-player recorded votes,
// falling back to the broadcast option counts when none were recorded)
// and resumes play accordingly.
func (e *Engine) PollResult(ctx context.Context, sess *entity.GameSession, word string, broadcastYes, broadcastNo int) (Outcome, error) {
	if err := e.store.ClearCurrentPoll(ctx, sess.Id); err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: poll result: clear poll: %w", err)
	}
	sess.CurrentPollId = ""
	sess.PendingPollWord = ""

	yes, no := broadcastYes, broadcastNo
	if !sess.Anonymous {
		recYes, recNo, err := e.store.TallyPollVotes(ctx, sess.Id)
		if err != nil {
			return Outcome{}, fmt.Errorf("wordsgame: poll result: tally recorded votes: %w", err)
		}
		if recYes+recNo > 0 {
			yes, no = recYes, recNo
		}
	}

	if yes > no {
		return e.RightWord(ctx, sess, sess.NextUserId, word)
	}

	if err := e.store.DecrementLife(ctx, sess.Id, sess.NextUserId); err != nil {
		return Outcome{}, fmt.Errorf("wordsgame: poll result: decrement life: %w", err)
	}
	out, err := e.PickLeader(ctx, sess, 0)
	if err != nil {
		return Outcome{}, err
	}
	out.Text = fmt.Sprintf("%q was rejected. ", word) + out.Text
	return out, nil
}
