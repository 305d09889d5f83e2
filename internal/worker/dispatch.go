// Package worker implements the Worker process: it consumes Telegram
// updates forwarded by the Poller and self-scheduled timer events,
// drives the Cities and Words state machines, and publishes outbound
// command events for the Sender to execute.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"citywords/entity"
	"citywords/internal/broker"
	"citywords/internal/citygame"
	"citywords/internal/events"
	"citywords/internal/store"
	"citywords/internal/wordsgame"
	"citywords/lib/sl"
)

// Store is the full persistence surface the worker touches — the
// union of what the two game engines need plus session/user
// bookkeeping that belongs to neither.
type Store interface {
	citygame.Store
	wordsgame.Store
	GetActiveSession(ctx context.Context, chatId int64) (*entity.GameSession, error)
	GetSession(ctx context.Context, id int64) (*entity.GameSession, error)
	GetSessionByPollId(ctx context.Context, pollId string) (*entity.GameSession, error)
	CreateSession(ctx context.Context, sess *entity.GameSession) (int64, error)
	CreateUser(ctx context.Context, telegramId int64, name string) error
	GetUser(ctx context.Context, telegramId int64) (*entity.User, error)
	AddUserToTeam(ctx context.Context, sessionId, userId int64, startingLives int) error
	UsedCitiesInOrder(ctx context.Context, sessionId int64) ([]string, error)
}

type SettingsSource interface {
	Get() entity.GameSettings
}

// Worker owns the two game engines and the outbound publisher; it has
// no state of its own beyond what's reloaded from Store on every
// message, so any instance may pick up any message.
type Worker struct {
	store    Store
	settings SettingsSource
	pub      *broker.Broker
	cities   *citygame.Engine
	words    *wordsgame.Engine
	log      *slog.Logger
}

func New(st Store, settings SettingsSource, pub *broker.Broker, cities *citygame.Engine, words *wordsgame.Engine, log *slog.Logger) *Worker {
	return &Worker{
		store:    st,
		settings: settings,
		pub:      pub,
		cities:   cities,
		words:    words,
		log:      log.With(sl.Module("worker")),
	}
}

// HandleWorkerQueue is the broker.Handler bound to queue tg_bot: it
// decodes the envelope and dispatches by Type.
func (w *Worker) HandleWorkerQueue(ctx context.Context, body []byte) error {
	env, err := events.Decode(body)
	if err != nil {
		w.log.Error("dropping malformed envelope", sl.Err(err))
		return nil // schema errors are dropped, not retried (§7)
	}

	switch env.Type {
	case events.TypeUpdate:
		var upd events.Update
		if err := json.Unmarshal(env.Payload, &upd); err != nil {
			w.log.Error("dropping malformed update payload", sl.Err(err))
			return nil
		}
		return w.handleUpdate(ctx, upd)

	case events.TypeSlowPlayer:
		var p events.SlowPlayer
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil
		}
		out, err := w.words.SlowPlayer(ctx, p.SessionId, p.UserId, p.Round)
		if err != nil {
			return err
		}
		sess, err := w.store.GetSession(ctx, p.SessionId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		return w.publishWordsOutcome(ctx, sess, out)

	case events.TypePickLeader:
		var p events.PickLeader
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil
		}
		sess, err := w.store.GetSession(ctx, p.SessionId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		out, err := w.words.PickLeader(ctx, sess, 0)
		if err != nil {
			return err
		}
		return w.publishWordsOutcome(ctx, sess, out)

	case events.TypePollResult:
		var p events.PollResult
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil
		}
		sess, err := w.store.GetSessionByPollId(ctx, p.PollId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil // §4.3.4(iv): cleared poll, duplicate result is a no-op
			}
			return err
		}
		word := sess.PendingPollWord
		out, err := w.words.PollResult(ctx, sess, word, p.Yes, p.No)
		if err != nil {
			return err
		}
		return w.publishWordsOutcome(ctx, sess, out)

	case events.TypePollId:
		var p events.PollId
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil
		}
		sess, err := w.store.GetSession(ctx, p.SessionId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		return w.words.RebindPoll(ctx, sess, p.PollId)

	case events.TypePollAnswer:
		var p events.PollAnswer
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil
		}
		sess, err := w.store.GetSessionByPollId(ctx, p.PollId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		vote := entity.PollVoteYes
		if p.OptionId == 1 {
			vote = entity.PollVoteNo
		}
		return w.words.RecordPollAnswer(ctx, sess, p.UserId, vote)

	default:
		w.log.Warn("no handler for event type", slog.String("type", string(env.Type)))
		return nil
	}
}

func (w *Worker) publish(ctx context.Context, routingKey string, t events.Type, payload any, delay time.Duration) error {
	body, err := events.Encode(t, payload)
	if err != nil {
		return fmt.Errorf("worker: encode %s: %w", t, err)
	}
	return w.pub.Publish(ctx, routingKey, body, delay)
}

func (w *Worker) sendText(ctx context.Context, chatId int64, text string) error {
	return w.publish(ctx, broker.RouteSender, events.TypeSendMessage, events.SendMessage{ChatId: chatId, Text: text}, 0)
}

// handleUpdate decodes the raw Telegram update and routes it per
// §4.3.1: commands by first token, callback queries, poll answers,
// and bare text treated as an in-game guess.
func (w *Worker) handleUpdate(ctx context.Context, upd events.Update) error {
	var tg tgbotapi.Update
	if err := json.Unmarshal(upd.Raw, &tg); err != nil {
		w.log.Error("dropping malformed telegram update", sl.Err(err))
		return nil
	}

	switch {
	case tg.CallbackQuery != nil:
		return w.handleCallback(ctx, tg.CallbackQuery)
	case tg.PollAnswer != nil:
		return w.handlePollAnswer(ctx, tg.PollAnswer)
	case tg.Message != nil:
		return w.handleMessage(ctx, tg.Message)
	default:
		return nil
	}
}

func (w *Worker) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Data != "/yes" {
		return nil
	}

	chatId := cb.Message.GetChat().Id
	sess, err := w.store.GetActiveSession(ctx, chatId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return w.publish(ctx, broker.RouteSender, events.TypeCallbackAlert, events.CallbackAlert{
				CallbackQueryId: cb.Id, Text: "No game is forming right now.",
			}, 0)
		}
		return err
	}

	if err := w.store.CreateUser(ctx, cb.From.Id, cb.From.FirstName); err != nil {
		return err
	}
	if err := w.store.AddUserToTeam(ctx, sess.Id, cb.From.Id, sess.StartingLives); err != nil {
		return err
	}

	return w.publish(ctx, broker.RouteSender, events.TypeCallbackAlert, events.CallbackAlert{
		CallbackQueryId: cb.Id, Text: "You're in!",
	}, 0)
}

func (w *Worker) handlePollAnswer(ctx context.Context, pa *tgbotapi.PollAnswer) error {
	sess, err := w.store.GetSessionByPollId(ctx, pa.PollId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if len(pa.OptionIds) == 0 {
		return nil
	}
	vote := entity.PollVoteYes
	if pa.OptionIds[0] == 1 {
		vote = entity.PollVoteNo
	}
	return w.words.RecordPollAnswer(ctx, sess, pa.User.Id, vote)
}

func (w *Worker) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatId := msg.Chat.Id
	isGroup := msg.Chat.Type != "private"
	text := strings.TrimSpace(msg.Text)
	if text == "" || msg.From == nil {
		return nil
	}

	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/play":
		return w.cmdPlay(ctx, chatId, msg.From.Id, msg.From.FirstName, isGroup)
	case "/stop":
		return w.cmdStop(ctx, chatId, isGroup)
	case "/ping":
		return w.sendText(ctx, chatId, "/pong")
	case "/help", "/faq":
		return w.sendText(ctx, chatId, helpText)
	case "/last":
		return w.cmdLast(ctx, chatId)
	case "/stat":
		return w.cmdStat(ctx, chatId)
	}

	return w.cmdGuess(ctx, chatId, msg.From.Id, text, isGroup)
}

const helpText = "/play — start a game\n/stop — end the current game\n/last — show the current letter\n/stat — show session stats\n/ping — health check"
