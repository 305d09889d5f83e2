package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"citywords/entity"
	"citywords/internal/broker"
	"citywords/internal/citygame"
	"citywords/internal/events"
	"citywords/internal/store"
)

const teamAssemblyWindowSec = 5

func (w *Worker) cmdPlay(ctx context.Context, chatId, userId int64, name string, isGroup bool) error {
	if _, err := w.store.GetActiveSession(ctx, chatId); err == nil {
		return w.sendText(ctx, chatId, "A game is already in progress here.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := w.store.CreateUser(ctx, userId, name); err != nil {
		return err
	}

	settings := w.settings.Get()

	if isGroup {
		sessId, err := w.store.CreateSession(ctx, &entity.GameSession{
			ChatId: chatId, Kind: entity.GameGroup, CreatorId: userId,
			ResponseTimeSec: settings.ResponseTimeSec, PollTimeSec: settings.PollTimeSec,
			Anonymous: settings.Anonymous, StartingLives: settings.StartingLives,
		})
		if err != nil {
			return err
		}
		if err := w.store.AddUserToTeam(ctx, sessId, userId, settings.StartingLives); err != nil {
			return err
		}

		return w.publish(ctx, broker.RouteSender, events.TypeSendMessageKeyboard, events.SendMessageKeyboard{
			ChatId:    chatId,
			SessionId: sessId,
			Text:      "A Words game is forming. Tap Yes to join!",
			Keyboard: [][]events.InlineButton{
				{{Label: "Yes", CallbackData: "/yes"}},
			},
			LiveTimeSec: teamAssemblyWindowSec,
		}, 0)
	}

	sessId, err := w.store.CreateSession(ctx, &entity.GameSession{
		ChatId: chatId, Kind: entity.GameSingle, CreatorId: userId,
		ResponseTimeSec: settings.ResponseTimeSec, PollTimeSec: settings.PollTimeSec,
		Anonymous: settings.Anonymous, StartingLives: settings.StartingLives,
	})
	if err != nil {
		return err
	}
	sess, err := w.store.GetSession(ctx, sessId)
	if err != nil {
		return err
	}

	if err := w.sendText(ctx, chatId, "Let's play! Name a city."); err != nil {
		return err
	}
	out, err := w.cities.PickCity(ctx, sess, citygame.RandomStartLetter())
	if err != nil {
		return err
	}
	return w.publishCityOutcome(ctx, chatId, out)
}

func (w *Worker) cmdStop(ctx context.Context, chatId int64, isGroup bool) error {
	sess, err := w.store.GetActiveSession(ctx, chatId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return w.sendText(ctx, chatId, "No game is running here.")
		}
		return err
	}

	if !isGroup || !sess.IsGroup() {
		if err := w.store.DeactivateSession(ctx, sess.Id); err != nil {
			return err
		}
		cities, err := w.store.UsedCitiesInOrder(ctx, sess.Id)
		if err != nil {
			return err
		}
		return w.sendText(ctx, chatId, "Game over. Cities played: "+strings.Join(cities, ", "))
	}

	return w.endGroupDirectly(ctx, sess)
}

// endGroupDirectly ends a group session from /stop, bypassing the
// word-acceptance machinery entirely (PollResult is for in-game
// rejections, not manual stops).
func (w *Worker) endGroupDirectly(ctx context.Context, sess *entity.GameSession) error {
	players, err := w.store.AllPlayers(ctx, sess.Id)
	if err != nil {
		return err
	}
	if err := w.store.DeactivateSession(ctx, sess.Id); err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("Game over. Scores:\n")
	for _, p := range players {
		if err := w.store.AddPoints(ctx, p.UserId, p.Points); err != nil {
			return err
		}
		fmt.Fprintf(&sb, "player %d — %d\n", p.UserId, p.Points)
	}
	return w.sendText(ctx, sess.ChatId, sb.String())
}

func (w *Worker) cmdLast(ctx context.Context, chatId int64) error {
	sess, err := w.store.GetActiveSession(ctx, chatId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return w.sendText(ctx, chatId, "No game is running here.")
		}
		return err
	}
	if sess.NextStartLetter == "" {
		return w.sendText(ctx, chatId, "No letter constraint yet.")
	}
	return w.sendText(ctx, chatId, "Current letter: "+sess.NextStartLetter)
}

func (w *Worker) cmdStat(ctx context.Context, chatId int64) error {
	sess, err := w.store.GetActiveSession(ctx, chatId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return w.sendText(ctx, chatId, "No game is running here.")
		}
		return err
	}

	if !sess.IsGroup() {
		cities, err := w.store.UsedCitiesInOrder(ctx, sess.Id)
		if err != nil {
			return err
		}
		return w.sendText(ctx, chatId, fmt.Sprintf("%d cities played so far: %s", len(cities), strings.Join(cities, ", ")))
	}

	players, err := w.store.AllPlayers(ctx, sess.Id)
	if err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("Current standings:\n")
	for _, p := range players {
		fmt.Fprintf(&sb, "player %d — %d points, %d lives\n", p.UserId, p.Points, p.Lives)
	}
	return w.sendText(ctx, chatId, sb.String())
}

func (w *Worker) cmdGuess(ctx context.Context, chatId, userId int64, text string, isGroup bool) error {
	sess, err := w.store.GetActiveSession(ctx, chatId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil // no game running — not a recognized command, ignore
		}
		return err
	}

	if sess.IsGroup() {
		if !isGroup {
			return nil
		}
		out, err := w.words.CheckWord(ctx, sess, userId, text)
		if err != nil {
			return err
		}
		return w.publishWordsOutcome(ctx, sess, out)
	}

	out, err := w.cities.CheckCity(ctx, sess, text)
	if err != nil {
		return err
	}
	return w.publishCityOutcome(ctx, chatId, out)
}

func (w *Worker) publishCityOutcome(ctx context.Context, chatId int64, out citygame.Outcome) error {
	if out.Text != "" {
		if err := w.sendText(ctx, chatId, out.Text); err != nil {
			return err
		}
	}
	return nil
}
