package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"citywords/entity"
	"citywords/internal/broker"
	"citywords/internal/events"
	"citywords/internal/wordsgame"
)

// publishWordsOutcome translates a wordsgame.Outcome into the outbound
// events it implies: a prompt to the chat, a self-scheduled slow_player
// timeout, an admission poll, or an end-of-game stats block.
func (w *Worker) publishWordsOutcome(ctx context.Context, sess *entity.GameSession, out wordsgame.Outcome) error {
	if out.SessionOver {
		return w.publishStats(ctx, sess.ChatId, out.Stats)
	}

	if out.OpenPoll {
		if err := w.words.BindPoll(ctx, sess, pendingPollPlaceholder, out.PollWord); err != nil {
			return err
		}
		return w.publish(ctx, broker.RouteSender, events.TypeSendPoll, events.SendPoll{
			ChatId:     sess.ChatId,
			SessionId:  sess.Id,
			Question:   out.PollQuestion,
			Anonymous:  out.PollAnonymous,
			OpenPeriod: out.PollPeriodSec,
			Word:       out.PollWord,
		}, 0)
	}

	if out.Text != "" {
		if err := w.sendText(ctx, sess.ChatId, out.Text); err != nil {
			return err
		}
	}

	if out.ScheduleSlow {
		if err := w.publish(ctx, broker.RouteWorker, events.TypeSlowPlayer, events.SlowPlayer{
			SessionId: sess.Id,
			UserId:    out.TargetUserId,
			Round:     out.SlowRound,
		}, time.Duration(sess.ResponseTimeSec)*time.Second); err != nil {
			return err
		}
	}

	return nil
}

// pendingPollPlaceholder marks current_poll_id as occupied the instant
// BindPoll runs, before the real Telegram poll id exists. The Sender's
// poll_id follow-up (published right after sendPoll succeeds) replaces
// it with the true id via RebindPoll.
const pendingPollPlaceholder = "pending"

func (w *Worker) publishStats(ctx context.Context, chatId int64, stats []wordsgame.PlayerStat) error {
	var sb strings.Builder
	sb.WriteString("Game over. Final scores:\n")
	for _, s := range stats {
		fmt.Fprintf(&sb, "player %d — %d\n", s.UserId, s.Points)
	}
	return w.sendText(ctx, chatId, sb.String())
}
