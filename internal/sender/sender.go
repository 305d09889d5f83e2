// Package sender implements the Sender process: it consumes outbound
// command events and executes the corresponding Telegram Bot API
// calls. Sender touches no database — every piece of state it needs
// travels with the event (§4.4) — so any number of Sender instances
// may run concurrently with no coordination between them.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"citywords/internal/broker"
	"citywords/internal/events"
	"citywords/internal/telegram"
	"citywords/lib/sl"
)

const pollCloseGraceSec = 2

type Sender struct {
	tg  *telegram.Client
	pub *broker.Broker
	log *slog.Logger
}

func New(tg *telegram.Client, pub *broker.Broker, log *slog.Logger) *Sender {
	return &Sender{tg: tg, pub: pub, log: log.With(sl.Module("sender"))}
}

// Handle is the broker.Handler bound to queue tg_bot_sender.
func (s *Sender) Handle(ctx context.Context, body []byte) error {
	env, err := events.Decode(body)
	if err != nil {
		s.log.Error("dropping malformed envelope", sl.Err(err))
		return nil
	}

	switch env.Type {
	case events.TypeSendMessage:
		var p events.SendMessage
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil
		}
		return s.tg.SendMessage(ctx, p.ChatId, p.Text)

	case events.TypeSendMessageKeyboard:
		return s.handleSendMessageKeyboard(ctx, env.Payload)

	case events.TypeRemoveKeyboard:
		return s.handleRemoveKeyboard(ctx, env.Payload)

	case events.TypeCallbackAlert:
		var p events.CallbackAlert
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil
		}
		return s.tg.AnswerCallback(ctx, p.CallbackQueryId, p.Text, p.Alert)

	case events.TypeSendPoll:
		return s.handleSendPoll(ctx, env.Payload)

	case events.TypeSendPollAnswer:
		return s.handleSendPollAnswer(ctx, env.Payload)

	default:
		s.log.Warn("no handler for event type", slog.String("type", string(env.Type)))
		return nil
	}
}

func (s *Sender) handleSendMessageKeyboard(ctx context.Context, payload json.RawMessage) error {
	var p events.SendMessageKeyboard
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil
	}

	rows := make([][]telegram.Button, 0, len(p.Keyboard))
	for _, row := range p.Keyboard {
		line := make([]telegram.Button, 0, len(row))
		for _, btn := range row {
			line = append(line, telegram.Button{Label: btn.Label, CallbackData: btn.CallbackData})
		}
		rows = append(rows, line)
	}

	messageId, err := s.tg.SendMessageKeyboard(ctx, p.ChatId, p.Text, rows)
	if err != nil {
		return fmt.Errorf("sender: send keyboard: %w", err)
	}

	if p.LiveTimeSec <= 0 {
		return nil
	}

	return s.publish(ctx, broker.RouteSender, events.TypeRemoveKeyboard, events.RemoveKeyboard{
		ChatId:    p.ChatId,
		MessageId: messageId,
		SessionId: p.SessionId,
	}, time.Duration(p.LiveTimeSec)*time.Second)
}

func (s *Sender) handleRemoveKeyboard(ctx context.Context, payload json.RawMessage) error {
	var p events.RemoveKeyboard
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil
	}

	if err := s.tg.RemoveKeyboard(ctx, p.ChatId, p.MessageId); err != nil {
		return fmt.Errorf("sender: remove keyboard: %w", err)
	}

	if p.SessionId == 0 {
		return nil
	}
	return s.publish(ctx, broker.RouteWorker, events.TypePickLeader, events.PickLeader{SessionId: p.SessionId}, 0)
}

func (s *Sender) handleSendPoll(ctx context.Context, payload json.RawMessage) error {
	var p events.SendPoll
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil
	}

	messageId, pollId, err := s.tg.SendPoll(ctx, p.ChatId, p.Question, p.Anonymous, p.OpenPeriod)
	if err != nil {
		return fmt.Errorf("sender: send poll: %w", err)
	}

	if err := s.publish(ctx, broker.RouteWorker, events.TypePollId, events.PollId{
		SessionId: p.SessionId, ChatId: p.ChatId, MessageId: messageId, PollId: pollId,
	}, 0); err != nil {
		return err
	}

	return s.publish(ctx, broker.RouteSender, events.TypeSendPollAnswer, events.SendPollAnswer{
		SessionId: p.SessionId, ChatId: p.ChatId, MessageId: messageId, PollId: pollId, Word: p.Word,
	}, time.Duration(p.OpenPeriod+pollCloseGraceSec)*time.Second)
}

func (s *Sender) handleSendPollAnswer(ctx context.Context, payload json.RawMessage) error {
	var p events.SendPollAnswer
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil
	}

	yes, no, err := s.tg.StopPoll(ctx, p.ChatId, p.MessageId)
	if err != nil {
		return fmt.Errorf("sender: stop poll: %w", err)
	}

	return s.publish(ctx, broker.RouteWorker, events.TypePollResult, events.PollResult{
		SessionId:   p.SessionId,
		PollId:      p.PollId,
		Word:        p.Word,
		Yes:         yes,
		No:          no,
		TotalVoters: yes + no,
	}, 0)
}

func (s *Sender) publish(ctx context.Context, routingKey string, t events.Type, payload any, delay time.Duration) error {
	body, err := events.Encode(t, payload)
	if err != nil {
		return fmt.Errorf("sender: encode %s: %w", t, err)
	}
	return s.pub.Publish(ctx, routingKey, body, delay)
}
