// Package telegram wraps gotgbot with the pacing and fault isolation
// the poller and sender processes need around Telegram's HTTP API: a
// token-bucket ceiling under Telegram's own rate limits, and a circuit
// breaker so a sustained Telegram outage degrades to fast failures
// instead of piling up blocked goroutines.
package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	// Telegram's documented ceiling is ~30 messages/sec across a bot;
	// stay comfortably under it.
	requestsPerSecond = 20
	burst             = 20
)

// Client is the single binding point onto the Telegram Bot API used by
// both poller (GetUpdates only) and sender (every send/edit/stop
// call). Each process constructs its own Client around the same bot
// token.
type Client struct {
	api     *tgbotapi.Bot
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
}

func New(token string) (*Client, error) {
	api, err := tgbotapi.NewBot(token, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: creating api instance: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "telegram-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		breaker: breaker,
	}, nil
}

// Raw exposes the underlying gotgbot client for the rare call the
// wrapper does not cover.
func (c *Client) Raw() *tgbotapi.Bot {
	return c.api
}

func (c *Client) guard(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("telegram: rate limiter: %w", err)
	}
	return c.breaker.Execute(fn)
}

// GetUpdates long-polls for new updates starting after offset. Used
// exclusively by the poller process.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int64) ([]tgbotapi.Update, error) {
	v, err := c.guard(ctx, func() (any, error) {
		return c.api.GetUpdates(&tgbotapi.GetUpdatesOpts{
			Offset:  offset,
			Timeout: int64(timeoutSec),
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Duration(timeoutSec+5) * time.Second,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return v.([]tgbotapi.Update), nil
}

// SendMessage delivers plain MarkdownV2 text, falling back to an
// unformatted retry if Telegram rejects the markup — the same
// degrade-gracefully behaviour the original bot package used.
func (c *Client) SendMessage(ctx context.Context, chatId int64, text string) error {
	_, err := c.guard(ctx, func() (any, error) {
		return c.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{ParseMode: "MarkdownV2"})
	})
	if err == nil {
		return nil
	}
	_, err = c.guard(ctx, func() (any, error) {
		return c.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
	})
	return err
}

// SendMessageKeyboard delivers text with an inline keyboard built from
// a row-major grid of label/callback-data pairs.
func (c *Client) SendMessageKeyboard(ctx context.Context, chatId int64, text string, rows [][]Button) (int64, error) {
	markup := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		line := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			line = append(line, tgbotapi.InlineKeyboardButton{Text: btn.Label, CallbackData: btn.CallbackData})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, line)
	}

	v, err := c.guard(ctx, func() (any, error) {
		return c.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
			ParseMode:   "MarkdownV2",
			ReplyMarkup: markup,
		})
	})
	if err != nil {
		return 0, err
	}
	msg := v.(*tgbotapi.Message)
	return msg.MessageId, nil
}

type Button struct {
	Label        string
	CallbackData string
}

// RemoveKeyboard clears the inline keyboard attached to messageId.
func (c *Client) RemoveKeyboard(ctx context.Context, chatId, messageId int64) error {
	_, err := c.guard(ctx, func() (any, error) {
		return c.api.EditMessageReplyMarkup(&tgbotapi.EditMessageReplyMarkupOpts{
			ChatId:      chatId,
			MessageId:   messageId,
			ReplyMarkup: tgbotapi.InlineKeyboardMarkup{},
		})
	})
	return err
}

// AnswerCallback answers a callback query with a transient toast or
// alert dialog.
func (c *Client) AnswerCallback(ctx context.Context, callbackQueryId, text string, alert bool) error {
	_, err := c.guard(ctx, func() (any, error) {
		return c.api.AnswerCallbackQuery(callbackQueryId, &tgbotapi.AnswerCallbackQueryOpts{
			Text:      text,
			ShowAlert: alert,
		})
	})
	return err
}

// SendPoll opens a non-quiz yes/no poll for word admission.
func (c *Client) SendPoll(ctx context.Context, chatId int64, question string, anonymous bool, openPeriodSec int) (int64, string, error) {
	v, err := c.guard(ctx, func() (any, error) {
		return c.api.SendPoll(chatId, question, []tgbotapi.InputPollOption{{Text: "Да"}, {Text: "Нет"}}, &tgbotapi.SendPollOpts{
			IsAnonymous: anonymous,
			OpenPeriod:  int64(openPeriodSec),
		})
	})
	if err != nil {
		return 0, "", err
	}
	msg := v.(*tgbotapi.Message)
	return msg.MessageId, msg.Poll.Id, nil
}

// StopPoll closes an open poll and returns the final option vote
// counts in the order they were offered (yes, no).
func (c *Client) StopPoll(ctx context.Context, chatId, messageId int64) (yes, no int, err error) {
	v, e := c.guard(ctx, func() (any, error) {
		return c.api.StopPoll(chatId, messageId, nil)
	})
	if e != nil {
		return 0, 0, e
	}
	poll := v.(*tgbotapi.Poll)
	if len(poll.Options) < 2 {
		return 0, 0, fmt.Errorf("telegram: stop poll %d: expected 2 options, got %d", messageId, len(poll.Options))
	}
	return int(poll.Options[0].VoterCount), int(poll.Options[1].VoterCount), nil
}
