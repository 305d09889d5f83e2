// Package events defines the message shapes that flow across the
// broker between poller, worker and sender. Every envelope carries an
// explicit Type discriminator and a concrete payload struct field per
// case — dispatch is a switch over Type, never a string-to-closure
// lookup. A type a consumer does not handle reaches its default
// branch, which logs it and acks the message.
package events

import "encoding/json"

type Type string

const (
	// Poller -> Worker
	TypeUpdate Type = "update"

	// Worker -> Worker (self-scheduled via the delayed exchange)
	TypeSlowPlayer  Type = "slow_player"
	TypePollDeadline Type = "poll_deadline"
	TypePickLeader  Type = "pick_leader"

	// Worker -> Sender
	TypeSendMessage           Type = "message"
	TypeSendMessageKeyboard   Type = "message_keyboard"
	TypeRemoveKeyboard        Type = "message_inline_remove_keyboard"
	TypeCallbackAlert         Type = "callback_alert"
	TypeSendPoll              Type = "send_poll"
	TypeStopPoll              Type = "stop_poll"

	// Sender -> Worker (poll lifecycle feedback)
	TypePollId     Type = "poll_id"
	TypePollAnswer Type = "poll_answer"
	TypePollResult Type = "poll_result"

	// Sender -> Sender (self-scheduled via the delayed exchange)
	TypeSendPollAnswer Type = "send_poll_answer"
)

// Envelope is the wire format for every message on the bus. Payload is
// kept as raw JSON and decoded into the concrete type selected by
// Type; this mirrors how the poller, worker and sender are three
// separate binaries that only need to agree on the wire contract, not
// share Go types directly.
type Envelope struct {
	Type    Type            `json:"type_"`
	Payload json.RawMessage `json:"payload"`
}

func Encode(t Type, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}

func Decode(body []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(body, &env)
	return env, err
}

// Update carries a raw Telegram update as forwarded by the poller.
// The worker decodes Raw into gotgbot's ext.Update itself, keeping
// events free of a gotgbot import.
type Update struct {
	UpdateId int64           `json:"update_id"`
	Raw      json.RawMessage `json:"raw"`
}

// SlowPlayer fires when a Words player fails to answer within
// ResponseTimeSec of becoming the current leader.
type SlowPlayer struct {
	SessionId int64 `json:"session_id"`
	UserId    int64 `json:"user_id"`
	Round     int   `json:"round"` // the player's round at schedule time, for staleness checks
}

// PollDeadline names a word-admission poll deadline. No process
// publishes or handles this type; polls are closed and tallied through
// SendPollAnswer.
type PollDeadline struct {
	SessionId int64  `json:"session_id"`
	PollId    string `json:"poll_id"`
}

// PickLeader asks the worker to advance to the next Words leader. It
// is also used as the very first event after team assembly closes.
type PickLeader struct {
	SessionId int64 `json:"session_id"`
}

// SendMessage asks the sender to deliver plain text to a chat.
type SendMessage struct {
	ChatId int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// SendMessageKeyboard asks the sender to deliver text with an inline
// keyboard. Keyboard is a row-major grid of button label/callback-data
// pairs, mirroring the builder shape used by the original bot package.
type SendMessageKeyboard struct {
	ChatId   int64            `json:"chat_id"`
	SessionId int64           `json:"session_id"`
	Text     string           `json:"text"`
	Keyboard [][]InlineButton `json:"keyboard"`
	LiveTimeSec int           `json:"live_time_sec"` // >0: auto-remove after this many seconds, then pick_leader fires
}

type InlineButton struct {
	Label        string `json:"label"`
	CallbackData string `json:"callback_data"`
}

// RemoveKeyboard strips the inline keyboard from a previously sent
// message once its LiveTimeSec has elapsed. SessionId is
// non-zero for the team-assembly keyboard: once the keyboard is gone,
// the sender follows up with a pick_leader event to close the join
// window and start play.
type RemoveKeyboard struct {
	ChatId    int64 `json:"chat_id"`
	MessageId int64 `json:"message_id"`
	SessionId int64 `json:"session_id"`
}

// CallbackAlert answers a callback query with a transient toast.
type CallbackAlert struct {
	CallbackQueryId string `json:"callback_query_id"`
	Text            string `json:"text"`
	Alert           bool   `json:"alert"`
}

// SendPoll asks the sender to open a Telegram poll for word admission.
type SendPoll struct {
	ChatId     int64  `json:"chat_id"`
	SessionId  int64  `json:"session_id"`
	Question   string `json:"question"`
	Anonymous  bool   `json:"anonymous"`
	OpenPeriod int    `json:"open_period_sec"`
	Word       string `json:"word"` // echoed back via send_poll_answer/poll_result so the sender stays DB-free
}

// StopPoll describes closing an open poll immediately. No process
// publishes it and the sender has no handler for it; polls are closed
// through SendPollAnswer.
type StopPoll struct {
	ChatId    int64 `json:"chat_id"`
	MessageId int64 `json:"message_id"`
}

// PollId is published by the sender immediately after a poll is sent,
// so the worker can bind the Telegram-assigned poll id to the session
// before any poll_answer updates arrive for it.
type PollId struct {
	SessionId int64  `json:"session_id"`
	ChatId    int64  `json:"chat_id"`
	MessageId int64  `json:"message_id"`
	PollId    string `json:"poll_id"`
}

// SendPollAnswer is the sender's self-scheduled reminder to close a
// poll and tally its result, fired period+2s after SendPoll.
type SendPollAnswer struct {
	SessionId int64  `json:"session_id"`
	ChatId    int64  `json:"chat_id"`
	MessageId int64  `json:"message_id"`
	PollId    string `json:"poll_id"`
	Word      string `json:"word"`
}

// PollAnswer is a player's poll vote in envelope form; the worker
// records it when it receives one. No process publishes this type:
// votes reach the worker as raw Telegram poll_answer updates from the
// poller.
type PollAnswer struct {
	SessionId int64 `json:"session_id"`
	PollId    string `json:"poll_id"`
	UserId    int64 `json:"user_id"`
	OptionId  int   `json:"option_id"` // 0 = yes, 1 = no
}

// PollResult is emitted once a poll closes, carrying the final tally
// the sender observed from Telegram's stop_poll response.
type PollResult struct {
	SessionId   int64  `json:"session_id"`
	PollId      string `json:"poll_id"`
	Word        string `json:"word"`
	Yes         int    `json:"yes"`
	No          int    `json:"no"`
	TotalVoters int    `json:"total_voters"`
}
