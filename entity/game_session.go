package entity

import "time"

// GameKind distinguishes the single-player Cities game from the
// multiplayer Words game.
type GameKind string

const (
	GameSingle GameKind = "single"
	GameGroup  GameKind = "group"
)

// GameSession is the running (or ended) instance of a game tied to one
// chat. At most one row with Active=true may exist per ChatId (I P1).
//
// ResponseTime/PollTime/Anonymous/StartingLives are a snapshot of
// GameSettings taken at creation time, so changing the global defaults
// mid-game never perturbs a session already in flight.
type GameSession struct {
	Id               int64    `json:"id" db:"id"`
	ChatId           int64    `json:"chat_id" db:"chat_id"`
	Kind             GameKind `json:"kind" db:"kind"`
	Active           bool     `json:"active" db:"is_active"`
	NextStartLetter  string   `json:"next_start_letter" db:"next_start_letter"`
	NextUserId       int64    `json:"next_user_id" db:"next_user_id"`
	CurrentPollId    string   `json:"current_poll_id" db:"current_poll_id"`
	PendingPollWord  string   `json:"pending_poll_word" db:"pending_poll_word"` // the word awaiting admission while CurrentPollId is set
	CreatorId        int64    `json:"creator_id" db:"creator_id"`
	Words            string   `json:"words" db:"words"` // comma-joined word list for the group; see store.AppendSessionWord
	ResponseTimeSec  int      `json:"response_time_sec" db:"response_time_sec"`
	PollTimeSec      int      `json:"poll_time_sec" db:"poll_time_sec"`
	Anonymous        bool     `json:"anonymous" db:"anonymous"`
	StartingLives    int      `json:"starting_lives" db:"starting_lives"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// HasPoll reports whether the session is currently paused for an
// in-flight word-admission poll (I2): no turn advances while true.
func (s *GameSession) HasPoll() bool {
	return s.CurrentPollId != ""
}

// IsGroup reports whether this is a Words multiplayer session.
func (s *GameSession) IsGroup() bool {
	return s.Kind == GameGroup
}
