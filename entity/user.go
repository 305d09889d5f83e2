package entity

import "time"

// User is a chat-platform identity. Created on first participation in any
// game; never destroyed. TotalPoint accumulates across every session a user
// has ever played, rolled up when a group session ends.
type User struct {
	TelegramId int64     `json:"telegram_id" db:"telegram_id"`
	Name       string    `json:"name" db:"name"`
	TotalPoint int       `json:"total_point" db:"total_point"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return "player"
}
