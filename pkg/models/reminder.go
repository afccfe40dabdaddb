package models

import "time"

// Reminder is a scheduled daily nudge for one player
type Reminder struct {
	PlayerID int64      `json:"player_id" db:"player_id"`
	RemindOn string     `json:"remind_on" db:"remind_on"` // YYYY-MM-DD in the game time zone
	Hour     int        `json:"hour" db:"hour"`
	DueAt    time.Time  `json:"due_at" db:"due_at"`
	SentAt   *time.Time `json:"sent_at" db:"sent_at"`
}
