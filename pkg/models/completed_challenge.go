package models

import "time"

// CompletedChallenge records a correctly answered (country, challenge type)
// pair. Rows recycled by the exhaustion policy keep RecycledAt set and no
// longer block selection.
type CompletedChallenge struct {
	ID            string        `json:"id" db:"id"`
	PlayerID      int64         `json:"player_id" db:"player_id"`
	CountryID     string        `json:"country_id" db:"country_id"`
	ChallengeType ChallengeType `json:"challenge_type" db:"challenge_type"`
	CompletedAt   time.Time     `json:"completed_at" db:"completed_at"`
	RecycledAt    *time.Time    `json:"recycled_at" db:"recycled_at"`
}

// Active reports whether the record still counts towards completion
func (c CompletedChallenge) Active() bool {
	return c.RecycledAt == nil
}
