package models

import (
	"sort"
	"time"
)

const (
	// DefaultReminderHour is used until the player picks a reminder time
	DefaultReminderHour = 8
	// FirstLevel is where every player starts
	FirstLevel = 1
)

// PendingChallenge is today's selected but not yet answered challenge
type PendingChallenge struct {
	CountryID     string        `json:"country_id"`
	ChallengeType ChallengeType `json:"challenge_type"`
	SelectedAt    time.Time     `json:"selected_at"`
}

// AnswerRecord is the outcome of the last submitted answer
type AnswerRecord struct {
	CountryID     string        `json:"country_id"`
	ChallengeType ChallengeType `json:"challenge_type"`
	Guess         string        `json:"guess"`
	Correct       bool          `json:"correct"`
	AnsweredAt    time.Time     `json:"answered_at"`
}

// PlayerProgress is the persisted game state of one player
type PlayerProgress struct {
	PlayerID               int64                `json:"player_id" db:"player_id"`
	Streak                 int                  `json:"streak" db:"streak"`
	LongestStreak          int                  `json:"longest_streak" db:"longest_streak"`
	CorrectAnswers         int                  `json:"correct_answers" db:"correct_answers"`
	TotalAnswers           int                  `json:"total_answers" db:"total_answers"`
	LastCompletedDate      *time.Time           `json:"last_completed_date" db:"last_completed_date"`
	CurrentLevel           int                  `json:"current_level" db:"current_level"`
	HasCompletedOnboarding bool                 `json:"has_completed_onboarding" db:"has_completed_onboarding"`
	PreferredReminderHour  int                  `json:"preferred_reminder_hour" db:"preferred_reminder_hour"`
	NotificationsEnabled   bool                 `json:"notifications_enabled" db:"notifications_enabled"`
	Pending                *PendingChallenge    `json:"pending,omitempty" db:"-"`
	LastAnswer             *AnswerRecord        `json:"last_answer,omitempty" db:"-"`
	CompletedChallenges    []CompletedChallenge `json:"completed_challenges" db:"-"`
}

// NewPlayerProgress returns the first-launch state for a player
func NewPlayerProgress(playerID int64) *PlayerProgress {
	return &PlayerProgress{
		PlayerID:              playerID,
		CurrentLevel:          FirstLevel,
		PreferredReminderHour: DefaultReminderHour,
	}
}

// Clone returns a deep copy so callers can mutate it freely
func (p *PlayerProgress) Clone() *PlayerProgress {
	c := *p
	if p.LastCompletedDate != nil {
		t := *p.LastCompletedDate
		c.LastCompletedDate = &t
	}
	if p.Pending != nil {
		pc := *p.Pending
		c.Pending = &pc
	}
	if p.LastAnswer != nil {
		a := *p.LastAnswer
		c.LastAnswer = &a
	}
	c.CompletedChallenges = make([]CompletedChallenge, len(p.CompletedChallenges))
	for i, cc := range p.CompletedChallenges {
		if cc.RecycledAt != nil {
			t := *cc.RecycledAt
			cc.RecycledAt = &t
		}
		c.CompletedChallenges[i] = cc
	}
	return &c
}

// IsChallengeCompleted reports an active completion for the pair
func (p *PlayerProgress) IsChallengeCompleted(countryID string, t ChallengeType) bool {
	for _, c := range p.CompletedChallenges {
		if c.Active() && c.CountryID == countryID && c.ChallengeType == t {
			return true
		}
	}
	return false
}

// MarkChallengeCompleted appends an active completion unless one exists.
// It returns the new record and true, or false when it was a duplicate.
func (p *PlayerProgress) MarkChallengeCompleted(id, countryID string, t ChallengeType, at time.Time) (CompletedChallenge, bool) {
	if p.IsChallengeCompleted(countryID, t) {
		return CompletedChallenge{}, false
	}
	rec := CompletedChallenge{
		ID:            id,
		PlayerID:      p.PlayerID,
		CountryID:     countryID,
		ChallengeType: t,
		CompletedAt:   at,
	}
	p.CompletedChallenges = append(p.CompletedChallenges, rec)
	return rec, true
}

// RecycleCountries marks every active completion of the given countries as
// recycled and returns how many were touched
func (p *PlayerProgress) RecycleCountries(countryIDs map[string]bool, at time.Time) int {
	n := 0
	for i := range p.CompletedChallenges {
		c := &p.CompletedChallenges[i]
		if c.Active() && countryIDs[c.CountryID] {
			t := at
			c.RecycledAt = &t
			n++
		}
	}
	return n
}

// ActiveCompletions returns the completions that still count
func (p *PlayerProgress) ActiveCompletions() []CompletedChallenge {
	var out []CompletedChallenge
	for _, c := range p.CompletedChallenges {
		if c.Active() {
			out = append(out, c)
		}
	}
	return out
}

// CompletedEntities lists every country ever answered correctly, sorted.
// Recycling does not remove a country from this view.
func (p *PlayerProgress) CompletedEntities() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range p.CompletedChallenges {
		if !seen[c.CountryID] {
			seen[c.CountryID] = true
			ids = append(ids, c.CountryID)
		}
	}
	sort.Strings(ids)
	return ids
}

// IsCountryCompleted reports whether the country was ever answered correctly
func (p *PlayerProgress) IsCountryCompleted(countryID string) bool {
	for _, c := range p.CompletedChallenges {
		if c.CountryID == countryID {
			return true
		}
	}
	return false
}

// Accuracy is correct/total, or 0 before the first answer
func (p *PlayerProgress) Accuracy() float64 {
	if p.TotalAnswers == 0 {
		return 0
	}
	return float64(p.CorrectAnswers) / float64(p.TotalAnswers)
}
