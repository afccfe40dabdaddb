package database

import (
	"database/sql"
	"time"

	"github.com/example/geostreak/pkg/models"
)

// progressRow mirrors the player_progress table. The pending challenge and
// the last answer are flattened into nullable columns.
type progressRow struct {
	PlayerID               int64          `db:"player_id"`
	Streak                 int            `db:"streak"`
	LongestStreak          int            `db:"longest_streak"`
	CorrectAnswers         int            `db:"correct_answers"`
	TotalAnswers           int            `db:"total_answers"`
	LastCompletedDate      sql.NullTime   `db:"last_completed_date"`
	CurrentLevel           int            `db:"current_level"`
	HasCompletedOnboarding bool           `db:"has_completed_onboarding"`
	PreferredReminderHour  int            `db:"preferred_reminder_hour"`
	NotificationsEnabled   bool           `db:"notifications_enabled"`
	PendingCountryID       sql.NullString `db:"pending_country_id"`
	PendingChallengeType   sql.NullString `db:"pending_challenge_type"`
	PendingSelectedAt      sql.NullTime   `db:"pending_selected_at"`
	LastAnswerCountryID    sql.NullString `db:"last_answer_country_id"`
	LastAnswerType         sql.NullString `db:"last_answer_challenge_type"`
	LastAnswerGuess        sql.NullString `db:"last_answer_guess"`
	LastAnswerCorrect      sql.NullBool   `db:"last_answer_correct"`
	LastAnsweredAt         sql.NullTime   `db:"last_answered_at"`
	UpdatedAt              sql.NullTime   `db:"updated_at"`
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toProgressRow(p *models.PlayerProgress, now time.Time) progressRow {
	row := progressRow{
		PlayerID:               p.PlayerID,
		Streak:                 p.Streak,
		LongestStreak:          p.LongestStreak,
		CorrectAnswers:         p.CorrectAnswers,
		TotalAnswers:           p.TotalAnswers,
		LastCompletedDate:      nullTime(p.LastCompletedDate),
		CurrentLevel:           p.CurrentLevel,
		HasCompletedOnboarding: p.HasCompletedOnboarding,
		PreferredReminderHour:  p.PreferredReminderHour,
		NotificationsEnabled:   p.NotificationsEnabled,
		UpdatedAt:              sql.NullTime{Time: now.UTC(), Valid: true},
	}
	if pc := p.Pending; pc != nil {
		row.PendingCountryID = nullString(pc.CountryID)
		row.PendingChallengeType = nullString(pc.ChallengeType.ID())
		row.PendingSelectedAt = nullTime(&pc.SelectedAt)
	}
	if a := p.LastAnswer; a != nil {
		row.LastAnswerCountryID = nullString(a.CountryID)
		row.LastAnswerType = nullString(a.ChallengeType.ID())
		row.LastAnswerGuess = sql.NullString{String: a.Guess, Valid: true}
		row.LastAnswerCorrect = sql.NullBool{Bool: a.Correct, Valid: true}
		row.LastAnsweredAt = nullTime(&a.AnsweredAt)
	}
	return row
}

// toModel converts the row back. Unknown challenge type ids drop the
// pending challenge or last answer rather than failing the whole load.
func (r progressRow) toModel() *models.PlayerProgress {
	p := &models.PlayerProgress{
		PlayerID:               r.PlayerID,
		Streak:                 r.Streak,
		LongestStreak:          r.LongestStreak,
		CorrectAnswers:         r.CorrectAnswers,
		TotalAnswers:           r.TotalAnswers,
		LastCompletedDate:      timePtr(r.LastCompletedDate),
		CurrentLevel:           r.CurrentLevel,
		HasCompletedOnboarding: r.HasCompletedOnboarding,
		PreferredReminderHour:  r.PreferredReminderHour,
		NotificationsEnabled:   r.NotificationsEnabled,
	}
	if r.PendingCountryID.Valid {
		if t, err := models.ParseChallengeType(r.PendingChallengeType.String); err == nil {
			p.Pending = &models.PendingChallenge{
				CountryID:     r.PendingCountryID.String,
				ChallengeType: t,
				SelectedAt:    r.PendingSelectedAt.Time,
			}
		}
	}
	if r.LastAnsweredAt.Valid {
		if t, err := models.ParseChallengeType(r.LastAnswerType.String); err == nil {
			p.LastAnswer = &models.AnswerRecord{
				CountryID:     r.LastAnswerCountryID.String,
				ChallengeType: t,
				Guess:         r.LastAnswerGuess.String,
				Correct:       r.LastAnswerCorrect.Bool,
				AnsweredAt:    r.LastAnsweredAt.Time,
			}
		}
	}
	return p
}

// countryProgressRow stores the unlocked field keys as a comma separated list
type countryProgressRow struct {
	PlayerID       int64        `db:"player_id"`
	CountryID      string       `db:"country_id"`
	UnlockedFields string       `db:"unlocked_fields"`
	UpdatedAt      sql.NullTime `db:"updated_at"`
}
