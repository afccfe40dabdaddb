package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/geostreak/pkg/models"
	"github.com/jmoiron/sqlx"
)

// PlayerProgressRepository handles the player_progress table together with
// the player's completed challenges
type PlayerProgressRepository struct {
	db          *sqlx.DB
	completions *CompletedChallengeRepository
	now         func() time.Time
}

// NewPlayerProgressRepository creates a new repository instance
func NewPlayerProgressRepository(db *sqlx.DB) *PlayerProgressRepository {
	return &PlayerProgressRepository{
		db:          db,
		completions: NewCompletedChallengeRepository(db),
		now:         time.Now,
	}
}

const upsertProgress = `
	INSERT INTO player_progress (
		player_id, streak, longest_streak, correct_answers, total_answers,
		last_completed_date, current_level, has_completed_onboarding,
		preferred_reminder_hour, notifications_enabled,
		pending_country_id, pending_challenge_type, pending_selected_at,
		last_answer_country_id, last_answer_challenge_type, last_answer_guess,
		last_answer_correct, last_answered_at, updated_at
	) VALUES (
		:player_id, :streak, :longest_streak, :correct_answers, :total_answers,
		:last_completed_date, :current_level, :has_completed_onboarding,
		:preferred_reminder_hour, :notifications_enabled,
		:pending_country_id, :pending_challenge_type, :pending_selected_at,
		:last_answer_country_id, :last_answer_challenge_type, :last_answer_guess,
		:last_answer_correct, :last_answered_at, :updated_at
	)
	ON CONFLICT (player_id) DO UPDATE SET
		streak = EXCLUDED.streak,
		longest_streak = EXCLUDED.longest_streak,
		correct_answers = EXCLUDED.correct_answers,
		total_answers = EXCLUDED.total_answers,
		last_completed_date = EXCLUDED.last_completed_date,
		current_level = EXCLUDED.current_level,
		has_completed_onboarding = EXCLUDED.has_completed_onboarding,
		preferred_reminder_hour = EXCLUDED.preferred_reminder_hour,
		notifications_enabled = EXCLUDED.notifications_enabled,
		pending_country_id = EXCLUDED.pending_country_id,
		pending_challenge_type = EXCLUDED.pending_challenge_type,
		pending_selected_at = EXCLUDED.pending_selected_at,
		last_answer_country_id = EXCLUDED.last_answer_country_id,
		last_answer_challenge_type = EXCLUDED.last_answer_challenge_type,
		last_answer_guess = EXCLUDED.last_answer_guess,
		last_answer_correct = EXCLUDED.last_answer_correct,
		last_answered_at = EXCLUDED.last_answered_at,
		updated_at = EXCLUDED.updated_at
`

// Load returns the full progress of a player, or ErrNotFound
func (r *PlayerProgressRepository) Load(ctx context.Context, playerID int64) (*models.PlayerProgress, error) {
	var row progressRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind("SELECT * FROM player_progress WHERE player_id = ?"), playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceError("get player progress", err)
	}

	progress := row.toModel()
	completed, err := r.completions.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	progress.CompletedChallenges = completed
	return progress, nil
}

// Save writes the progress row and every completion record in one
// transaction. Completion rows are upserted by id, so recycled records
// keep their history.
func (r *PlayerProgressRepository) Save(ctx context.Context, progress *models.PlayerProgress) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistenceError("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, upsertProgress, toProgressRow(progress, r.now())); err != nil {
		return persistenceError("save player progress", err)
	}
	for _, c := range progress.CompletedChallenges {
		if err := r.completions.upsert(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return persistenceError("commit player progress", err)
	}
	return nil
}

// Delete removes the player and, by cascade, the completion log
func (r *PlayerProgressRepository) Delete(ctx context.Context, playerID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistenceError("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM completed_challenges WHERE player_id = ?"), playerID); err != nil {
		return persistenceError("delete completed challenges", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM player_progress WHERE player_id = ?"), playerID); err != nil {
		return persistenceError("delete player progress", err)
	}
	if err := tx.Commit(); err != nil {
		return persistenceError("commit delete", err)
	}
	return nil
}

// ListNotifiable maps every player with reminders turned on to the
// preferred reminder hour
func (r *PlayerProgressRepository) ListNotifiable(ctx context.Context) (map[int64]int, error) {
	var rows []struct {
		PlayerID int64 `db:"player_id"`
		Hour     int   `db:"preferred_reminder_hour"`
	}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		"SELECT player_id, preferred_reminder_hour FROM player_progress WHERE notifications_enabled = ?"), true)
	if err != nil {
		return nil, persistenceError("list notifiable players", err)
	}
	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.PlayerID] = row.Hour
	}
	return out, nil
}

// CountPlayers returns the number of stored players
func (r *PlayerProgressRepository) CountPlayers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM player_progress"); err != nil {
		return 0, persistenceError("count players", err)
	}
	return n, nil
}
