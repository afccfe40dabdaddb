package database

import (
	"context"
	"time"

	"github.com/example/geostreak/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ReminderRepository handles scheduled daily reminders
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository creates a new repository instance
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Upsert stores reminders keyed by (player, day). Rescheduling an already
// sent day keeps its sent mark.
func (r *ReminderRepository) Upsert(ctx context.Context, reminders []models.Reminder) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistenceError("begin transaction", err)
	}
	defer tx.Rollback()

	for _, rem := range reminders {
		rem.DueAt = utc(rem.DueAt)
		rem.SentAt = utcPtr(rem.SentAt)
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO reminders (player_id, remind_on, hour, due_at, sent_at)
			VALUES (:player_id, :remind_on, :hour, :due_at, :sent_at)
			ON CONFLICT (player_id, remind_on) DO UPDATE SET
				hour = EXCLUDED.hour,
				due_at = EXCLUDED.due_at
		`, rem)
		if err != nil {
			return persistenceError("save reminder", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistenceError("commit reminders", err)
	}
	return nil
}

// ListByPlayer returns a player's reminders ordered by day
func (r *ReminderRepository) ListByPlayer(ctx context.Context, playerID int64) ([]models.Reminder, error) {
	var out []models.Reminder
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
		SELECT player_id, remind_on, hour, due_at, sent_at
		FROM reminders WHERE player_id = ? ORDER BY remind_on ASC
	`), playerID)
	if err != nil {
		return nil, persistenceError("list reminders", err)
	}
	return out, nil
}

// Due returns unsent reminders whose time has come
func (r *ReminderRepository) Due(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	var out []models.Reminder
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
		SELECT player_id, remind_on, hour, due_at, sent_at
		FROM reminders
		WHERE sent_at IS NULL AND due_at <= ?
		ORDER BY due_at ASC
	`), utc(now))
	if err != nil {
		return nil, persistenceError("get due reminders", err)
	}
	return out, nil
}

// MarkSent records delivery of a reminder
func (r *ReminderRepository) MarkSent(ctx context.Context, playerID int64, day string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE reminders SET sent_at = ? WHERE player_id = ? AND remind_on = ?"), utc(at), playerID, day)
	if err != nil {
		return persistenceError("mark reminder sent", err)
	}
	return nil
}

// DeleteForDay cancels one day's reminder
func (r *ReminderRepository) DeleteForDay(ctx context.Context, playerID int64, day string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"DELETE FROM reminders WHERE player_id = ? AND remind_on = ?"), playerID, day)
	if err != nil {
		return persistenceError("delete reminder", err)
	}
	return nil
}

// DeletePending drops every unsent reminder of a player
func (r *ReminderRepository) DeletePending(ctx context.Context, playerID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"DELETE FROM reminders WHERE player_id = ? AND sent_at IS NULL"), playerID)
	if err != nil {
		return persistenceError("delete pending reminders", err)
	}
	return nil
}

// DeleteBefore removes reminders of days before day (YYYY-MM-DD)
func (r *ReminderRepository) DeleteBefore(ctx context.Context, day string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM reminders WHERE remind_on < ?"), day)
	if err != nil {
		return 0, persistenceError("delete old reminders", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, persistenceError("count deleted reminders", err)
	}
	return n, nil
}
