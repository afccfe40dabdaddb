package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrPersistence wraps every failed read or write
	ErrPersistence = errors.New("persistence failure")
)

// Connect opens the database and creates the schema. driver is "sqlite3"
// or "postgres"; for sqlite the parent directory of dsn is created.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %v", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []struct {
	name string
	ddl  string
}{
	{"player_progress", `
		CREATE TABLE IF NOT EXISTS player_progress (
			player_id BIGINT PRIMARY KEY,
			streak INTEGER NOT NULL DEFAULT 0,
			longest_streak INTEGER NOT NULL DEFAULT 0,
			correct_answers INTEGER NOT NULL DEFAULT 0,
			total_answers INTEGER NOT NULL DEFAULT 0,
			last_completed_date TIMESTAMP NULL,
			current_level INTEGER NOT NULL DEFAULT 1,
			has_completed_onboarding BOOLEAN NOT NULL DEFAULT FALSE,
			preferred_reminder_hour INTEGER NOT NULL DEFAULT 8,
			notifications_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			pending_country_id TEXT NULL,
			pending_challenge_type TEXT NULL,
			pending_selected_at TIMESTAMP NULL,
			last_answer_country_id TEXT NULL,
			last_answer_challenge_type TEXT NULL,
			last_answer_guess TEXT NULL,
			last_answer_correct BOOLEAN NULL,
			last_answered_at TIMESTAMP NULL,
			updated_at TIMESTAMP NULL
		)`},
	{"completed_challenges", `
		CREATE TABLE IF NOT EXISTS completed_challenges (
			id TEXT PRIMARY KEY,
			player_id BIGINT NOT NULL,
			country_id TEXT NOT NULL,
			challenge_type TEXT NOT NULL,
			completed_at TIMESTAMP NOT NULL,
			recycled_at TIMESTAMP NULL,
			FOREIGN KEY (player_id) REFERENCES player_progress(player_id) ON DELETE CASCADE
		)`},
	// at most one active completion per (player, country, type)
	{"completed_challenges active index", `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_completed_challenges_active
		ON completed_challenges (player_id, country_id, challenge_type)
		WHERE recycled_at IS NULL`},
	{"completed_challenges player index", `
		CREATE INDEX IF NOT EXISTS idx_completed_challenges_player
		ON completed_challenges (player_id)`},
	{"country_progress", `
		CREATE TABLE IF NOT EXISTS country_progress (
			player_id BIGINT NOT NULL,
			country_id TEXT NOT NULL,
			unlocked_fields TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NULL,
			PRIMARY KEY (player_id, country_id)
		)`},
	{"reminders", `
		CREATE TABLE IF NOT EXISTS reminders (
			player_id BIGINT NOT NULL,
			remind_on TEXT NOT NULL,
			hour INTEGER NOT NULL,
			due_at TIMESTAMP NOT NULL,
			sent_at TIMESTAMP NULL,
			PRIMARY KEY (player_id, remind_on)
		)`},
	{"reminders due index", `
		CREATE INDEX IF NOT EXISTS idx_reminders_due
		ON reminders (sent_at, due_at)`},
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	for _, s := range schema {
		if _, err := db.Exec(s.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %v", s.name, err)
		}
	}
	return nil
}

func persistenceError(action string, err error) error {
	return fmt.Errorf("%w: failed to %s: %v", ErrPersistence, action, err)
}

// utc normalises timestamps before they reach a TIMESTAMP column
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
