package database

import (
	"context"

	"github.com/example/geostreak/pkg/models"
	"github.com/jmoiron/sqlx"
)

// CompletedChallengeRepository handles the completion log
type CompletedChallengeRepository struct {
	db *sqlx.DB
}

// NewCompletedChallengeRepository creates a new repository instance
func NewCompletedChallengeRepository(db *sqlx.DB) *CompletedChallengeRepository {
	return &CompletedChallengeRepository{db: db}
}

// ListByPlayer returns the whole log of a player, recycled rows included,
// oldest first
func (r *CompletedChallengeRepository) ListByPlayer(ctx context.Context, playerID int64) ([]models.CompletedChallenge, error) {
	query := r.db.Rebind(`
		SELECT id, player_id, country_id, challenge_type, completed_at, recycled_at
		FROM completed_challenges
		WHERE player_id = ?
		ORDER BY completed_at ASC, id ASC
	`)
	var records []models.CompletedChallenge
	if err := r.db.SelectContext(ctx, &records, query, playerID); err != nil {
		return nil, persistenceError("get completed challenges", err)
	}
	return records, nil
}

// CountActiveByType counts the active completions of a player per challenge type
func (r *CompletedChallengeRepository) CountActiveByType(ctx context.Context, playerID int64) (map[models.ChallengeType]int, error) {
	query := r.db.Rebind(`
		SELECT challenge_type, COUNT(*) AS n
		FROM completed_challenges
		WHERE player_id = ? AND recycled_at IS NULL
		GROUP BY challenge_type
	`)
	var rows []struct {
		ChallengeType models.ChallengeType `db:"challenge_type"`
		N             int                  `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, playerID); err != nil {
		return nil, persistenceError("count completed challenges", err)
	}
	counts := make(map[models.ChallengeType]int, len(rows))
	for _, row := range rows {
		counts[row.ChallengeType] = row.N
	}
	return counts, nil
}

func (r *CompletedChallengeRepository) upsert(ctx context.Context, tx *sqlx.Tx, c models.CompletedChallenge) error {
	c.CompletedAt = utc(c.CompletedAt)
	c.RecycledAt = utcPtr(c.RecycledAt)
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO completed_challenges (id, player_id, country_id, challenge_type, completed_at, recycled_at)
		VALUES (:id, :player_id, :country_id, :challenge_type, :completed_at, :recycled_at)
		ON CONFLICT (id) DO UPDATE SET recycled_at = EXCLUDED.recycled_at
	`, c)
	if err != nil {
		return persistenceError("save completed challenge", err)
	}
	return nil
}
