package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/example/geostreak/pkg/models"
	"github.com/jmoiron/sqlx"
)

// CountryProgressRepository stores which facts of a country a player has revealed
type CountryProgressRepository struct {
	db *sqlx.DB
}

// NewCountryProgressRepository creates a new repository instance
func NewCountryProgressRepository(db *sqlx.DB) *CountryProgressRepository {
	return &CountryProgressRepository{db: db}
}

func (row countryProgressRow) toModel() *models.CountryProgress {
	unlocked := make(map[string]bool)
	for _, f := range strings.Split(row.UnlockedFields, ",") {
		if f != "" {
			unlocked[f] = true
		}
	}
	return &models.CountryProgress{PlayerID: row.PlayerID, CountryID: row.CountryID, UnlockedFields: unlocked}
}

// Get returns the stored state with only unlocked fields set, or ErrNotFound
func (r *CountryProgressRepository) Get(ctx context.Context, playerID int64, countryID string) (*models.CountryProgress, error) {
	var row countryProgressRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(
		"SELECT * FROM country_progress WHERE player_id = ? AND country_id = ?"), playerID, countryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceError("get country progress", err)
	}
	return row.toModel(), nil
}

// ListByPlayer returns every stored country state of a player
func (r *CountryProgressRepository) ListByPlayer(ctx context.Context, playerID int64) ([]*models.CountryProgress, error) {
	var rows []countryProgressRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		"SELECT * FROM country_progress WHERE player_id = ? ORDER BY country_id"), playerID)
	if err != nil {
		return nil, persistenceError("list country progress", err)
	}
	out := make([]*models.CountryProgress, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

// Save upserts the unlocked field list
func (r *CountryProgressRepository) Save(ctx context.Context, p *models.CountryProgress) error {
	row := countryProgressRow{
		PlayerID:       p.PlayerID,
		CountryID:      p.CountryID,
		UnlockedFields: strings.Join(p.UnlockedFieldList(), ","),
		UpdatedAt:      sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO country_progress (player_id, country_id, unlocked_fields, updated_at)
		VALUES (:player_id, :country_id, :unlocked_fields, :updated_at)
		ON CONFLICT (player_id, country_id) DO UPDATE SET
			unlocked_fields = EXCLUDED.unlocked_fields,
			updated_at = EXCLUDED.updated_at
	`, row)
	if err != nil {
		return persistenceError("save country progress", err)
	}
	return nil
}

// DeleteByPlayer forgets every revealed fact of a player
func (r *CountryProgressRepository) DeleteByPlayer(ctx context.Context, playerID int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM country_progress WHERE player_id = ?"), playerID); err != nil {
		return persistenceError("delete country progress", err)
	}
	return nil
}
