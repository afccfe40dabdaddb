// Package unlock tracks the progressive reveal of country facts. It is
// independent of the daily challenge.
package unlock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/geostreak/internal/database"
	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/pkg/models"
	"go.uber.org/zap"
)

// ErrCountryNotFound is returned for ids missing from the dataset
var ErrCountryNotFound = errors.New("country not found")

// Store persists revealed fields. Get returns database.ErrNotFound for
// countries the player never opened.
type Store interface {
	Get(ctx context.Context, playerID int64, countryID string) (*models.CountryProgress, error)
	ListByPlayer(ctx context.Context, playerID int64) ([]*models.CountryProgress, error)
	Save(ctx context.Context, progress *models.CountryProgress) error
	DeleteByPlayer(ctx context.Context, playerID int64) error
}

// CatalogSource provides the reference dataset
type CatalogSource interface {
	Catalog() (*referencedata.Catalog, error)
}

// FilteredCountry is a country with the visibility of each answerable field
type FilteredCountry struct {
	Country models.Country
	Visible map[string]bool
}

// Value renders a field, or a placeholder while it is locked
func (f FilteredCountry) Value(key string) string {
	if !f.Visible[key] {
		return "???"
	}
	return f.Country.DisplayString(key)
}

// Tracker serves unlock state backed by a Store
type Tracker struct {
	store   Store
	catalog CatalogSource
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewTracker creates a tracker
func NewTracker(store Store, catalog CatalogSource, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, catalog: catalog, logger: logger}
}

func (t *Tracker) country(countryID string) (models.Country, error) {
	catalog, err := t.catalog.Catalog()
	if err != nil {
		t.logger.Error("reference data unavailable", zap.Error(err))
		return models.Country{}, fmt.Errorf("%w: %s", ErrCountryNotFound, countryID)
	}
	c, ok := catalog.ByID(countryID)
	if !ok {
		return models.Country{}, fmt.Errorf("%w: %s", ErrCountryNotFound, countryID)
	}
	return c, nil
}

// GetOrCreate returns the player's state for a country. Countries never
// opened start with every field locked. Storage failures degrade to a
// fresh state.
func (t *Tracker) GetOrCreate(ctx context.Context, playerID int64, countryID string) (*models.CountryProgress, error) {
	c, err := t.country(countryID)
	if err != nil {
		return nil, err
	}
	return t.stateFor(ctx, playerID, c), nil
}

func (t *Tracker) stateFor(ctx context.Context, playerID int64, c models.Country) *models.CountryProgress {
	stored, err := t.store.Get(ctx, playerID, c.ID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		fresh := models.NewCountryProgress(playerID, c.ID, c.AnswerableFieldKeys(), nil)
		if err := t.store.Save(ctx, fresh); err != nil {
			t.logger.Error("failed to save country progress", zap.Int64("player_id", playerID), zap.Error(err))
		}
		return fresh
	case err != nil:
		t.logger.Error("failed to load country progress", zap.Int64("player_id", playerID), zap.Error(err))
		return models.NewCountryProgress(playerID, c.ID, c.AnswerableFieldKeys(), nil)
	}
	return models.NewCountryProgress(playerID, c.ID, c.AnswerableFieldKeys(), stored.UnlockedFields)
}

// IsFieldUnlocked is false for locked and unknown fields
func (t *Tracker) IsFieldUnlocked(ctx context.Context, playerID int64, countryID, field string) (bool, error) {
	p, err := t.GetOrCreate(ctx, playerID, countryID)
	if err != nil {
		return false, err
	}
	return p.IsFieldUnlocked(field), nil
}

// Unlock reveals a field. Fields the country does not have are ignored.
// It reports whether anything changed.
func (t *Tracker) Unlock(ctx context.Context, playerID int64, countryID, field string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.GetOrCreate(ctx, playerID, countryID)
	if err != nil {
		return false, err
	}
	if !p.UnlockField(field) {
		return false, nil
	}
	if err := t.store.Save(ctx, p); err != nil {
		t.logger.Error("failed to save country progress", zap.Int64("player_id", playerID), zap.Error(err))
	}
	t.logger.Debug("field unlocked",
		zap.Int64("player_id", playerID), zap.String("country", countryID), zap.String("field", field))
	return true, nil
}

// LockedFields lists the fields still hidden
func (t *Tracker) LockedFields(ctx context.Context, playerID int64, countryID string) ([]string, error) {
	p, err := t.GetOrCreate(ctx, playerID, countryID)
	if err != nil {
		return nil, err
	}
	return p.LockedFields(), nil
}

// UnlockedFields lists the fields already revealed
func (t *Tracker) UnlockedFields(ctx context.Context, playerID int64, countryID string) ([]string, error) {
	p, err := t.GetOrCreate(ctx, playerID, countryID)
	if err != nil {
		return nil, err
	}
	return p.UnlockedFieldList(), nil
}

// IsFullyConquered is true when every field of the country is revealed
func (t *Tracker) IsFullyConquered(ctx context.Context, playerID int64, countryID string) (bool, error) {
	p, err := t.GetOrCreate(ctx, playerID, countryID)
	if err != nil {
		return false, err
	}
	return p.IsFullyConquered(), nil
}

// ConqueredCountries lists the countries with every field revealed, sorted by name
func (t *Tracker) ConqueredCountries(ctx context.Context, playerID int64) ([]models.Country, error) {
	states, err := t.store.ListByPlayer(ctx, playerID)
	if err != nil {
		t.logger.Error("failed to list country progress", zap.Int64("player_id", playerID), zap.Error(err))
		return nil, nil
	}
	catalog, err := t.catalog.Catalog()
	if err != nil {
		t.logger.Error("reference data unavailable", zap.Error(err))
		return nil, nil
	}

	conquered := make(map[string]bool)
	for _, s := range states {
		c, ok := catalog.ByID(s.CountryID)
		if !ok {
			continue
		}
		if models.NewCountryProgress(playerID, c.ID, c.AnswerableFieldKeys(), s.UnlockedFields).IsFullyConquered() {
			conquered[c.ID] = true
		}
	}

	var out []models.Country
	for _, c := range catalog.All() {
		if conquered[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

// Reset forgets every fact the player revealed
func (t *Tracker) Reset(ctx context.Context, playerID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.DeleteByPlayer(ctx, playerID); err != nil {
		return err
	}
	t.logger.Info("revealed facts reset", zap.Int64("player_id", playerID))
	return nil
}

// FilteredCountry returns the country with its field visibility
func (t *Tracker) FilteredCountry(ctx context.Context, playerID int64, countryID string) (FilteredCountry, error) {
	c, err := t.country(countryID)
	if err != nil {
		return FilteredCountry{}, err
	}
	p := t.stateFor(ctx, playerID, c)

	visible := make(map[string]bool)
	for _, key := range c.AnswerableFieldKeys() {
		visible[key] = p.IsFieldUnlocked(key)
	}
	return FilteredCountry{Country: c, Visible: visible}, nil
}
