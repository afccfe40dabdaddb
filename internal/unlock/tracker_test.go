package unlock

import (
	"context"
	"testing"

	"github.com/example/geostreak/internal/database"
	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type catalogFunc func() (*referencedata.Catalog, error)

func (f catalogFunc) Catalog() (*referencedata.Catalog, error) { return f() }

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	db, err := database.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	provider := referencedata.NewProvider("", zap.NewNop())
	return NewTracker(database.NewCountryProgressRepository(db), provider, zap.NewNop())
}

const player = int64(9)

func TestGetOrCreate_SeedsLockedFields(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)

	p, err := tr.GetOrCreate(ctx, player, "FR")
	require.NoError(t, err)
	assert.NotEmpty(t, p.UnlockedFields)
	for field, unlocked := range p.UnlockedFields {
		assert.False(t, unlocked, field)
	}
	assert.False(t, p.IsFullyConquered())

	_, err = tr.GetOrCreate(ctx, player, "XX")
	assert.ErrorIs(t, err, ErrCountryNotFound)
}

func TestUnlock(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)

	changed, err := tr.Unlock(ctx, player, "FR", models.FieldCapital)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = tr.Unlock(ctx, player, "FR", models.FieldCapital)
	require.NoError(t, err)
	assert.False(t, changed)

	ok, err := tr.IsFieldUnlocked(ctx, player, "FR", models.FieldCapital)
	require.NoError(t, err)
	assert.True(t, ok)

	unlocked, err := tr.UnlockedFields(ctx, player, "FR")
	require.NoError(t, err)
	assert.Equal(t, []string{models.FieldCapital}, unlocked)

	locked, err := tr.LockedFields(ctx, player, "FR")
	require.NoError(t, err)
	assert.NotContains(t, locked, models.FieldCapital)
	assert.Contains(t, locked, models.FieldName)
}

func TestUnlock_UnknownFieldIsIgnored(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)

	changed, err := tr.Unlock(ctx, player, "FR", "nationalBird")
	require.NoError(t, err)
	assert.False(t, changed)

	ok, err := tr.IsFieldUnlocked(ctx, player, "FR", "nationalBird")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConquest(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)

	fields, err := tr.LockedFields(ctx, player, "JP")
	require.NoError(t, err)
	for _, f := range fields {
		_, err := tr.Unlock(ctx, player, "JP", f)
		require.NoError(t, err)
	}
	_, err = tr.Unlock(ctx, player, "FR", models.FieldName)
	require.NoError(t, err)

	done, err := tr.IsFullyConquered(ctx, player, "JP")
	require.NoError(t, err)
	assert.True(t, done)

	conquered, err := tr.ConqueredCountries(ctx, player)
	require.NoError(t, err)
	require.Len(t, conquered, 1)
	assert.Equal(t, "JP", conquered[0].ID)

	others, err := tr.ConqueredCountries(ctx, player+1)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestFilteredCountry(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)

	_, err := tr.Unlock(ctx, player, "FR", models.FieldCapital)
	require.NoError(t, err)

	fc, err := tr.FilteredCountry(ctx, player, "FR")
	require.NoError(t, err)
	assert.True(t, fc.Visible[models.FieldCapital])
	assert.False(t, fc.Visible[models.FieldName])
	assert.Equal(t, "Paris", fc.Value(models.FieldCapital))
	assert.Equal(t, "???", fc.Value(models.FieldName))
}

func TestCatalogFailure(t *testing.T) {
	db, err := database.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	tr := NewTracker(database.NewCountryProgressRepository(db),
		catalogFunc(func() (*referencedata.Catalog, error) { return nil, referencedata.ErrDecodingFailed }), nil)
	_, err = tr.GetOrCreate(context.Background(), player, "FR")
	assert.ErrorIs(t, err, ErrCountryNotFound)

	conquered, err := tr.ConqueredCountries(context.Background(), player)
	assert.NoError(t, err)
	assert.Empty(t, conquered)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)

	_, err := tr.Unlock(ctx, player, "FR", models.FieldCapital)
	require.NoError(t, err)
	require.NoError(t, tr.Reset(ctx, player))

	unlocked, err := tr.IsFieldUnlocked(ctx, player, "FR", models.FieldCapital)
	require.NoError(t, err)
	assert.False(t, unlocked)
}
