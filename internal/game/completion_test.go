package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/example/geostreak/pkg/models"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func complete(p *models.PlayerProgress, countryID string, types ...models.ChallengeType) {
	for _, ct := range types {
		p.MarkChallengeCompleted(fmt.Sprintf("%s-%s", countryID, ct), countryID, ct, t0)
	}
}

func TestCompletionPercentage(t *testing.T) {
	catalog := testCatalog(map[int]int{1: 5, 2: 2})
	p := models.NewPlayerProgress(1)

	assert.Equal(t, 0.0, CompletionPercentage(p, catalog, 1))
	assert.Equal(t, 0.0, CompletionPercentage(p, catalog, 3))

	complete(p, "L1C00", models.AllChallengeTypes()...)
	complete(p, "L2C00", models.FlagToCountry)
	assert.InDelta(t, 3.0/15.0, CompletionPercentage(p, catalog, 1), 1e-9)
	assert.InDelta(t, 1.0/6.0, CompletionPercentage(p, catalog, 2), 1e-9)

	p.RecycleCountries(map[string]bool{"L1C00": true}, t0)
	assert.Equal(t, 0.0, CompletionPercentage(p, catalog, 1))
}

func TestApplyExhaustion_RecyclesBelowThreshold(t *testing.T) {
	catalog := testCatalog(map[int]int{1: 2, 2: 1})
	p := models.NewPlayerProgress(1)
	complete(p, "L1C00", models.FlagToCountry)
	complete(p, "L2C00", models.FlagToCountry)

	assert.Equal(t, Recycled, ApplyExhaustion(p, catalog, t0))
	assert.Equal(t, 1, p.CurrentLevel)
	assert.False(t, p.IsChallengeCompleted("L1C00", models.FlagToCountry))
	// other levels are untouched
	assert.True(t, p.IsChallengeCompleted("L2C00", models.FlagToCountry))
	// history survives recycling
	assert.True(t, p.IsCountryCompleted("L1C00"))
}

func TestApplyExhaustion_AdvancesAtThreshold(t *testing.T) {
	catalog := testCatalog(map[int]int{1: 1, 2: 1})
	p := models.NewPlayerProgress(1)
	complete(p, "L1C00", models.FlagToCountry, models.CountryToCapital)

	assert.Equal(t, Advanced, ApplyExhaustion(p, catalog, t0))
	assert.Equal(t, 2, p.CurrentLevel)
	assert.True(t, p.IsChallengeCompleted("L1C00", models.FlagToCountry))
}

func TestApplyExhaustion_MaxLevelRecycles(t *testing.T) {
	catalog := testCatalog(map[int]int{5: 1})
	p := models.NewPlayerProgress(1)
	p.CurrentLevel = models.MaxLevel
	complete(p, "L5C00", models.AllChallengeTypes()...)

	assert.Equal(t, Recycled, ApplyExhaustion(p, catalog, t0))
	assert.Equal(t, models.MaxLevel, p.CurrentLevel)
	assert.Empty(t, p.ActiveCompletions())
}

func TestExhaustionOutcome_String(t *testing.T) {
	assert.Equal(t, "none", NotExhausted.String())
	assert.Equal(t, "advanced", Advanced.String())
	assert.Equal(t, "recycled", Recycled.String())
}
