package game

import (
	"time"

	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/pkg/models"
)

// ProgressionThreshold is the share of a level's challenges that unlocks
// the next level
const ProgressionThreshold = 0.6

// completedInLevel counts active completions of countries in level and the
// number of possible challenges of the level
func completedInLevel(p *models.PlayerProgress, catalog *referencedata.Catalog, level int) (done, possible int) {
	possible = catalog.CountInLevel(level) * models.ChallengeTypesPerCountry
	for _, c := range p.ActiveCompletions() {
		if catalog.LevelOf(c.CountryID) == level {
			done++
		}
	}
	return done, possible
}

// CompletionPercentage is the completed share of a level's challenges, in
// [0, 1]. A level without countries is 0.
func CompletionPercentage(p *models.PlayerProgress, catalog *referencedata.Catalog, level int) float64 {
	done, possible := completedInLevel(p, catalog, level)
	if possible == 0 {
		return 0
	}
	return float64(done) / float64(possible)
}

// reachedThreshold compares in integers: done/possible >= 3/5
func reachedThreshold(p *models.PlayerProgress, catalog *referencedata.Catalog, level int) bool {
	done, possible := completedInLevel(p, catalog, level)
	return possible > 0 && done*5 >= possible*3
}

// CanAdvance reports whether the current level is complete enough to move on
func CanAdvance(p *models.PlayerProgress, catalog *referencedata.Catalog) bool {
	return p.CurrentLevel < models.MaxLevel && reachedThreshold(p, catalog, p.CurrentLevel)
}

// ExhaustionOutcome tells what ApplyExhaustion did
type ExhaustionOutcome int

const (
	NotExhausted ExhaustionOutcome = iota
	Advanced
	Recycled
)

func (o ExhaustionOutcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case Recycled:
		return "recycled"
	}
	return "none"
}

// ApplyExhaustion runs when no selectable challenge is left. The player
// advances a level when the threshold is met, otherwise the completions of
// the current level are recycled so its challenges become selectable again.
func ApplyExhaustion(p *models.PlayerProgress, catalog *referencedata.Catalog, now time.Time) ExhaustionOutcome {
	if CanAdvance(p, catalog) {
		p.CurrentLevel++
		return Advanced
	}

	ids := make(map[string]bool)
	for _, c := range catalog.ForLevel(p.CurrentLevel) {
		ids[c.ID] = true
	}
	p.RecycleCountries(ids, now)
	return Recycled
}
