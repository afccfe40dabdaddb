package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/pkg/models"
)

// Challenge is one daily question: a country asked through a challenge type
type Challenge struct {
	Country models.Country
	Type    models.ChallengeType
}

// ExpectedAnswer is the answer that counts as correct
func (c Challenge) ExpectedAnswer() string {
	return c.Type.ExpectedAnswer(c.Country)
}

// Check validates a guess without touching any state
func (c Challenge) Check(guess string) bool {
	return ValidateAnswer(guess, c.ExpectedAnswer())
}

// Selector picks the daily challenge
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector uses rnd for every random choice; nil seeds from the clock
func NewSelector(rnd *rand.Rand) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rnd: rnd}
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// Select chooses a challenge type, then a country of the player's level
// (plus the next level once the current one passes the threshold) that has
// not been answered with that type yet. When nothing is left the exhaustion
// policy is applied to p and the selection is retried once.
//
// outcome is NotExhausted unless p was modified; ok is false when no
// challenge can be produced.
func (s *Selector) Select(p *models.PlayerProgress, catalog *referencedata.Catalog, now time.Time) (ch Challenge, outcome ExhaustionOutcome, ok bool) {
	if catalog == nil || catalog.Len() == 0 {
		return Challenge{}, NotExhausted, false
	}

	types := models.AllChallengeTypes()
	t := types[s.intn(len(types))]

	pool := candidates(p, catalog, t)
	if len(pool) == 0 {
		outcome = ApplyExhaustion(p, catalog, now)
		pool = candidates(p, catalog, t)
		if len(pool) == 0 {
			return Challenge{}, outcome, false
		}
	}

	return Challenge{Country: pool[s.intn(len(pool))], Type: t}, outcome, true
}

func candidates(p *models.PlayerProgress, catalog *referencedata.Catalog, t models.ChallengeType) []models.Country {
	pool := catalog.ForLevel(p.CurrentLevel)
	if CanAdvance(p, catalog) {
		pool = append(pool, catalog.ForLevel(p.CurrentLevel+1)...)
	}

	out := pool[:0]
	for _, c := range pool {
		if p.IsChallengeCompleted(c.ID, t) {
			continue
		}
		if t.ExpectedAnswer(c) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}
