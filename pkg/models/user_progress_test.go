package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlayerProgress_Defaults(t *testing.T) {
	p := NewPlayerProgress(7)
	assert.Equal(t, int64(7), p.PlayerID)
	assert.Equal(t, 1, p.CurrentLevel)
	assert.Equal(t, 8, p.PreferredReminderHour)
	assert.Nil(t, p.LastCompletedDate)
	assert.False(t, p.HasCompletedOnboarding)
	assert.Zero(t, p.Accuracy())
}

func TestMarkChallengeCompleted_Dedup(t *testing.T) {
	p := NewPlayerProgress(1)
	now := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)

	rec, added := p.MarkChallengeCompleted("a", "FR", FlagToCountry, now)
	require.True(t, added)
	assert.Equal(t, "FR", rec.CountryID)

	_, added = p.MarkChallengeCompleted("b", "FR", FlagToCountry, now)
	assert.False(t, added)

	_, added = p.MarkChallengeCompleted("c", "FR", FlagToCapital, now)
	assert.True(t, added)

	assert.Len(t, p.CompletedChallenges, 2)
	assert.Equal(t, []string{"FR"}, p.CompletedEntities())
	assert.True(t, p.IsCountryCompleted("FR"))
	assert.False(t, p.IsCountryCompleted("DE"))
}

func TestRecycleCountries_KeepsEntityHistory(t *testing.T) {
	p := NewPlayerProgress(1)
	now := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	p.MarkChallengeCompleted("a", "FR", FlagToCountry, now)
	p.MarkChallengeCompleted("b", "DE", FlagToCountry, now)

	n := p.RecycleCountries(map[string]bool{"FR": true}, now.Add(time.Hour))
	assert.Equal(t, 1, n)
	assert.False(t, p.IsChallengeCompleted("FR", FlagToCountry))
	assert.True(t, p.IsChallengeCompleted("DE", FlagToCountry))
	assert.Len(t, p.ActiveCompletions(), 1)
	assert.Equal(t, []string{"DE", "FR"}, p.CompletedEntities())

	// a recycled pair can be completed again
	_, added := p.MarkChallengeCompleted("c", "FR", FlagToCountry, now.Add(2*time.Hour))
	assert.True(t, added)
}

func TestClone_IsDeep(t *testing.T) {
	now := time.Now()
	p := NewPlayerProgress(1)
	p.LastCompletedDate = &now
	p.Pending = &PendingChallenge{CountryID: "FR", ChallengeType: FlagToCountry}
	p.MarkChallengeCompleted("a", "FR", FlagToCountry, now)

	c := p.Clone()
	c.Pending.CountryID = "DE"
	c.CompletedChallenges[0].CountryID = "DE"
	later := now.Add(time.Hour)
	*c.LastCompletedDate = later

	assert.Equal(t, "FR", p.Pending.CountryID)
	assert.Equal(t, "FR", p.CompletedChallenges[0].CountryID)
	assert.Equal(t, now, *p.LastCompletedDate)
}
