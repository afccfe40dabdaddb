package game

import (
	"github.com/example/geostreak/internal/calendar"
	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/pkg/models"
	"github.com/google/uuid"
)

// Result is the outcome of an answer submission
type Result struct {
	Correct        bool
	Duplicate      bool // the day's answer was already recorded; nothing changed
	LevelUp        bool
	ExpectedAnswer string
	Progress       *models.PlayerProgress
}

// Engine applies answers to player progress
type Engine struct {
	clock *calendar.Clock
	newID func() string
}

// NewEngine creates an engine. newID generates completion record ids and
// defaults to random UUIDs.
func NewEngine(clock *calendar.Clock, newID func() string) *Engine {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Engine{clock: clock, newID: newID}
}

// HasTodaysAnswer is true when the last answer falls on the current calendar day
func HasTodaysAnswer(p *models.PlayerProgress, clock *calendar.Clock) bool {
	return p.LastCompletedDate != nil && clock.IsToday(*p.LastCompletedDate)
}

// Submit grades guess for ch and returns the updated progress. p itself is
// never modified. A second submission on the same calendar day returns the
// recorded result with Duplicate set.
func (e *Engine) Submit(p *models.PlayerProgress, catalog *referencedata.Catalog, ch Challenge, guess string) Result {
	if HasTodaysAnswer(p, e.clock) {
		res := Result{Duplicate: true, Progress: p}
		if a := p.LastAnswer; a != nil {
			res.Correct = a.Correct
			if c, ok := catalog.ByID(a.CountryID); ok {
				res.ExpectedAnswer = a.ChallengeType.ExpectedAnswer(c)
			}
		}
		return res
	}

	now := e.clock.Today()
	next := p.Clone()
	res := Result{Correct: ch.Check(guess), ExpectedAnswer: ch.ExpectedAnswer(), Progress: next}

	next.TotalAnswers++
	if res.Correct {
		next.CorrectAnswers++
		next.Streak++
		if next.Streak > next.LongestStreak {
			next.LongestStreak = next.Streak
		}
		next.MarkChallengeCompleted(e.newID(), ch.Country.ID, ch.Type, now)

		if CanAdvance(next, catalog) {
			next.CurrentLevel++
			res.LevelUp = true
		}
	} else {
		next.Streak = 0
	}

	next.LastCompletedDate = &now
	next.Pending = nil
	next.LastAnswer = &models.AnswerRecord{
		CountryID:     ch.Country.ID,
		ChallengeType: ch.Type,
		Guess:         guess,
		Correct:       res.Correct,
		AnsweredAt:    now,
	}
	return res
}
