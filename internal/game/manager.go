// Package game holds the daily challenge rules: answer validation,
// challenge selection, progression and the per-player session manager that
// ties them to storage and reminders.
package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/example/geostreak/internal/calendar"
	"github.com/example/geostreak/internal/database"
	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/pkg/models"
	"go.uber.org/zap"
)

// DefaultReminderDays is how far ahead reminders are scheduled
const DefaultReminderDays = 7

// ProgressStore persists player progress. Load returns database.ErrNotFound
// for unknown players.
type ProgressStore interface {
	Load(ctx context.Context, playerID int64) (*models.PlayerProgress, error)
	Save(ctx context.Context, progress *models.PlayerProgress) error
	Delete(ctx context.Context, playerID int64) error
}

// CatalogSource provides the reference dataset
type CatalogSource interface {
	Catalog() (*referencedata.Catalog, error)
}

// ReminderScheduler schedules daily reminders for a player
type ReminderScheduler interface {
	RequestPermission(ctx context.Context, playerID int64) bool
	ScheduleReminders(ctx context.Context, playerID int64, forDays, atHour int) error
	CancelToday(ctx context.Context, playerID int64) error
	UpdateHour(ctx context.Context, playerID int64, hour int) error
}

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	ReminderDays int
	Rand         *rand.Rand
	NewID        func() string
}

// Session is the state a front-end needs when a player shows up
type Session struct {
	Progress           *models.PlayerProgress
	ShowOnboarding     bool
	HasTodaysAnswer    bool
	ShowDailyChallenge bool
	StreakBroken       bool
	TimeUntilNext      time.Duration
}

// Stats summarises a player's game
type Stats struct {
	Streak             int
	LongestStreak      int
	CorrectAnswers     int
	TotalAnswers       int
	Accuracy           float64
	Level              models.Level
	LevelCompletion    float64
	CountriesCompleted int
	CountriesTotal     int
	HasTodaysAnswer    bool
	TimeUntilNext      time.Duration
}

// Manager serialises every read-modify-write of a player's progress. The
// in-memory copy stays authoritative when a save fails.
type Manager struct {
	store        ProgressStore
	catalog      CatalogSource
	reminders    ReminderScheduler
	clock        *calendar.Clock
	selector     *Selector
	engine       *Engine
	logger       *zap.Logger
	reminderDays int

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
	cache map[int64]*models.PlayerProgress
}

// NewManager wires a manager. reminders may be nil when notifications are disabled.
func NewManager(store ProgressStore, catalog CatalogSource, reminders ReminderScheduler, clock *calendar.Clock, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reminders == nil {
		reminders = noReminders{}
	}
	if opts.ReminderDays <= 0 {
		opts.ReminderDays = DefaultReminderDays
	}
	return &Manager{
		store:        store,
		catalog:      catalog,
		reminders:    reminders,
		clock:        clock,
		selector:     NewSelector(opts.Rand),
		engine:       NewEngine(clock, opts.NewID),
		logger:       logger,
		reminderDays: opts.ReminderDays,
		locks:        make(map[int64]*sync.Mutex),
		cache:        make(map[int64]*models.PlayerProgress),
	}
}

func (m *Manager) lock(playerID int64) func() {
	m.mu.Lock()
	l, ok := m.locks[playerID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[playerID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// load returns a private copy of the player's progress. Unknown players
// are created; a failing store yields defaults for this call only.
func (m *Manager) load(ctx context.Context, playerID int64) *models.PlayerProgress {
	m.mu.Lock()
	cached, ok := m.cache[playerID]
	m.mu.Unlock()
	if ok {
		return cached.Clone()
	}

	p, err := m.store.Load(ctx, playerID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		p = models.NewPlayerProgress(playerID)
		m.logger.Info("new player", zap.Int64("player_id", playerID))
		m.persist(ctx, p)
	case err != nil:
		m.logger.Error("failed to load progress, using defaults", zap.Int64("player_id", playerID), zap.Error(err))
		return models.NewPlayerProgress(playerID)
	default:
		m.remember(p)
	}
	return p.Clone()
}

func (m *Manager) remember(p *models.PlayerProgress) {
	m.mu.Lock()
	m.cache[p.PlayerID] = p.Clone()
	m.mu.Unlock()
}

// persist makes p the authoritative state and tries to save it
func (m *Manager) persist(ctx context.Context, p *models.PlayerProgress) {
	m.remember(p)
	if err := m.store.Save(ctx, p); err != nil {
		m.logger.Error("failed to save progress", zap.Int64("player_id", p.PlayerID), zap.Error(err))
	}
}

func (m *Manager) catalogOrNil() *referencedata.Catalog {
	c, err := m.catalog.Catalog()
	if err != nil {
		m.logger.Error("reference data unavailable", zap.Error(err))
		return nil
	}
	return c
}

// refresh applies the day rollover rules: a missed day breaks the streak
// and an unanswered challenge from an earlier day is dropped
func (m *Manager) refresh(p *models.PlayerProgress) (changed, streakBroken bool) {
	if p.Streak > 0 && m.clock.StreakShouldBreak(p.LastCompletedDate) {
		m.logger.Info("streak reset",
			zap.Int64("player_id", p.PlayerID),
			zap.Int("days", m.clock.DaysBetween(*p.LastCompletedDate, m.clock.Today())))
		p.Streak = 0
		changed, streakBroken = true, true
	}
	if p.Pending != nil && !m.clock.IsToday(p.Pending.SelectedAt) {
		p.Pending = nil
		changed = true
	}
	return changed, streakBroken
}

// StartSession loads the player and reports what should be shown
func (m *Manager) StartSession(ctx context.Context, playerID int64) (Session, error) {
	unlock := m.lock(playerID)
	defer unlock()

	p := m.load(ctx, playerID)
	changed, broken := m.refresh(p)
	if changed {
		m.persist(ctx, p)
	}

	answered := HasTodaysAnswer(p, m.clock)
	return Session{
		Progress:           p,
		ShowOnboarding:     !p.HasCompletedOnboarding,
		HasTodaysAnswer:    answered,
		ShowDailyChallenge: p.HasCompletedOnboarding && !answered,
		StreakBroken:       broken,
		TimeUntilNext:      m.TimeUntilNextChallenge(),
	}, nil
}

// TodaysChallenge returns the challenge selected for today, selecting one
// on the first call of the day
func (m *Manager) TodaysChallenge(ctx context.Context, playerID int64) (Challenge, error) {
	unlock := m.lock(playerID)
	defer unlock()

	p := m.load(ctx, playerID)
	changed, _ := m.refresh(p)
	ch, err := m.todaysChallenge(p, &changed)
	if changed {
		m.persist(ctx, p)
	}
	return ch, err
}

func (m *Manager) todaysChallenge(p *models.PlayerProgress, changed *bool) (Challenge, error) {
	if !p.HasCompletedOnboarding {
		return Challenge{}, ErrOnboardingIncomplete
	}
	if HasTodaysAnswer(p, m.clock) {
		return Challenge{}, ErrAlreadyAnswered
	}

	catalog := m.catalogOrNil()
	if catalog == nil {
		return Challenge{}, ErrNoChallengeAvailable
	}

	if pc := p.Pending; pc != nil {
		if country, ok := catalog.ByID(pc.CountryID); ok {
			return Challenge{Country: country, Type: pc.ChallengeType}, nil
		}
		p.Pending = nil
		*changed = true
	}

	now := m.clock.Today()
	ch, outcome, ok := m.selector.Select(p, catalog, now)
	if outcome != NotExhausted {
		*changed = true
		m.logger.Info("challenge pool exhausted",
			zap.Int64("player_id", p.PlayerID),
			zap.Int("level", p.CurrentLevel),
			zap.Stringer("outcome", outcome))
	}
	if !ok {
		return Challenge{}, ErrNoChallengeAvailable
	}

	p.Pending = &models.PendingChallenge{CountryID: ch.Country.ID, ChallengeType: ch.Type, SelectedAt: now}
	*changed = true
	m.logger.Debug("challenge selected",
		zap.Int64("player_id", p.PlayerID),
		zap.String("country", ch.Country.ID),
		zap.String("type", ch.Type.ID()))
	return ch, nil
}

// PreviewAnswer grades a guess against today's challenge without recording it
func (m *Manager) PreviewAnswer(ctx context.Context, playerID int64, guess string) (bool, error) {
	ch, err := m.TodaysChallenge(ctx, playerID)
	if err != nil {
		return false, err
	}
	return ch.Check(guess), nil
}

// SubmitAnswer records the player's single attempt of the day. Repeated
// submissions on the same day return the first result with Duplicate set.
func (m *Manager) SubmitAnswer(ctx context.Context, playerID int64, guess string) (Result, error) {
	unlock := m.lock(playerID)
	defer unlock()

	p := m.load(ctx, playerID)
	changed, _ := m.refresh(p)
	if changed {
		m.persist(ctx, p)
	}
	if !p.HasCompletedOnboarding {
		return Result{}, ErrOnboardingIncomplete
	}

	catalog := m.catalogOrNil()
	if catalog == nil {
		catalog = referencedata.NewCatalog(nil)
	}
	if HasTodaysAnswer(p, m.clock) {
		return m.engine.Submit(p, catalog, Challenge{}, guess), nil
	}

	if p.Pending == nil {
		return Result{}, ErrNoPendingChallenge
	}
	country, ok := catalog.ByID(p.Pending.CountryID)
	if !ok {
		p.Pending = nil
		m.persist(ctx, p)
		return Result{}, ErrNoPendingChallenge
	}

	res := m.engine.Submit(p, catalog, Challenge{Country: country, Type: p.Pending.ChallengeType}, guess)
	m.persist(ctx, res.Progress)

	m.logger.Info("answer submitted",
		zap.Int64("player_id", playerID),
		zap.String("country", country.ID),
		zap.Bool("correct", res.Correct),
		zap.Int("streak", res.Progress.Streak),
		zap.Int("level", res.Progress.CurrentLevel))
	if res.LevelUp {
		m.logger.Info("level up", zap.Int64("player_id", playerID), zap.Int("level", res.Progress.CurrentLevel))
	}

	if res.Correct {
		if err := m.reminders.CancelToday(ctx, playerID); err != nil {
			m.logger.Warn("failed to cancel today's reminder", zap.Int64("player_id", playerID), zap.Error(err))
		}
	}
	return res, nil
}

// CompleteOnboarding marks the introduction as seen
func (m *Manager) CompleteOnboarding(ctx context.Context, playerID int64) error {
	unlock := m.lock(playerID)
	defer unlock()

	p := m.load(ctx, playerID)
	if p.HasCompletedOnboarding {
		return nil
	}
	p.HasCompletedOnboarding = true
	m.persist(ctx, p)
	return nil
}

// SetupNotifications asks for permission and, when granted, schedules
// reminders at hour for the coming days. It returns whether permission was granted.
func (m *Manager) SetupNotifications(ctx context.Context, playerID int64, hour int) (bool, error) {
	if hour < 0 || hour > 23 {
		return false, ErrInvalidReminderHour
	}
	unlock := m.lock(playerID)
	defer unlock()

	p := m.load(ctx, playerID)
	granted := m.reminders.RequestPermission(ctx, playerID)
	p.PreferredReminderHour = hour
	p.NotificationsEnabled = granted
	m.persist(ctx, p)

	if granted {
		if err := m.reminders.ScheduleReminders(ctx, playerID, m.reminderDays, hour); err != nil {
			m.logger.Warn("failed to schedule reminders", zap.Int64("player_id", playerID), zap.Error(err))
		}
	}
	return granted, nil
}

// UpdateReminderHour changes the preferred hour and reschedules reminders
func (m *Manager) UpdateReminderHour(ctx context.Context, playerID int64, hour int) error {
	if hour < 0 || hour > 23 {
		return ErrInvalidReminderHour
	}
	unlock := m.lock(playerID)
	defer unlock()

	p := m.load(ctx, playerID)
	p.PreferredReminderHour = hour
	m.persist(ctx, p)

	if p.NotificationsEnabled {
		if err := m.reminders.UpdateHour(ctx, playerID, hour); err != nil {
			m.logger.Warn("failed to reschedule reminders", zap.Int64("player_id", playerID), zap.Error(err))
		}
	}
	return nil
}

// Progress returns a copy of the player's current progress with the day
// rollover rules applied
func (m *Manager) Progress(ctx context.Context, playerID int64) *models.PlayerProgress {
	unlock := m.lock(playerID)
	defer unlock()

	p := m.load(ctx, playerID)
	if changed, _ := m.refresh(p); changed {
		m.persist(ctx, p)
	}
	return p
}

// CurrentLevel returns the player's level description
func (m *Manager) CurrentLevel(ctx context.Context, playerID int64) models.Level {
	return models.LevelByID(m.Progress(ctx, playerID).CurrentLevel)
}

// Stats summarises the player's game
func (m *Manager) Stats(ctx context.Context, playerID int64) Stats {
	p := m.Progress(ctx, playerID)
	catalog := m.catalogOrNil()
	if catalog == nil {
		catalog = referencedata.NewCatalog(nil)
	}

	return Stats{
		Streak:             p.Streak,
		LongestStreak:      p.LongestStreak,
		CorrectAnswers:     p.CorrectAnswers,
		TotalAnswers:       p.TotalAnswers,
		Accuracy:           p.Accuracy(),
		Level:              models.LevelByID(p.CurrentLevel),
		LevelCompletion:    CompletionPercentage(p, catalog, p.CurrentLevel),
		CountriesCompleted: len(p.CompletedEntities()),
		CountriesTotal:     catalog.Len(),
		HasTodaysAnswer:    HasTodaysAnswer(p, m.clock),
		TimeUntilNext:      m.TimeUntilNextChallenge(),
	}
}

// TimeUntilNextChallenge is the countdown to the next unlock
func (m *Manager) TimeUntilNextChallenge() time.Duration {
	return calendar.TimeUntil(m.clock.Today(), m.clock.NextChallengeAt())
}

// ResetProgress wipes the player's game and starts over from level one.
// Reminder preferences are kept.
func (m *Manager) ResetProgress(ctx context.Context, playerID int64) error {
	unlock := m.lock(playerID)
	defer unlock()

	old := m.load(ctx, playerID)
	if err := m.store.Delete(ctx, playerID); err != nil {
		m.logger.Error("failed to delete progress", zap.Int64("player_id", playerID), zap.Error(err))
	}

	p := models.NewPlayerProgress(playerID)
	p.HasCompletedOnboarding = old.HasCompletedOnboarding
	p.PreferredReminderHour = old.PreferredReminderHour
	p.NotificationsEnabled = old.NotificationsEnabled
	m.persist(ctx, p)
	m.logger.Info("progress reset", zap.Int64("player_id", playerID))
	return nil
}

type noReminders struct{}

func (noReminders) RequestPermission(context.Context, int64) bool { return false }
func (noReminders) ScheduleReminders(context.Context, int64, int, int) error { return nil }
func (noReminders) CancelToday(context.Context, int64) error { return nil }
func (noReminders) UpdateHour(context.Context, int64, int) error { return nil }
