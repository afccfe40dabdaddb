package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type managerFixture struct {
	manager   *Manager
	store     *memoryStore
	reminders *recordingReminders
	clock     *steppingClock
	catalog   *referencedata.Catalog
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	catalog := testCatalog(map[int]int{1: 5, 2: 5})
	clockCtl, clock := newSteppingClock(t0)
	store := newMemoryStore()
	reminders := &recordingReminders{grant: true}
	m := NewManager(store, staticCatalog{catalog: catalog}, reminders, clock, zap.NewNop(), Options{
		Rand: rand.New(rand.NewSource(3)),
	})
	return &managerFixture{manager: m, store: store, reminders: reminders, clock: clockCtl, catalog: catalog}
}

const player = int64(100)

func onboard(t *testing.T, f *managerFixture) {
	t.Helper()
	require.NoError(t, f.manager.CompleteOnboarding(context.Background(), player))
}

func TestStartSession_NewPlayer(t *testing.T) {
	f := newManagerFixture(t)
	s, err := f.manager.StartSession(context.Background(), player)
	require.NoError(t, err)

	assert.True(t, s.ShowOnboarding)
	assert.False(t, s.ShowDailyChallenge)
	assert.False(t, s.HasTodaysAnswer)
	assert.Equal(t, models.FirstLevel, s.Progress.CurrentLevel)
	assert.Equal(t, models.DefaultReminderHour, s.Progress.PreferredReminderHour)
	assert.NotNil(t, f.store.get(player))

	_, err = f.manager.TodaysChallenge(context.Background(), player)
	assert.ErrorIs(t, err, ErrOnboardingIncomplete)
	_, err = f.manager.SubmitAnswer(context.Background(), player, "x")
	assert.ErrorIs(t, err, ErrOnboardingIncomplete)
}

func TestDailyFlow(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	onboard(t, f)

	s, err := f.manager.StartSession(ctx, player)
	require.NoError(t, err)
	assert.True(t, s.ShowDailyChallenge)

	ch, err := f.manager.TodaysChallenge(ctx, player)
	require.NoError(t, err)
	again, err := f.manager.TodaysChallenge(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, ch.Country.ID, again.Country.ID)
	assert.Equal(t, ch.Type, again.Type)
	require.NotNil(t, f.store.get(player).Pending)

	ok, err := f.manager.PreviewAnswer(ctx, player, ch.ExpectedAnswer())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, f.manager.Progress(ctx, player).TotalAnswers)

	res, err := f.manager.SubmitAnswer(ctx, player, "  "+ch.ExpectedAnswer()+" ")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 1, f.reminders.cancelled)

	stored := f.store.get(player)
	assert.Equal(t, 1, stored.Streak)
	assert.Nil(t, stored.Pending)
	assert.True(t, stored.IsChallengeCompleted(ch.Country.ID, ch.Type))

	dup, err := f.manager.SubmitAnswer(ctx, player, "wrong")
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
	assert.True(t, dup.Correct)
	assert.Equal(t, 1, f.manager.Progress(ctx, player).TotalAnswers)
	assert.Equal(t, 1, f.reminders.cancelled)

	_, err = f.manager.TodaysChallenge(ctx, player)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	s, err = f.manager.StartSession(ctx, player)
	require.NoError(t, err)
	assert.True(t, s.HasTodaysAnswer)
	assert.False(t, s.ShowDailyChallenge)

	f.clock.NextDay()
	next, err := f.manager.TodaysChallenge(ctx, player)
	require.NoError(t, err)
	assert.False(t, next.Country.ID == ch.Country.ID && next.Type == ch.Type)
}

func TestSubmitAnswer_WithoutPendingChallenge(t *testing.T) {
	f := newManagerFixture(t)
	onboard(t, f)
	_, err := f.manager.SubmitAnswer(context.Background(), player, "Paris")
	assert.ErrorIs(t, err, ErrNoPendingChallenge)
}

func TestIncorrectAnswerDoesNotCancelReminder(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	onboard(t, f)

	_, err := f.manager.TodaysChallenge(ctx, player)
	require.NoError(t, err)
	res, err := f.manager.SubmitAnswer(ctx, player, "definitely wrong")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, 0, f.reminders.cancelled)
	assert.Equal(t, 0, f.store.get(player).Streak)
}

func TestStartSession_BreaksStreakAfterMissedDay(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	last := t0.AddDate(0, 0, -3)
	p := models.NewPlayerProgress(player)
	p.HasCompletedOnboarding = true
	p.Streak, p.LongestStreak = 5, 5
	p.LastCompletedDate = &last
	p.Pending = &models.PendingChallenge{CountryID: "L1C00", ChallengeType: models.FlagToCountry, SelectedAt: last}
	require.NoError(t, f.store.Save(ctx, p))

	s, err := f.manager.StartSession(ctx, player)
	require.NoError(t, err)
	assert.True(t, s.StreakBroken)
	assert.True(t, s.ShowDailyChallenge)

	stored := f.store.get(player)
	assert.Equal(t, 0, stored.Streak)
	assert.Equal(t, 5, stored.LongestStreak)
	assert.Nil(t, stored.Pending)
}

func TestStartSession_KeepsStreakAfterYesterday(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	last := t0.AddDate(0, 0, -1)
	p := models.NewPlayerProgress(player)
	p.Streak = 3
	p.LastCompletedDate = &last
	require.NoError(t, f.store.Save(ctx, p))

	s, err := f.manager.StartSession(ctx, player)
	require.NoError(t, err)
	assert.False(t, s.StreakBroken)
	assert.Equal(t, 3, s.Progress.Streak)
}

func TestReadsBreakStaleStreak(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	last := t0.AddDate(0, 0, -3)
	p := models.NewPlayerProgress(player)
	p.HasCompletedOnboarding = true
	p.Streak, p.LongestStreak = 5, 5
	p.LastCompletedDate = &last
	require.NoError(t, f.store.Save(ctx, p))

	stats := f.manager.Stats(ctx, player)
	assert.Equal(t, 0, stats.Streak)
	assert.Equal(t, 5, stats.LongestStreak)
	assert.Equal(t, 0, f.manager.Progress(ctx, player).Streak)
	assert.Equal(t, 0, f.store.get(player).Streak)
}

func TestProgressKeepsStreakAfterYesterday(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	last := t0.AddDate(0, 0, -1)
	p := models.NewPlayerProgress(player)
	p.Streak = 2
	p.LastCompletedDate = &last
	require.NoError(t, f.store.Save(ctx, p))
	saves := f.store.saves

	assert.Equal(t, 2, f.manager.Progress(ctx, player).Streak)
	assert.Equal(t, saves, f.store.saves)
}

func TestPersistenceFailuresDegrade(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	onboard(t, f)
	f.store.failSave = true

	ch, err := f.manager.TodaysChallenge(ctx, player)
	require.NoError(t, err)
	res, err := f.manager.SubmitAnswer(ctx, player, ch.ExpectedAnswer())
	require.NoError(t, err)
	assert.True(t, res.Correct)

	// memory stays authoritative
	assert.Equal(t, 1, f.manager.Progress(ctx, player).CorrectAnswers)
	assert.Equal(t, 0, f.store.get(player).CorrectAnswers)

	dup, err := f.manager.SubmitAnswer(ctx, player, ch.ExpectedAnswer())
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
}

func TestLoadFailureUsesDefaults(t *testing.T) {
	f := newManagerFixture(t)
	f.store.failLoad = true

	s, err := f.manager.StartSession(context.Background(), 555)
	require.NoError(t, err)
	assert.True(t, s.ShowOnboarding)
	assert.Equal(t, models.FirstLevel, s.Progress.CurrentLevel)
}

func TestCatalogFailure(t *testing.T) {
	ctx := context.Background()
	_, clock := newSteppingClock(t0)
	m := NewManager(newMemoryStore(), staticCatalog{err: referencedata.ErrResourceNotFound}, nil, clock, nil, Options{})
	require.NoError(t, m.CompleteOnboarding(ctx, player))

	_, err := m.TodaysChallenge(ctx, player)
	assert.ErrorIs(t, err, ErrNoChallengeAvailable)

	stats := m.Stats(ctx, player)
	assert.Equal(t, 0, stats.CountriesTotal)
}

func TestSetupNotifications(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	granted, err := f.manager.SetupNotifications(ctx, player, 18)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, [][2]int{{DefaultReminderDays, 18}}, f.reminders.scheduled)
	stored := f.store.get(player)
	assert.True(t, stored.NotificationsEnabled)
	assert.Equal(t, 18, stored.PreferredReminderHour)

	require.NoError(t, f.manager.UpdateReminderHour(ctx, player, 12))
	assert.Equal(t, []int{12}, f.reminders.hours)
	assert.Equal(t, 12, f.store.get(player).PreferredReminderHour)

	assert.ErrorIs(t, f.manager.UpdateReminderHour(ctx, player, 24), ErrInvalidReminderHour)
	_, err = f.manager.SetupNotifications(ctx, player, -1)
	assert.ErrorIs(t, err, ErrInvalidReminderHour)
}

func TestSetupNotifications_Denied(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.reminders.grant = false

	granted, err := f.manager.SetupNotifications(ctx, player, 8)
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Empty(t, f.reminders.scheduled)
	assert.False(t, f.store.get(player).NotificationsEnabled)

	require.NoError(t, f.manager.UpdateReminderHour(ctx, player, 9))
	assert.Empty(t, f.reminders.hours)
}

func TestStatsAndLevel(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	onboard(t, f)

	ch, err := f.manager.TodaysChallenge(ctx, player)
	require.NoError(t, err)
	_, err = f.manager.SubmitAnswer(ctx, player, ch.ExpectedAnswer())
	require.NoError(t, err)

	stats := f.manager.Stats(ctx, player)
	assert.Equal(t, 1, stats.Streak)
	assert.Equal(t, 1, stats.CorrectAnswers)
	assert.Equal(t, 1.0, stats.Accuracy)
	assert.Equal(t, 1, stats.CountriesCompleted)
	assert.Equal(t, 10, stats.CountriesTotal)
	assert.InDelta(t, 1.0/15.0, stats.LevelCompletion, 1e-9)
	assert.True(t, stats.HasTodaysAnswer)
	assert.Equal(t, "Novice Explorer", f.manager.CurrentLevel(ctx, player).Name)
}

func TestTimeUntilNextChallenge(t *testing.T) {
	f := newManagerFixture(t)
	assert.Equal(t, 14*time.Hour+time.Minute, f.manager.TimeUntilNextChallenge())

	f.clock.Advance(13 * time.Hour)
	assert.Equal(t, time.Hour+time.Minute, f.manager.TimeUntilNextChallenge())
}

func TestResetProgress(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	onboard(t, f)
	_, err := f.manager.SetupNotifications(ctx, player, 20)
	require.NoError(t, err)

	ch, err := f.manager.TodaysChallenge(ctx, player)
	require.NoError(t, err)
	_, err = f.manager.SubmitAnswer(ctx, player, ch.ExpectedAnswer())
	require.NoError(t, err)

	require.NoError(t, f.manager.ResetProgress(ctx, player))
	p := f.manager.Progress(ctx, player)
	assert.Equal(t, 0, p.TotalAnswers)
	assert.Empty(t, p.CompletedChallenges)
	assert.True(t, p.HasCompletedOnboarding)
	assert.Equal(t, 20, p.PreferredReminderHour)

	_, err = f.manager.TodaysChallenge(ctx, player)
	assert.NoError(t, err)
}

func TestConcurrentSubmissionsAreSerialised(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	onboard(t, f)
	ch, err := f.manager.TodaysChallenge(ctx, player)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan Result, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.manager.SubmitAnswer(ctx, player, ch.ExpectedAnswer())
			if err == nil {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	fresh := 0
	for res := range results {
		if !res.Duplicate {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	p := f.manager.Progress(ctx, player)
	assert.Equal(t, 1, p.TotalAnswers)
	assert.Equal(t, 1, p.Streak)
}
