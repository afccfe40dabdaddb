package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/geostreak/internal/calendar"
	"github.com/example/geostreak/internal/database"
	"github.com/example/geostreak/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu      sync.Mutex
	allowed bool
	fail    bool
	skip    map[int64]bool
	sent    []models.Reminder
}

func (n *fakeNotifier) CanNotify(int64) bool { return n.allowed }

func (n *fakeNotifier) SendReminder(_ context.Context, r models.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("blocked by user")
	}
	if n.skip[r.PlayerID] {
		return ErrReminderSkipped
	}
	n.sent = append(n.sent, r)
	return nil
}

type fixture struct {
	sched    *Scheduler
	store    *database.ReminderRepository
	players  *database.PlayerProgressRepository
	notifier *fakeNotifier
	now      *time.Time
}

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()
	db, err := database.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := start
	clock := &calendar.Clock{Location: start.Location(), Now: func() time.Time { return now }}
	f := &fixture{
		store:    database.NewReminderRepository(db),
		players:  database.NewPlayerProgressRepository(db),
		notifier: &fakeNotifier{allowed: true},
		now:      &now,
	}
	f.sched = New(f.store, f.players, f.notifier, clock, zap.NewNop(), time.Minute, 7)
	return f
}

var morning = time.Date(2024, 6, 3, 6, 30, 0, 0, time.UTC)

func TestRequestPermission(t *testing.T) {
	f := newFixture(t, morning)
	assert.True(t, f.sched.RequestPermission(context.Background(), 1))
	f.notifier.allowed = false
	assert.False(t, f.sched.RequestPermission(context.Background(), 1))
}

func TestScheduleReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, morning)

	require.NoError(t, f.sched.ScheduleReminders(ctx, 1, 7, 8))
	list, err := f.store.ListByPlayer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 7)
	assert.Equal(t, "2024-06-03", list[0].RemindOn)
	assert.Equal(t, "2024-06-09", list[6].RemindOn)
	assert.True(t, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC).Equal(list[0].DueAt))

	// an hour already gone today starts tomorrow
	require.NoError(t, f.sched.ScheduleReminders(ctx, 2, 7, 6))
	list, err = f.store.ListByPlayer(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 6)
	assert.Equal(t, "2024-06-04", list[0].RemindOn)
}

func TestCancelTodayAndUpdateHour(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, morning)
	require.NoError(t, f.sched.ScheduleReminders(ctx, 1, 3, 8))

	require.NoError(t, f.sched.CancelToday(ctx, 1))
	list, err := f.store.ListByPlayer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2024-06-04", list[0].RemindOn)

	require.NoError(t, f.sched.UpdateHour(ctx, 1, 20))
	list, err = f.store.ListByPlayer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 7)
	for _, r := range list {
		assert.Equal(t, 20, r.Hour)
	}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, morning)
	require.NoError(t, f.sched.ScheduleReminders(ctx, 1, 2, 8))
	require.NoError(t, f.sched.ScheduleReminders(ctx, 2, 2, 9))

	sent, err := f.sched.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	*f.now = time.Date(2024, 6, 3, 8, 0, 30, 0, time.UTC)
	sent, err = f.sched.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(1), f.notifier.sent[0].PlayerID)

	// nothing is sent twice
	sent, err = f.sched.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	// failed deliveries are not retried
	f.notifier.fail = true
	*f.now = time.Date(2024, 6, 3, 9, 5, 0, 0, time.UTC)
	sent, err = f.sched.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	f.notifier.fail = false
	sent, err = f.sched.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestDispatchDoesNotCountSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, morning)
	require.NoError(t, f.sched.ScheduleReminders(ctx, 1, 1, 8))
	require.NoError(t, f.sched.ScheduleReminders(ctx, 2, 1, 8))
	f.notifier.skip = map[int64]bool{1: true}

	*f.now = time.Date(2024, 6, 3, 8, 1, 0, 0, time.UTC)
	sent, err := f.sched.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(2), f.notifier.sent[0].PlayerID)

	// a skipped reminder is consumed like a sent one
	f.notifier.skip = nil
	sent, err = f.sched.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestMaintainExtendsWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, morning)

	p := models.NewPlayerProgress(1)
	p.NotificationsEnabled = true
	p.PreferredReminderHour = 18
	require.NoError(t, f.players.Save(ctx, p))
	require.NoError(t, f.sched.ScheduleReminders(ctx, 1, 7, 18))

	*f.now = morning.AddDate(0, 0, 2)
	require.NoError(t, f.sched.Maintain(ctx))

	list, err := f.store.ListByPlayer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 7)
	assert.Equal(t, "2024-06-05", list[0].RemindOn)
	assert.Equal(t, "2024-06-11", list[6].RemindOn)
	assert.Equal(t, 18, list[6].Hour)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, morning)
	require.NoError(t, f.sched.Start(context.Background()))
	f.sched.Stop()
}

func TestLateNotifier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, morning)
	f.sched.SetNotifier(nil)

	assert.False(t, f.sched.RequestPermission(ctx, 1))
	_, err := f.sched.Dispatch(ctx)
	assert.Error(t, err)

	f.sched.SetNotifier(f.notifier)
	assert.True(t, f.sched.RequestPermission(ctx, 1))
}
