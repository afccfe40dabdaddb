package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/geostreak/internal/calendar"
	"github.com/example/geostreak/pkg/models"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// DefaultCheckInterval is how often due reminders are dispatched
const DefaultCheckInterval = time.Minute

// ErrReminderSkipped is returned by a Notifier that chose not to deliver a
// reminder, for example because the player already played today
var ErrReminderSkipped = errors.New("reminder skipped")

// Notifier delivers reminders to players
type Notifier interface {
	CanNotify(playerID int64) bool
	SendReminder(ctx context.Context, r models.Reminder) error
}

// Store persists reminders
type Store interface {
	Upsert(ctx context.Context, reminders []models.Reminder) error
	ListByPlayer(ctx context.Context, playerID int64) ([]models.Reminder, error)
	Due(ctx context.Context, now time.Time) ([]models.Reminder, error)
	MarkSent(ctx context.Context, playerID int64, day string, at time.Time) error
	DeleteForDay(ctx context.Context, playerID int64, day string) error
	DeletePending(ctx context.Context, playerID int64) error
	DeleteBefore(ctx context.Context, day string) (int64, error)
}

// Roster maps the players who opted into reminders to their preferred hour
type Roster interface {
	ListNotifiable(ctx context.Context) (map[int64]int, error)
}

// Scheduler keeps a rolling window of daily reminders per player and
// dispatches the due ones from a gocron job
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Store
	roster    Roster
	notifier  Notifier
	clock     *calendar.Clock
	logger    *zap.Logger
	interval  time.Duration
	days      int
}

// New creates a new scheduler instance. days is the length of the
// reminder window kept ahead of today.
func New(store Store, roster Roster, notifier Notifier, clock *calendar.Clock, logger *zap.Logger, interval time.Duration, days int) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	if days <= 0 {
		days = 7
	}
	s := gocron.NewScheduler(clock.Location)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		store:     store,
		roster:    roster,
		notifier:  notifier,
		clock:     clock,
		logger:    logger,
		interval:  interval,
		days:      days,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.scheduler.Every(s.interval).Do(func() {
		if _, err := s.Dispatch(ctx); err != nil {
			s.logger.Error("reminder dispatch failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule dispatch job: %v", err)
	}

	if _, err := s.scheduler.Every(1).Day().At("00:05").Do(func() {
		if err := s.Maintain(ctx); err != nil {
			s.logger.Error("reminder maintenance failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %v", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// SetNotifier replaces the reminder delivery target. It must be called
// before Start when New was given a nil notifier.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// RequestPermission asks the notifier whether the player can be reached
func (s *Scheduler) RequestPermission(ctx context.Context, playerID int64) bool {
	if s.notifier == nil {
		return false
	}
	return s.notifier.CanNotify(playerID)
}

// ScheduleReminders replaces the player's unsent reminders with one per
// day for forDays days, starting today, at atHour local time. Today is
// skipped when the hour has already passed.
func (s *Scheduler) ScheduleReminders(ctx context.Context, playerID int64, forDays, atHour int) error {
	if err := s.store.DeletePending(ctx, playerID); err != nil {
		return err
	}
	return s.store.Upsert(ctx, s.window(playerID, forDays, atHour))
}

func (s *Scheduler) window(playerID int64, forDays, atHour int) []models.Reminder {
	now := s.clock.Today()
	start := s.clock.StartOfDay(now)

	var out []models.Reminder
	for i := 0; i < forDays; i++ {
		day := start.AddDate(0, 0, i)
		due := time.Date(day.Year(), day.Month(), day.Day(), atHour, 0, 0, 0, s.clock.Location)
		if !due.After(now) {
			continue
		}
		out = append(out, models.Reminder{
			PlayerID: playerID,
			RemindOn: s.clock.DayKey(day),
			Hour:     atHour,
			DueAt:    due,
		})
	}
	return out
}

// CancelToday drops today's reminder, if any
func (s *Scheduler) CancelToday(ctx context.Context, playerID int64) error {
	return s.store.DeleteForDay(ctx, playerID, s.clock.DayKey(s.clock.Today()))
}

// UpdateHour moves every unsent reminder to the new hour
func (s *Scheduler) UpdateHour(ctx context.Context, playerID int64, hour int) error {
	return s.ScheduleReminders(ctx, playerID, s.days, hour)
}

// Dispatch sends every due reminder once and returns how many were
// delivered. Skipped and failed deliveries are not retried.
func (s *Scheduler) Dispatch(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, fmt.Errorf("no notifier configured")
	}
	now := s.clock.Today()
	due, err := s.store.Due(ctx, now)
	if err != nil {
		return 0, err
	}

	sent, skipped := 0, 0
	for _, r := range due {
		err := s.notifier.SendReminder(ctx, r)
		switch {
		case errors.Is(err, ErrReminderSkipped):
			skipped++
		case err != nil:
			s.logger.Warn("failed to send reminder",
				zap.Int64("player_id", r.PlayerID), zap.String("day", r.RemindOn), zap.Error(err))
		default:
			sent++
		}
		if err := s.store.MarkSent(ctx, r.PlayerID, r.RemindOn, now); err != nil {
			s.logger.Error("failed to mark reminder sent", zap.Int64("player_id", r.PlayerID), zap.Error(err))
		}
	}
	if len(due) > 0 {
		s.logger.Info("reminders dispatched",
			zap.Int("due", len(due)), zap.Int("sent", sent), zap.Int("skipped", skipped))
	}
	return sent, nil
}

// Maintain drops past reminders and extends every opted-in player's window
// so it always reaches the configured number of days ahead
func (s *Scheduler) Maintain(ctx context.Context) error {
	today := s.clock.DayKey(s.clock.Today())
	removed, err := s.store.DeleteBefore(ctx, today)
	if err != nil {
		return err
	}

	players, err := s.roster.ListNotifiable(ctx)
	if err != nil {
		return err
	}
	for id, hour := range players {
		existing, err := s.store.ListByPlayer(ctx, id)
		if err != nil {
			s.logger.Warn("failed to list reminders", zap.Int64("player_id", id), zap.Error(err))
			continue
		}
		have := make(map[string]bool, len(existing))
		for _, r := range existing {
			have[r.RemindOn] = true
		}

		var missing []models.Reminder
		for _, r := range s.window(id, s.days, hour) {
			if !have[r.RemindOn] {
				missing = append(missing, r)
			}
		}
		if len(missing) == 0 {
			continue
		}
		if err := s.store.Upsert(ctx, missing); err != nil {
			s.logger.Warn("failed to extend reminders", zap.Int64("player_id", id), zap.Error(err))
		}
	}

	s.logger.Info("reminder maintenance done", zap.Int64("removed", removed), zap.Int("players", len(players)))
	return nil
}
