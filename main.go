package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/geostreak/internal/bot"
	"github.com/example/geostreak/internal/calendar"
	"github.com/example/geostreak/internal/config"
	"github.com/example/geostreak/internal/database"
	"github.com/example/geostreak/internal/game"
	"github.com/example/geostreak/internal/logging"
	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/internal/scheduler"
	"github.com/example/geostreak/internal/unlock"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.Options{Debug: cfg.Debug, LogFile: cfg.LogFile})
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("bot exited with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := database.Connect(cfg.DriverName(), cfg.DataSource())
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected", zap.String("driver", cfg.DriverName()))

	provider := referencedata.NewProvider(cfg.DatasetPath, logger.Named("referencedata"))
	if _, err := provider.Catalog(); err != nil {
		// The game degrades to "no challenge" until /reload succeeds
		logger.Error("reference data unavailable", zap.Error(err))
	}

	clock := calendar.New(cfg.Location())
	players := database.NewPlayerProgressRepository(db)

	var reminders *scheduler.Scheduler
	var reminderScheduler game.ReminderScheduler
	if cfg.EnableScheduler {
		reminders = scheduler.New(database.NewReminderRepository(db), players, nil, clock,
			logger.Named("scheduler"), cfg.ReminderCheckInterval, cfg.ReminderDays)
		reminderScheduler = reminders
	}

	manager := game.NewManager(players, provider, reminderScheduler, clock, logger.Named("game"),
		game.Options{ReminderDays: cfg.ReminderDays})
	tracker := unlock.NewTracker(database.NewCountryProgressRepository(db), provider, logger.Named("unlock"))

	b, err := bot.New(cfg.TelegramToken, bot.Deps{
		Manager:      manager,
		Tracker:      tracker,
		Data:         provider,
		Players:      players,
		Completions:  database.NewCompletedChallengeRepository(db),
		Clock:        clock,
		Logger:       logger.Named("bot"),
		AdminUserIDs: cfg.AdminUserIDs,
	})
	if err != nil {
		return err
	}

	if reminders != nil {
		reminders.SetNotifier(b)
		if err := reminders.Maintain(ctx); err != nil {
			logger.Warn("initial reminder maintenance failed", zap.Error(err))
		}
		if err := reminders.Start(ctx); err != nil {
			return err
		}
		defer reminders.Stop()
	}

	if n, err := players.CountPlayers(ctx); err == nil {
		logger.Info("starting bot", zap.Int("players", n), zap.String("timezone", cfg.Location().String()))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- b.Start(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		b.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}
