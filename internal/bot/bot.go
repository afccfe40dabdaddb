// Package bot is the Telegram front-end of the game. It drives onboarding,
// serves the daily challenge and delivers reminders for the scheduler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/example/geostreak/internal/calendar"
	"github.com/example/geostreak/internal/game"
	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/internal/scheduler"
	"github.com/example/geostreak/internal/unlock"
	"github.com/example/geostreak/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// sender is the part of tgbotapi.BotAPI the bot talks to
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// PlayerCounter reports the number of known players
type PlayerCounter interface {
	CountPlayers(ctx context.Context) (int, error)
}

// CompletionCounter breaks a player's active completions down by challenge type
type CompletionCounter interface {
	CountActiveByType(ctx context.Context, playerID int64) (map[models.ChallengeType]int, error)
}

// Deps are the services the bot serves players from. Tracker, Players and
// Completions are optional.
type Deps struct {
	Manager      *game.Manager
	Tracker      *unlock.Tracker
	Data         *referencedata.Provider
	Players      PlayerCounter
	Completions  CompletionCounter
	Clock        *calendar.Clock
	Logger       *zap.Logger
	AdminUserIDs []int64
}

// Bot represents the Telegram bot application
type Bot struct {
	api          sender
	botAPI       *tgbotapi.BotAPI
	manager      *game.Manager
	tracker      *unlock.Tracker
	data         *referencedata.Provider
	players      PlayerCounter
	completions  CompletionCounter
	clock        *calendar.Clock
	logger       *zap.Logger
	adminUserIDs map[int64]bool

	mu      sync.Mutex
	blocked map[int64]bool
}

// New authorizes token with Telegram and creates the bot
func New(token string, deps Deps) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %v", err)
	}
	b := newBot(api, deps)
	b.botAPI = api
	b.logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(api sender, deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	admins := make(map[int64]bool, len(deps.AdminUserIDs))
	for _, id := range deps.AdminUserIDs {
		admins[id] = true
	}
	return &Bot{
		api:          api,
		manager:      deps.Manager,
		tracker:      deps.Tracker,
		data:         deps.Data,
		players:      deps.Players,
		completions:  deps.Completions,
		clock:        deps.Clock,
		logger:       logger,
		adminUserIDs: admins,
		blocked:      make(map[int64]bool),
	}
}

// Start handles updates until ctx is cancelled or Stop is called
func (b *Bot) Start(ctx context.Context) error {
	if b.botAPI == nil {
		return fmt.Errorf("bot is not connected")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.botAPI.GetUpdatesChan(u)
	b.logger.Info("bot started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Stop stops polling for updates
func (b *Bot) Stop() {
	if b.botAPI != nil {
		b.botAPI.StopReceivingUpdates()
	}
	b.logger.Info("bot stopped")
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUserIDs[userID]
}

// CanNotify reports whether reminders can reach the player. Private chats
// share the user id, so a player can be reached until their chat rejects
// a message.
func (b *Bot) CanNotify(playerID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.api != nil && !b.blocked[playerID]
}

// SendReminder implements the scheduler.Notifier interface. Players who
// already answered today are skipped with scheduler.ErrReminderSkipped.
func (b *Bot) SendReminder(ctx context.Context, r models.Reminder) error {
	p := b.manager.Progress(ctx, r.PlayerID)
	if game.HasTodaysAnswer(p, b.clock) {
		b.logger.Debug("reminder skipped, already answered", zap.Int64("player_id", r.PlayerID))
		return scheduler.ErrReminderSkipped
	}

	text := "⏰ Your daily GeoStreak challenge is waiting!"
	if p.Streak > 0 && b.clock.HasValidStreak(p.LastCompletedDate) {
		text += fmt.Sprintf("\n\nKeep your %d day streak alive 🔥", p.Streak)
	}
	msg := tgbotapi.NewMessage(r.PlayerID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🌍 Play now", CallbackData: callbackChallenge}},
	})
	return b.sendMessage(msg)
}

// sendMessage sends a message and remembers chats that refuse delivery
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	if b.api == nil {
		return fmt.Errorf("bot is not connected")
	}
	if _, err := b.api.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
			b.mu.Lock()
			b.blocked[msg.ChatID] = true
			b.mu.Unlock()
		}
		return fmt.Errorf("failed to send message: %w", err)
	}
	b.mu.Lock()
	delete(b.blocked, msg.ChatID)
	b.mu.Unlock()
	return nil
}

func (b *Bot) send(chatID int64, text string, buttons [][]MenuButton) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(buttons) > 0 {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	return b.sendMessage(msg)
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.From != nil:
		if update.Message.IsCommand() {
			err = b.HandleCommand(ctx, update.Message)
		} else {
			err = b.HandleText(ctx, update.Message)
		}
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.logger.Error("failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🌍 Today's challenge", CallbackData: callbackChallenge},
			{Text: "📊 Statistics", CallbackData: callbackStats},
		},
		{
			{Text: "🗺 Explore", CallbackData: callbackExplore},
			{Text: "🏆 Levels", CallbackData: callbackLevels},
		},
		{
			{Text: "🔔 Reminder time", CallbackData: callbackReminder},
		},
	}
}
