package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/example/geostreak/internal/calendar"
	"github.com/example/geostreak/internal/game"
	"github.com/example/geostreak/internal/unlock"
	"github.com/example/geostreak/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Constants for callback data
const (
	callbackMainMenu       = "main_menu"
	callbackChallenge      = "challenge"
	callbackStats          = "stats"
	callbackExplore        = "explore"
	callbackLevels         = "levels"
	callbackReminder       = "reminder"
	callbackResetConfirm   = "reset_confirm"
	callbackOnboardingDone = "onboard_done"

	prefixOnboardingPage = "onboard_page_"
	prefixOnboardingHour = "onboard_hour_"
	prefixSetHour        = "set_hour_"
	prefixCountry        = "country_"
	prefixReveal         = "reveal_"
)

var fieldLabels = map[string]string{
	models.FieldName:              "Name",
	models.FieldCapital:           "Capital",
	models.FieldLargestCity:       "Largest city",
	models.FieldOfficialLanguages: "Official languages",
	models.FieldCurrency:          "Currency",
}

func fieldLabel(key string) string {
	if l, ok := fieldLabels[key]; ok {
		return l
	}
	return key
}

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID, userID := message.Chat.ID, message.From.ID
	args := strings.Fields(message.CommandArguments())

	switch message.Command() {
	case "start":
		return b.handleStart(ctx, chatID, userID)
	case "help":
		return b.handleHelp(chatID)
	case "menu":
		return b.send(chatID, "🌐 Main menu - choose an option:", b.MainMenuButtons())
	case "challenge":
		return b.sendChallenge(ctx, chatID, userID)
	case "stats":
		return b.handleStats(ctx, chatID, userID)
	case "levels":
		return b.handleLevels(ctx, chatID, userID)
	case "countdown":
		return b.send(chatID, "⏳ Next challenge in "+b.countdown(), nil)
	case "remind":
		if len(args) == 0 {
			return b.handleReminderMenu(chatID)
		}
		hour, err := strconv.Atoi(args[0])
		if err != nil {
			return b.send(chatID, "Usage: /remind <hour>, for example /remind 18", nil)
		}
		return b.setReminderHour(ctx, chatID, userID, hour)
	case "explore":
		return b.handleExplore(ctx, chatID, userID)
	case "country":
		if len(args) == 0 {
			return b.send(chatID, "Usage: /country <code>, for example /country FR", nil)
		}
		return b.handleCountry(ctx, chatID, userID, strings.ToUpper(args[0]))
	case "reveal":
		if len(args) < 2 {
			return b.send(chatID, "Usage: /reveal <code> <field>, for example /reveal FR currency", nil)
		}
		return b.handleReveal(ctx, chatID, userID, strings.ToUpper(args[0]), args[1])
	case "reset":
		return b.send(chatID, "⚠️ This wipes your streak, level and discovered countries. Continue?", [][]MenuButton{
			{{Text: "Yes, start over", CallbackData: callbackResetConfirm}, {Text: "Cancel", CallbackData: callbackMainMenu}},
		})
	case "reload":
		if !b.isAdmin(userID) {
			return b.send(chatID, "This command is only available for administrators.", nil)
		}
		return b.handleReload(chatID)
	case "admin_stats":
		if !b.isAdmin(userID) {
			return b.send(chatID, "This command is only available for administrators.", nil)
		}
		return b.handleAdminStats(ctx, chatID)
	default:
		return b.send(chatID, "Unknown command. Use /help to see what I can do.", b.MainMenuButtons())
	}
}

// HandleText treats any plain message as an answer to today's challenge
func (b *Bot) HandleText(ctx context.Context, message *tgbotapi.Message) error {
	guess := strings.TrimSpace(message.Text)
	if guess == "" {
		return nil
	}
	chatID, userID := message.Chat.ID, message.From.ID

	res, err := b.manager.SubmitAnswer(ctx, userID, guess)
	switch {
	case errors.Is(err, game.ErrOnboardingIncomplete):
		return b.send(chatID, "Use /start to begin playing.", nil)
	case errors.Is(err, game.ErrNoPendingChallenge):
		return b.send(chatID, "There is no open challenge. Use /challenge to get today's question.", nil)
	case err != nil:
		return err
	}

	if res.Duplicate {
		return b.send(chatID, fmt.Sprintf("You've already answered today. Next challenge in %s.", b.countdown()), b.MainMenuButtons())
	}

	var text strings.Builder
	if res.Correct {
		text.WriteString(fmt.Sprintf("🎉 Correct! The answer is %s.\n🔥 Streak: %d", res.ExpectedAnswer, res.Progress.Streak))
		b.revealAnswered(ctx, userID, res.Progress.LastAnswer)
	} else {
		text.WriteString(fmt.Sprintf("❌ Not quite. The correct answer was %s.\nYour streak was reset.", res.ExpectedAnswer))
	}
	if res.LevelUp {
		lvl := models.LevelByID(res.Progress.CurrentLevel)
		text.WriteString(fmt.Sprintf("\n\n%s Level up! You reached level %d: %s (%s)", lvl.Icon, lvl.ID, lvl.Name, lvl.Description))
	}
	text.WriteString("\n\n⏳ Next challenge in " + b.countdown())
	return b.send(chatID, text.String(), b.MainMenuButtons())
}

// revealAnswered unlocks the fact the player just named correctly
func (b *Bot) revealAnswered(ctx context.Context, userID int64, a *models.AnswerRecord) {
	if b.tracker == nil || a == nil {
		return
	}
	if _, err := b.tracker.Unlock(ctx, userID, a.CountryID, a.ChallengeType.AnswerField()); err != nil {
		b.logger.Warn("failed to reveal answered field",
			zap.Int64("player_id", userID), zap.String("country", a.CountryID), zap.Error(err))
	}
}

// HandleCallback handles presses on inline buttons
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil || callback.Message.Chat == nil || callback.From == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always answer the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}

	chatID, userID := callback.Message.Chat.ID, callback.From.ID
	data := callback.Data

	switch data {
	case callbackMainMenu:
		return b.send(chatID, "🌐 Main menu - choose an option:", b.MainMenuButtons())
	case callbackChallenge:
		return b.sendChallenge(ctx, chatID, userID)
	case callbackStats:
		return b.handleStats(ctx, chatID, userID)
	case callbackExplore:
		return b.handleExplore(ctx, chatID, userID)
	case callbackLevels:
		return b.handleLevels(ctx, chatID, userID)
	case callbackReminder:
		return b.handleReminderMenu(chatID)
	case callbackOnboardingDone:
		if err := b.manager.CompleteOnboarding(ctx, userID); err != nil {
			return err
		}
		return b.sendChallenge(ctx, chatID, userID)
	case callbackResetConfirm:
		if err := b.manager.ResetProgress(ctx, userID); err != nil {
			return err
		}
		if b.tracker != nil {
			if err := b.tracker.Reset(ctx, userID); err != nil {
				b.logger.Warn("failed to reset revealed facts", zap.Int64("player_id", userID), zap.Error(err))
			}
		}
		return b.send(chatID, "🔄 Your progress was reset. Good luck on your new journey!", b.MainMenuButtons())
	}

	switch {
	case strings.HasPrefix(data, prefixOnboardingPage):
		page, err := strconv.Atoi(strings.TrimPrefix(data, prefixOnboardingPage))
		if err != nil {
			return fmt.Errorf("invalid onboarding page in callback data: %w", err)
		}
		return b.sendOnboardingPage(chatID, page)
	case strings.HasPrefix(data, prefixOnboardingHour):
		hour, err := strconv.Atoi(strings.TrimPrefix(data, prefixOnboardingHour))
		if err != nil {
			return fmt.Errorf("invalid hour in callback data: %w", err)
		}
		if err := b.setReminderHour(ctx, chatID, userID, hour); err != nil {
			return err
		}
		return b.sendOnboardingPage(chatID, models.NotificationsPage+1)
	case strings.HasPrefix(data, prefixSetHour):
		hour, err := strconv.Atoi(strings.TrimPrefix(data, prefixSetHour))
		if err != nil {
			return fmt.Errorf("invalid hour in callback data: %w", err)
		}
		return b.setReminderHour(ctx, chatID, userID, hour)
	case strings.HasPrefix(data, prefixCountry):
		return b.handleCountry(ctx, chatID, userID, strings.TrimPrefix(data, prefixCountry))
	case strings.HasPrefix(data, prefixReveal):
		parts := strings.SplitN(strings.TrimPrefix(data, prefixReveal), "_", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid reveal callback data %q", data)
		}
		return b.handleReveal(ctx, chatID, userID, parts[0], parts[1])
	}
	return b.send(chatID, "⚠️ Unknown action", b.MainMenuButtons())
}

func (b *Bot) handleStart(ctx context.Context, chatID, userID int64) error {
	session, err := b.manager.StartSession(ctx, userID)
	if err != nil {
		return err
	}
	if session.ShowOnboarding {
		return b.sendOnboardingPage(chatID, 0)
	}

	text := "👋 Welcome back to GeoStreak!"
	if session.StreakBroken {
		text += "\n\n💔 You missed a day, so your streak starts over."
	}
	if session.HasTodaysAnswer {
		text += fmt.Sprintf("\n\n✅ You've already played today. Next challenge in %s.",
			calendar.FormatCountdown(session.TimeUntilNext))
		return b.send(chatID, text, b.MainMenuButtons())
	}
	if err := b.send(chatID, text, nil); err != nil {
		return err
	}
	return b.sendChallenge(ctx, chatID, userID)
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "📖 GeoStreak answers one country question a day.\n\n" +
		"/challenge - Today's question\n" +
		"/stats - Your streak and accuracy\n" +
		"/levels - Level overview\n" +
		"/explore - Countries you discovered\n" +
		"/country <code> - Facts you revealed about a country\n" +
		"/reveal <code> <field> - Reveal another fact\n" +
		"/remind <hour> - Daily reminder time\n" +
		"/countdown - Time until the next challenge\n" +
		"/reset - Start over\n\n" +
		"Reply to a challenge with your answer. You only get one guess a day!"
	return b.send(chatID, text, [][]MenuButton{{{Text: "⬅️ Back to menu", CallbackData: callbackMainMenu}}})
}

func (b *Bot) sendOnboardingPage(chatID int64, page int) error {
	pages := models.OnboardingPages
	if page < 0 || page >= len(pages) {
		page = 0
	}
	p := pages[page]
	text := fmt.Sprintf("%s %s\n\n%s", p.Icon, p.Title, p.Description)

	var buttons [][]MenuButton
	switch {
	case page == models.NotificationsPage:
		for _, opt := range models.ReminderOptions {
			buttons = append(buttons, []MenuButton{{
				Text:         fmt.Sprintf("%s %02d:00 - %s", opt.Name, opt.Hour, opt.Description),
				CallbackData: fmt.Sprintf("%s%d", prefixOnboardingHour, opt.Hour),
			}})
		}
		buttons = append(buttons, []MenuButton{{Text: "Not now", CallbackData: fmt.Sprintf("%s%d", prefixOnboardingPage, page+1)}})
	case page == len(pages)-1:
		buttons = [][]MenuButton{{{Text: "🚀 Start playing", CallbackData: callbackOnboardingDone}}}
	default:
		buttons = [][]MenuButton{{{Text: "Next ➡️", CallbackData: fmt.Sprintf("%s%d", prefixOnboardingPage, page+1)}}}
	}
	return b.send(chatID, text, buttons)
}

func (b *Bot) sendChallenge(ctx context.Context, chatID, userID int64) error {
	ch, err := b.manager.TodaysChallenge(ctx, userID)
	switch {
	case errors.Is(err, game.ErrOnboardingIncomplete):
		return b.sendOnboardingPage(chatID, 0)
	case errors.Is(err, game.ErrAlreadyAnswered):
		return b.send(chatID, fmt.Sprintf("✅ You've already played today. Next challenge in %s.", b.countdown()), b.MainMenuButtons())
	case errors.Is(err, game.ErrNoChallengeAvailable):
		return b.send(chatID, "😕 No challenge is available right now. Please try again later.", nil)
	case err != nil:
		return err
	}

	lvl := b.manager.CurrentLevel(ctx, userID)
	var text strings.Builder
	text.WriteString(fmt.Sprintf("%s Level %d · %s\n\n", lvl.Icon, lvl.ID, lvl.Name))
	if ch.Type.ShowsFlag() {
		text.WriteString(ch.Country.Flag + " ")
	}
	if ch.Type.ShowsName() {
		text.WriteString(ch.Country.DisplayName())
	}
	text.WriteString("\n" + ch.Type.Prompt())
	if d := ch.Country.Difficulty(ch.Type.AnswerField()); d > 0 {
		text.WriteString("\nDifficulty: " + strings.Repeat("⭐", d))
	}
	text.WriteString(fmt.Sprintf("\n\n✍️ %s\n%s answers only, you get one guess!", ch.Type.InputPlaceholder(), ch.Type.AnswerType()))

	if !ch.Type.ShowsFlag() {
		return b.send(chatID, text.String(), nil)
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(ch.Country.FlagURL()))
	photo.Caption = text.String()
	if _, err := b.api.Send(photo); err != nil {
		// The flag image is optional; the glyph in the text carries the question
		b.logger.Warn("failed to send flag image", zap.String("country", ch.Country.ID), zap.Error(err))
		return b.send(chatID, text.String(), nil)
	}
	return nil
}

func (b *Bot) handleStats(ctx context.Context, chatID, userID int64) error {
	s := b.manager.Stats(ctx, userID)

	var text strings.Builder
	text.WriteString("📊 Your statistics\n\n")
	text.WriteString(fmt.Sprintf("🔥 Current streak: %d\n", s.Streak))
	text.WriteString(fmt.Sprintf("🏅 Longest streak: %d\n", s.LongestStreak))
	text.WriteString(fmt.Sprintf("✅ Correct answers: %d of %d (%.0f%%)\n", s.CorrectAnswers, s.TotalAnswers, s.Accuracy*100))
	text.WriteString(fmt.Sprintf("%s Level %d: %s (%.0f%% complete)\n", s.Level.Icon, s.Level.ID, s.Level.Name, s.LevelCompletion*100))
	text.WriteString(fmt.Sprintf("🌍 Countries discovered: %d of %d\n", s.CountriesCompleted, s.CountriesTotal))
	if b.completions != nil {
		counts, err := b.completions.CountActiveByType(ctx, userID)
		if err != nil {
			b.logger.Warn("failed to count completions", zap.Int64("player_id", userID), zap.Error(err))
		}
		for _, t := range models.AllChallengeTypes() {
			if n := counts[t]; n > 0 {
				text.WriteString(fmt.Sprintf("   • %s: %d\n", t.Prompt(), n))
			}
		}
	}
	if s.HasTodaysAnswer {
		text.WriteString(fmt.Sprintf("⏳ Next challenge in %s", calendar.FormatCountdown(s.TimeUntilNext)))
	} else {
		text.WriteString("🎯 Today's challenge is waiting for you")
	}
	return b.send(chatID, text.String(), b.MainMenuButtons())
}

func (b *Bot) handleLevels(ctx context.Context, chatID, userID int64) error {
	current := b.manager.CurrentLevel(ctx, userID).ID

	var text strings.Builder
	text.WriteString("🏆 Levels\n\n")
	for _, l := range models.AllLevels() {
		mark := "🔒"
		switch {
		case l.ID < current:
			mark = "✅"
		case l.ID == current:
			mark = "▶️"
		}
		text.WriteString(fmt.Sprintf("%s %s %d. %s - %s\n", mark, l.Icon, l.ID, l.Name, l.Description))
	}
	if next, ok := models.NextLevel(current); ok {
		text.WriteString(fmt.Sprintf("\nAnswer more level %d questions to unlock %s.", current, next.Name))
	}
	return b.send(chatID, text.String(), b.MainMenuButtons())
}

func (b *Bot) handleReminderMenu(chatID int64) error {
	var buttons [][]MenuButton
	for _, opt := range models.ReminderOptions {
		buttons = append(buttons, []MenuButton{{
			Text:         fmt.Sprintf("%s %02d:00", opt.Name, opt.Hour),
			CallbackData: fmt.Sprintf("%s%d", prefixSetHour, opt.Hour),
		}})
	}
	return b.send(chatID, "🔔 When should I remind you? You can also send /remind <hour>.", buttons)
}

// setReminderHour enables reminders on first use and moves them afterwards
func (b *Bot) setReminderHour(ctx context.Context, chatID, userID int64, hour int) error {
	var err error
	granted := true
	if b.manager.Progress(ctx, userID).NotificationsEnabled {
		err = b.manager.UpdateReminderHour(ctx, userID, hour)
	} else {
		granted, err = b.manager.SetupNotifications(ctx, userID, hour)
	}
	switch {
	case errors.Is(err, game.ErrInvalidReminderHour):
		return b.send(chatID, "Please choose an hour between 0 and 23.", nil)
	case err != nil:
		return err
	case !granted:
		return b.send(chatID, "🔕 Reminders are not available right now.", nil)
	}
	return b.send(chatID, fmt.Sprintf("🔔 I'll remind you every day at %02d:00.", hour), nil)
}

func (b *Bot) handleExplore(ctx context.Context, chatID, userID int64) error {
	p := b.manager.Progress(ctx, userID)
	ids := p.CompletedEntities()
	if len(ids) == 0 {
		return b.send(chatID, "🗺 Answer daily challenges correctly to discover countries.", b.MainMenuButtons())
	}

	discovered := make(map[string]bool, len(ids))
	for _, id := range ids {
		discovered[id] = true
	}

	catalog := b.data.CatalogOrEmpty()
	var buttons [][]MenuButton
	var row []MenuButton
	for _, c := range catalog.SortedByLevel() {
		if !discovered[c.ID] {
			continue
		}
		row = append(row, MenuButton{Text: c.Flag + " " + c.DisplayName(), CallbackData: prefixCountry + c.ID})
		if len(row) == 2 {
			buttons = append(buttons, row)
			row = nil
		}
	}
	if len(row) > 0 {
		buttons = append(buttons, row)
	}

	text := fmt.Sprintf("🗺 You discovered %d of %d countries.", len(ids), catalog.Len())
	for _, continent := range catalog.Continents() {
		countries := catalog.ForContinent(continent)
		n := 0
		for _, c := range countries {
			if discovered[c.ID] {
				n++
			}
		}
		text += fmt.Sprintf("\n%s: %d/%d", continent, n, len(countries))
	}
	if b.tracker != nil {
		conquered, err := b.tracker.ConqueredCountries(ctx, userID)
		if err != nil {
			b.logger.Warn("failed to list conquered countries", zap.Int64("player_id", userID), zap.Error(err))
		} else {
			text += fmt.Sprintf("\n👑 Fully explored: %d", len(conquered))
		}
	}
	return b.send(chatID, text+"\n\nPick one to see what you know:", buttons)
}

func (b *Bot) handleCountry(ctx context.Context, chatID, userID int64, countryID string) error {
	if !b.manager.Progress(ctx, userID).IsCountryCompleted(countryID) {
		return b.send(chatID, "🔒 You haven't discovered this country yet.", nil)
	}
	if b.tracker == nil {
		return b.send(chatID, "Country details are not available right now.", nil)
	}
	fc, err := b.tracker.FilteredCountry(ctx, userID, countryID)
	if errors.Is(err, unlock.ErrCountryNotFound) {
		return b.send(chatID, "Unknown country code.", nil)
	}
	if err != nil {
		return err
	}

	c := fc.Country
	var text strings.Builder
	text.WriteString(fmt.Sprintf("%s %s\n\n", c.Flag, fc.Value(models.FieldName)))
	var buttons [][]MenuButton
	for _, key := range c.AnswerableFieldKeys() {
		text.WriteString(fmt.Sprintf("%s: %s\n", fieldLabel(key), fc.Value(key)))
		if !fc.Visible[key] {
			buttons = append(buttons, []MenuButton{{
				Text:         "🔓 Reveal " + strings.ToLower(fieldLabel(key)),
				CallbackData: prefixReveal + c.ID + "_" + key,
			}})
		}
	}
	if c.Continent != "" {
		text.WriteString(fmt.Sprintf("Continent: %s\n", c.Continent))
	}
	if unlocked, err := b.tracker.UnlockedFields(ctx, userID, c.ID); err == nil {
		text.WriteString(fmt.Sprintf("🔍 Facts revealed: %d of %d\n", len(unlocked), len(c.AnswerableFieldKeys())))
	}
	if len(buttons) == 0 {
		text.WriteString("\n👑 Fully explored!")
		if c.Summary != "" {
			text.WriteString("\n" + c.Summary)
		}
		for _, fact := range c.FunFacts {
			text.WriteString("\n💡 " + fact)
		}
	}
	buttons = append(buttons, []MenuButton{{Text: "⬅️ Back", CallbackData: callbackExplore}})
	return b.send(chatID, text.String(), buttons)
}

func (b *Bot) handleReveal(ctx context.Context, chatID, userID int64, countryID, field string) error {
	if !b.manager.Progress(ctx, userID).IsCountryCompleted(countryID) {
		return b.send(chatID, "🔒 You haven't discovered this country yet.", nil)
	}
	if b.tracker == nil {
		return b.send(chatID, "Country details are not available right now.", nil)
	}
	locked, err := b.tracker.LockedFields(ctx, userID, countryID)
	if errors.Is(err, unlock.ErrCountryNotFound) {
		return b.send(chatID, "Unknown country code.", nil)
	}
	if err != nil {
		return err
	}
	if !slices.Contains(locked, field) {
		b.logger.Debug("reveal was a no-op", zap.Int64("player_id", userID), zap.String("country", countryID), zap.String("field", field))
		return b.handleCountry(ctx, chatID, userID, countryID)
	}

	if _, err := b.tracker.Unlock(ctx, userID, countryID, field); err != nil {
		return err
	}
	if conquered, err := b.tracker.IsFullyConquered(ctx, userID, countryID); err == nil && conquered {
		if err := b.send(chatID, "👑 You revealed every fact about this country!", nil); err != nil {
			return err
		}
	}
	return b.handleCountry(ctx, chatID, userID, countryID)
}

func (b *Bot) handleReload(chatID int64) error {
	b.data.ClearCache()
	catalog, err := b.data.Catalog()
	if err != nil {
		return b.send(chatID, fmt.Sprintf("❌ Failed to reload countries: %v", err), nil)
	}
	b.logger.Info("reference data reloaded", zap.Int("countries", catalog.Len()))
	return b.send(chatID, fmt.Sprintf("✅ Reloaded %d countries.", catalog.Len()), nil)
}

func (b *Bot) handleAdminStats(ctx context.Context, chatID int64) error {
	catalog := b.data.CatalogOrEmpty()
	var text strings.Builder
	text.WriteString("🛠 Admin statistics\n\n")
	if b.players != nil {
		n, err := b.players.CountPlayers(ctx)
		if err != nil {
			return err
		}
		text.WriteString(fmt.Sprintf("Players: %d\n", n))
	}
	text.WriteString(fmt.Sprintf("Countries: %d\n", catalog.Len()))
	for _, l := range models.AllLevels() {
		text.WriteString(fmt.Sprintf("Level %d: %d countries\n", l.ID, catalog.CountInLevel(l.ID)))
	}
	return b.send(chatID, text.String(), nil)
}

func (b *Bot) countdown() string {
	return calendar.FormatCountdown(b.manager.TimeUntilNextChallenge())
}
