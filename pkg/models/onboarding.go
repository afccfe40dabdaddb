package models

// OnboardingPage is one screen of the first-run introduction
type OnboardingPage struct {
	Title       string
	Description string
	Icon        string
}

// OnboardingPages is the ordered onboarding flow. The notifications page
// asks for a reminder time.
var OnboardingPages = []OnboardingPage{
	{Title: "Welcome to GeoStreak!", Description: "A fun daily challenge to test your knowledge of world capitals", Icon: "🌐"},
	{Title: "One Country Daily", Description: "Each day, you'll be challenged with a country trivia. Make it count - you only get one guess!", Icon: "📅"},
	{Title: "Build Your Streak", Description: "Keep answering correctly to build your streak and unlock new levels", Icon: "🔥"},
	{Title: "Five Exciting Levels", Description: "Journey through Europe, Asia, the Americas, Africa, and beyond", Icon: "🗺"},
	{Title: "Set Your Reminder Time", Description: "Choose when you'd like to be reminded to complete your daily challenge", Icon: "🔔"},
	{Title: "Ready to Begin?", Description: "Your daily geography adventure starts now!", Icon: "✅"},
}

// NotificationsPage is the index of the reminder-time page
const NotificationsPage = 4

// ReminderOption is a preset reminder time
type ReminderOption struct {
	Name        string
	Hour        int
	Description string
}

var ReminderOptions = []ReminderOption{
	{Name: "Morning 🌅", Hour: 8, Description: "Start your day with geography"},
	{Name: "Midday ☀️", Hour: 12, Description: "Take a break with a quick challenge"},
	{Name: "Evening 🌙", Hour: 18, Description: "Wind down with some geography"},
}
