package game

import "errors"

var (
	ErrNoChallengeAvailable = errors.New("no challenge available")
	ErrOnboardingIncomplete = errors.New("onboarding not completed")
	ErrAlreadyAnswered      = errors.New("today's challenge was already answered")
	ErrNoPendingChallenge   = errors.New("no challenge pending")
	ErrInvalidReminderHour  = errors.New("reminder hour must be between 0 and 23")
)
