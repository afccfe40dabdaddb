package models

// MaxLevel is the highest difficulty tier
const MaxLevel = 5

// Level describes a difficulty tier of the game
type Level struct {
	ID                     int
	Name                   string
	Description            string
	RequiredCorrectAnswers int
	Continent              string
	Icon                   string
}

var allLevels = []Level{
	{ID: 1, Name: "Novice Explorer", Description: "European capitals", RequiredCorrectAnswers: 10, Continent: "Europe", Icon: "🌍"},
	{ID: 2, Name: "Adventurer", Description: "Asian capitals", RequiredCorrectAnswers: 15, Continent: "Asia", Icon: "🌏"},
	{ID: 3, Name: "Voyager", Description: "American capitals", RequiredCorrectAnswers: 20, Continent: "Americas", Icon: "🌎"},
	{ID: 4, Name: "Globe Trotter", Description: "African capitals", RequiredCorrectAnswers: 25, Continent: "Africa", Icon: "🌍"},
	{ID: 5, Name: "Geography Master", Description: "Oceania & challenging capitals", RequiredCorrectAnswers: 30, Continent: "Oceania", Icon: "🌏"},
}

// AllLevels returns a copy of the level table
func AllLevels() []Level {
	out := make([]Level, len(allLevels))
	copy(out, allLevels)
	return out
}

// LevelByID falls back to the first level for unknown ids
func LevelByID(id int) Level {
	for _, l := range allLevels {
		if l.ID == id {
			return l
		}
	}
	return allLevels[0]
}

// NextLevel returns the level after current, if any
func NextLevel(current int) (Level, bool) {
	for _, l := range allLevels {
		if l.ID == current+1 {
			return l, true
		}
	}
	return Level{}, false
}
