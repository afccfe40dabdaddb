package models

import "fmt"

// ChallengeType identifies one of the three daily question kinds. The
// string value is the stable id persisted with completed challenges.
type ChallengeType string

const (
	FlagToCountry    ChallengeType = "flag-to-country"
	CountryToCapital ChallengeType = "country-to-capital"
	FlagToCapital    ChallengeType = "flag-to-capital"
)

// ChallengeTypesPerCountry is the number of distinct challenges a country can produce
const ChallengeTypesPerCountry = 3

type challengeDef struct {
	prompt      string
	answerType  string
	placeholder string
	showsFlag   bool
	showsName   bool
	field       string
	expected    func(Country) string
}

var challengeDefs = map[ChallengeType]challengeDef{
	FlagToCountry: {
		prompt:      "What country does this flag belong to?",
		answerType:  "Country",
		placeholder: "Enter country name...",
		showsFlag:   true,
		field:       FieldName,
		expected:    Country.DisplayName,
	},
	CountryToCapital: {
		prompt:      "What is the capital of this country?",
		answerType:  "Capital",
		placeholder: "Enter capital city...",
		showsFlag:   true,
		showsName:   true,
		field:       FieldCapital,
		expected:    Country.CapitalName,
	},
	FlagToCapital: {
		prompt:      "What is the capital city of the country this flag belongs to?",
		answerType:  "Capital",
		placeholder: "Enter capital city...",
		showsFlag:   true,
		field:       FieldCapital,
		expected:    Country.CapitalName,
	},
}

// AllChallengeTypes returns every challenge type in a stable order
func AllChallengeTypes() []ChallengeType {
	return []ChallengeType{FlagToCountry, CountryToCapital, FlagToCapital}
}

// ParseChallengeType validates a persisted challenge type id
func ParseChallengeType(id string) (ChallengeType, error) {
	t := ChallengeType(id)
	if _, ok := challengeDefs[t]; !ok {
		return "", fmt.Errorf("unknown challenge type %q", id)
	}
	return t, nil
}

func (t ChallengeType) def() challengeDef {
	s, ok := challengeDefs[t]
	if !ok {
		panic(fmt.Sprintf("models: unknown challenge type %q", string(t)))
	}
	return s
}

// ID returns the persisted identifier
func (t ChallengeType) ID() string { return string(t) }

// Prompt is the question shown to the player
func (t ChallengeType) Prompt() string { return t.def().prompt }

// AnswerType names what the player must type ("Country" or "Capital")
func (t ChallengeType) AnswerType() string { return t.def().answerType }

// InputPlaceholder is the hint for the answer input
func (t ChallengeType) InputPlaceholder() string { return t.def().placeholder }

// ShowsFlag reports whether the flag is part of the question
func (t ChallengeType) ShowsFlag() bool { return t.def().showsFlag }

// ShowsName reports whether the country name is part of the question
func (t ChallengeType) ShowsName() bool { return t.def().showsName }

// AnswerField is the key of the country field the player has to name
func (t ChallengeType) AnswerField() string { return t.def().field }

// ExpectedAnswer extracts the correct answer from the target country
func (t ChallengeType) ExpectedAnswer(c Country) string { return t.def().expected(c) }
