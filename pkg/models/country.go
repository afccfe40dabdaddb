package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Answerable field keys
const (
	FieldName              = "name"
	FieldCapital           = "capital"
	FieldLargestCity       = "largestCity"
	FieldOfficialLanguages = "officialLanguages"
	FieldCurrency          = "currency"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// FieldKind tells which member of FieldValue is set
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldList
)

// FieldValue holds either a single string or a list of strings
type FieldValue struct {
	Kind FieldKind
	Text string
	List []string
}

// TextValue builds a string field value
func TextValue(s string) FieldValue {
	return FieldValue{Kind: FieldText, Text: s}
}

// ListValue builds a list field value
func ListValue(items ...string) FieldValue {
	return FieldValue{Kind: FieldList, List: items}
}

// String renders the value for display. Lists are comma separated.
func (v FieldValue) String() string {
	if v.Kind == FieldList {
		return strings.Join(v.List, ", ")
	}
	return v.Text
}

// MarshalJSON encodes the value as a JSON string or array
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.Kind == FieldList {
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts a JSON string or an array of strings
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = TextValue(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("field value must be a string or a list of strings: %w", err)
	}
	*v = ListValue(list...)
	return nil
}

// AnswerableField is a country fact the player can be asked about, tagged
// with a difficulty between 1 and 5
type AnswerableField struct {
	Value      FieldValue `json:"value"`
	Difficulty int        `json:"difficulty"`
}

// NewAnswerableField clamps the difficulty into range
func NewAnswerableField(value FieldValue, difficulty int) AnswerableField {
	return AnswerableField{Value: value, Difficulty: ClampDifficulty(difficulty)}
}

// UnmarshalJSON decodes the field and clamps its difficulty
func (f *AnswerableField) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value      FieldValue `json:"value"`
		Difficulty int        `json:"difficulty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = NewAnswerableField(raw.Value, raw.Difficulty)
	return nil
}

// ClampDifficulty keeps d within [MinDifficulty, MaxDifficulty]
func ClampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// KeyedField pairs an answerable field with its key
type KeyedField struct {
	Key   string
	Field AnswerableField
}

// Country is an immutable reference record for a country or territory
type Country struct {
	ID                string           `json:"id"`
	Flag              string           `json:"flag"`
	Name              AnswerableField  `json:"name"`
	Capital           *AnswerableField `json:"capital,omitempty"`
	LargestCity       *AnswerableField `json:"largestCity,omitempty"`
	OfficialLanguages *AnswerableField `json:"officialLanguages,omitempty"`
	Currency          *AnswerableField `json:"currency,omitempty"`
	Continent         string           `json:"continent"`
	FunFacts          []string         `json:"funFacts,omitempty"`
	Summary           string           `json:"summary,omitempty"`
	AreaSquareKm      int              `json:"areaSquareKm,omitempty"`
	NationalAnimal    string           `json:"nationalAnimal,omitempty"`
	Climate           string           `json:"climate,omitempty"`
	// AssignedLevel overrides the derived level when it is between 1 and 5
	AssignedLevel int `json:"level,omitempty"`
}

// DisplayName returns the country name as plain text
func (c Country) DisplayName() string {
	return c.Name.Value.String()
}

// CapitalName returns the capital as plain text, or "" when unknown
func (c Country) CapitalName() string {
	if c.Capital == nil {
		return ""
	}
	return c.Capital.Value.String()
}

// AnswerableFields lists the fields present for the country in a fixed order
func (c Country) AnswerableFields() []KeyedField {
	fields := []KeyedField{{Key: FieldName, Field: c.Name}}
	if c.Capital != nil {
		fields = append(fields, KeyedField{Key: FieldCapital, Field: *c.Capital})
	}
	if c.LargestCity != nil {
		fields = append(fields, KeyedField{Key: FieldLargestCity, Field: *c.LargestCity})
	}
	if c.OfficialLanguages != nil {
		fields = append(fields, KeyedField{Key: FieldOfficialLanguages, Field: *c.OfficialLanguages})
	}
	if c.Currency != nil {
		fields = append(fields, KeyedField{Key: FieldCurrency, Field: *c.Currency})
	}
	return fields
}

// AnswerableFieldKeys returns the keys of AnswerableFields
func (c Country) AnswerableFieldKeys() []string {
	fields := c.AnswerableFields()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	return keys
}

// Level is the difficulty tier of the country. An assigned level wins,
// otherwise it is the integer mean of the field difficulties.
func (c Country) Level() int {
	if c.AssignedLevel >= MinDifficulty && c.AssignedLevel <= MaxDifficulty {
		return c.AssignedLevel
	}
	fields := c.AnswerableFields()
	sum := 0
	for _, f := range fields {
		sum += f.Field.Difficulty
	}
	return ClampDifficulty(sum / len(fields))
}

// Field looks up an answerable field by key
func (c Country) Field(key string) (AnswerableField, bool) {
	for _, f := range c.AnswerableFields() {
		if f.Key == key {
			return f.Field, true
		}
	}
	return AnswerableField{}, false
}

// Difficulty returns the difficulty of a field, or 0 when the field is absent
func (c Country) Difficulty(key string) int {
	f, ok := c.Field(key)
	if !ok {
		return 0
	}
	return f.Difficulty
}

// DisplayString renders a field for display
func (c Country) DisplayString(key string) string {
	f, ok := c.Field(key)
	if !ok {
		return "Unknown"
	}
	return f.Value.String()
}

// FlagURL points at a 128x96 PNG of the flag
func (c Country) FlagURL() string {
	return fmt.Sprintf("https://flagcdn.com/128x96/%s.png", strings.ToLower(c.ID))
}
