package models

import "sort"

// CountryProgress tracks which answerable fields of a country a player has
// revealed. Once a field is unlocked it stays unlocked.
type CountryProgress struct {
	PlayerID       int64           `json:"player_id"`
	CountryID      string          `json:"country_id"`
	UnlockedFields map[string]bool `json:"unlocked_fields"`
}

// NewCountryProgress seeds every available field as locked. Values from
// unlocked are carried over for fields that are still available.
func NewCountryProgress(playerID int64, countryID string, availableFields []string, unlocked map[string]bool) *CountryProgress {
	fields := make(map[string]bool, len(availableFields))
	for _, f := range availableFields {
		fields[f] = unlocked[f]
	}
	return &CountryProgress{PlayerID: playerID, CountryID: countryID, UnlockedFields: fields}
}

// IsFieldUnlocked is false for unknown fields
func (p *CountryProgress) IsFieldUnlocked(field string) bool {
	return p.UnlockedFields[field]
}

// UnlockField unlocks a tracked field. Unknown fields are ignored.
// It reports whether the state changed.
func (p *CountryProgress) UnlockField(field string) bool {
	unlocked, tracked := p.UnlockedFields[field]
	if !tracked || unlocked {
		return false
	}
	p.UnlockedFields[field] = true
	return true
}

// LockedFields returns the still hidden fields, sorted
func (p *CountryProgress) LockedFields() []string {
	return p.fieldsWith(false)
}

// UnlockedFieldList returns the revealed fields, sorted
func (p *CountryProgress) UnlockedFieldList() []string {
	return p.fieldsWith(true)
}

func (p *CountryProgress) fieldsWith(state bool) []string {
	var out []string
	for f, v := range p.UnlockedFields {
		if v == state {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// IsFullyConquered is true when every tracked field is unlocked
func (p *CountryProgress) IsFullyConquered() bool {
	for _, v := range p.UnlockedFields {
		if !v {
			return false
		}
	}
	return true
}
