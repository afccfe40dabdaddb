package referencedata

import (
	"sort"

	"github.com/example/geostreak/pkg/models"
)

// Catalog is a read-only, indexed view over the loaded countries
type Catalog struct {
	countries []models.Country
	byID      map[string]int
	byLevel   map[int][]int
}

// NewCatalog indexes countries. Later duplicates of an id are dropped.
func NewCatalog(countries []models.Country) *Catalog {
	c := &Catalog{
		byID:    make(map[string]int, len(countries)),
		byLevel: make(map[int][]int),
	}
	for _, country := range countries {
		if _, dup := c.byID[country.ID]; dup {
			continue
		}
		idx := len(c.countries)
		c.countries = append(c.countries, country)
		c.byID[country.ID] = idx
		lvl := country.Level()
		c.byLevel[lvl] = append(c.byLevel[lvl], idx)
	}
	return c
}

// Len is the number of countries
func (c *Catalog) Len() int {
	return len(c.countries)
}

// All returns every country sorted by display name
func (c *Catalog) All() []models.Country {
	out := make([]models.Country, len(c.countries))
	copy(out, c.countries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayName() < out[j].DisplayName() })
	return out
}

// ByID looks up a country by its code
func (c *Catalog) ByID(id string) (models.Country, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return models.Country{}, false
	}
	return c.countries[idx], true
}

// ForLevel returns the countries of a level sorted by display name
func (c *Catalog) ForLevel(level int) []models.Country {
	idxs := c.byLevel[level]
	out := make([]models.Country, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, c.countries[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayName() < out[j].DisplayName() })
	return out
}

// CountInLevel is the number of countries in a level
func (c *Catalog) CountInLevel(level int) int {
	return len(c.byLevel[level])
}

// LevelOf returns the level of a country, or 0 when unknown
func (c *Catalog) LevelOf(id string) int {
	country, ok := c.ByID(id)
	if !ok {
		return 0
	}
	return country.Level()
}

// ForContinent returns the countries on a continent sorted by display name
func (c *Catalog) ForContinent(continent string) []models.Country {
	var out []models.Country
	for _, country := range c.countries {
		if country.Continent == continent {
			out = append(out, country)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayName() < out[j].DisplayName() })
	return out
}

// SortedByLevel returns all countries ordered by level, then name
func (c *Catalog) SortedByLevel() []models.Country {
	out := c.All()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level() < out[j].Level() })
	return out
}

// Continents lists the distinct continents, sorted
func (c *Catalog) Continents() []string {
	seen := make(map[string]bool)
	var out []string
	for _, country := range c.countries {
		if country.Continent != "" && !seen[country.Continent] {
			seen[country.Continent] = true
			out = append(out, country.Continent)
		}
	}
	sort.Strings(out)
	return out
}
