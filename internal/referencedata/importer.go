package referencedata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/geostreak/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the spreadsheet layout of a country dataset
type ImportConfig struct {
	FilePath                string // Path to the Excel or CSV file
	IDColumn                string // Column with the country code
	FlagColumn              string // Column with the flag glyph
	NameColumn              string
	NameDifficultyColumn    string
	CapitalColumn           string
	CapitalDifficultyColumn string
	LargestCityColumn       string
	LargestCityDiffColumn   string
	LanguagesColumn         string // Languages separated by ListSeparator
	LanguagesDiffColumn     string
	CurrencyColumn          string
	CurrencyDiffColumn      string
	ContinentColumn         string
	FunFactsColumn          string // Facts separated by FactSeparator
	LevelColumn             string // Optional assigned level
	SheetName               string // Name of the sheet to import
	StartRow                int    // The row to start importing from (1-based index)
	ListSeparator           string
	FactSeparator           string
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IDColumn:                "A",
		FlagColumn:              "B",
		NameColumn:              "C",
		NameDifficultyColumn:    "D",
		CapitalColumn:           "E",
		CapitalDifficultyColumn: "F",
		LargestCityColumn:       "G",
		LargestCityDiffColumn:   "H",
		LanguagesColumn:         "I",
		LanguagesDiffColumn:     "J",
		CurrencyColumn:          "K",
		CurrencyDiffColumn:      "L",
		ContinentColumn:         "M",
		FunFactsColumn:          "N",
		LevelColumn:             "O",
		SheetName:               "Sheet1",
		StartRow:                2, // By default, start from the second row (skip header)
		ListSeparator:           ";",
		FactSeparator:           "|",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// ImportCountries reads countries from an Excel or CSV file. Rows with
// errors are skipped and reported in the result; a repeated id replaces
// the earlier row.
func ImportCountries(config ImportConfig) ([]models.Country, *ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))

	var rows [][]string
	var err error
	if ext == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	var countries []models.Country
	index := make(map[string]int)

	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		if isBlankRow(row) {
			continue
		}
		result.TotalProcessed++

		country, err := processRow(row, config)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		if pos, exists := index[country.ID]; exists {
			countries[pos] = country
			result.Updated++
			continue
		}
		index[country.ID] = len(countries)
		countries = append(countries, country)
		result.Created++
	}

	return countries, result, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", ErrResourceNotFound, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get rows: %v", ErrDecodingFailed, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open CSV file: %v", ErrResourceNotFound, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: error reading CSV: %v", ErrDecodingFailed, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// processRow turns one spreadsheet row into a country
func processRow(row []string, config ImportConfig) (models.Country, error) {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if colIdx := columnToIndex(column); colIdx >= 0 && colIdx < len(row) {
			return strings.TrimSpace(row[colIdx])
		}
		return ""
	}

	id := strings.ToUpper(cell(config.IDColumn))
	name := cell(config.NameColumn)
	if id == "" {
		return models.Country{}, fmt.Errorf("country id cannot be empty")
	}
	if name == "" {
		return models.Country{}, fmt.Errorf("country name cannot be empty")
	}

	country := models.Country{
		ID:            id,
		Flag:          cell(config.FlagColumn),
		Name:          models.NewAnswerableField(models.TextValue(name), parseIntOrDefault(cell(config.NameDifficultyColumn), 1, 5, 3)),
		Continent:     cell(config.ContinentColumn),
		AssignedLevel: parseLevel(cell(config.LevelColumn)),
	}

	country.Capital = optionalText(cell(config.CapitalColumn), cell(config.CapitalDifficultyColumn))
	country.LargestCity = optionalText(cell(config.LargestCityColumn), cell(config.LargestCityDiffColumn))
	country.Currency = optionalText(cell(config.CurrencyColumn), cell(config.CurrencyDiffColumn))

	if langs := splitList(cell(config.LanguagesColumn), config.ListSeparator); len(langs) > 0 {
		f := models.NewAnswerableField(models.ListValue(langs...), parseIntOrDefault(cell(config.LanguagesDiffColumn), 1, 5, 3))
		country.OfficialLanguages = &f
	}
	country.FunFacts = splitList(cell(config.FunFactsColumn), config.FactSeparator)

	return country, nil
}

func optionalText(value, difficulty string) *models.AnswerableField {
	if value == "" {
		return nil
	}
	f := models.NewAnswerableField(models.TextValue(value), parseIntOrDefault(difficulty, 1, 5, 3))
	return &f
}

func splitList(s, sep string) []string {
	if s == "" {
		return nil
	}
	if sep == "" {
		return []string{s}
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	n, err := excelize.ColumnNameToNumber(column)
	if err != nil {
		return -1
	}
	return n - 1
}

// Helper function to parse integer within a range
func parseIntInRange(s string, min, max int) (int, error) {
	var val int
	if _, err := fmt.Sscanf(s, "%d", &val); err != nil {
		return min, err
	}
	if val < min {
		return min, nil
	}
	if val > max {
		return max, nil
	}
	return val, nil
}

// parseLevel keeps an explicit level in 1..5. Anything else is 0, which
// lets the level be derived from the field difficulties.
func parseLevel(s string) int {
	var val int
	if _, err := fmt.Sscanf(s, "%d", &val); err != nil {
		return 0
	}
	if val < models.MinDifficulty || val > models.MaxDifficulty {
		return 0
	}
	return val
}

// Helper function to parse integer with default value
func parseIntOrDefault(s string, min, max, defaultVal int) int {
	if val, err := parseIntInRange(s, min, max); err == nil {
		return val
	}
	return defaultVal
}
