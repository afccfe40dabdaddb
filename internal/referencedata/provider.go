// Package referencedata loads the static country dataset. The bundled JSON
// is used unless a file path is configured; spreadsheets go through the
// Excel/CSV importer.
package referencedata

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/example/geostreak/pkg/models"
	"go.uber.org/zap"
)

//go:embed data/countries.json
var bundledCountries []byte

// Provider loads the dataset once and caches the catalog
type Provider struct {
	path   string
	logger *zap.Logger

	mu    sync.Mutex
	cache *Catalog
}

// NewProvider creates a provider. An empty path selects the bundled dataset.
func NewProvider(path string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{path: path, logger: logger}
}

// Catalog returns the cached catalog, loading it on first use
func (p *Provider) Catalog() (*Catalog, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache != nil {
		return p.cache, nil
	}

	countries, err := p.load()
	if err != nil {
		p.logger.Error("failed to load reference data", zap.String("path", p.path), zap.Error(err))
		return nil, err
	}
	p.cache = NewCatalog(countries)
	p.logger.Info("reference data loaded", zap.Int("countries", p.cache.Len()))
	return p.cache, nil
}

// LoadAll returns every country of the dataset
func (p *Provider) LoadAll() ([]models.Country, error) {
	c, err := p.Catalog()
	if err != nil {
		return nil, err
	}
	return c.All(), nil
}

// CatalogOrEmpty degrades load failures to an empty catalog
func (p *Provider) CatalogOrEmpty() *Catalog {
	c, err := p.Catalog()
	if err != nil {
		return NewCatalog(nil)
	}
	return c
}

// ClearCache forces the next call to reload the dataset
func (p *Provider) ClearCache() {
	p.mu.Lock()
	p.cache = nil
	p.mu.Unlock()
}

func (p *Provider) load() ([]models.Country, error) {
	if p.path == "" {
		return DecodeJSON(bundledCountries)
	}

	switch strings.ToLower(filepath.Ext(p.path)) {
	case ".xlsx", ".xlsm", ".csv":
		cfg := DefaultImportConfig()
		cfg.FilePath = p.path
		countries, result, err := ImportCountries(cfg)
		if err != nil {
			return nil, err
		}
		for _, msg := range result.Errors {
			p.logger.Warn("skipped dataset row", zap.String("detail", msg))
		}
		if len(countries) == 0 {
			return nil, fmt.Errorf("%w: no valid rows in %s", ErrDecodingFailed, p.path)
		}
		return countries, nil
	default:
		data, err := os.ReadFile(p.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, p.path)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResourceNotFound, err)
		}
		return DecodeJSON(data)
	}
}

// DecodeJSON parses a JSON array of countries
func DecodeJSON(data []byte) ([]models.Country, error) {
	var countries []models.Country
	if err := json.Unmarshal(data, &countries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodingFailed, err)
	}
	for i, c := range countries {
		if c.ID == "" || c.DisplayName() == "" {
			return nil, fmt.Errorf("%w: entry %d has no id or name", ErrDecodingFailed, i)
		}
	}
	return countries, nil
}
