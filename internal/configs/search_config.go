package configs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"search-analytics-service/internal/core/domain"

	"gopkg.in/yaml.v3"
)

// SearchConfig tunes ranking and filtering. Read from SEARCH_CONFIG_PATH.
type SearchConfig struct {
	Order           domain.SortOrder        `yaml:"order"`
	Operators       []domain.FilterOperator `yaml:"operators"` // empty enables all
	DefaultPageSize int                     `yaml:"default_page_size"`
	MaxPageSize     int                     `yaml:"max_page_size"`
	Workers         int                     `yaml:"workers"`
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Order:           domain.SortByRatingDesc,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		Workers:         8,
	}
}

// LoadSearchConfig returns defaults for an empty path. Fields missing from the file keep their defaults.
func LoadSearchConfig(path string) (*SearchConfig, error) {
	cfg := DefaultSearchConfig()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read search config %s: %w", path, err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("invalid search config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *SearchConfig) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return c.validate()
}

func (c *SearchConfig) validate() error {
	if !c.Order.Valid() {
		return fmt.Errorf("unknown order %q", c.Order)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize <= 0 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default_page_size %d exceeds max_page_size %d", c.DefaultPageSize, c.MaxPageSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}
