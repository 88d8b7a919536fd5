package configs

import (
	"os"
	"path/filepath"
	"search-analytics-service/internal/core/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_MemoryDriver(t *testing.T) {
	envFile := writeFile(t, ".env", "")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("RABBITMQ_ENABLED", "false")
	t.Setenv("STORAGE_TIMEOUT", "750ms")
	t.Setenv("CACHE_MAX_SIZE", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, ,https://app.example.com")
	t.Setenv("SEARCH_CONFIG_PATH", "")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.Storage.Timeout)
	assert.Equal(t, int64(10000), cfg.Cache.MaxSize)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.Rest.AllowedOrigins)
	assert.Equal(t, DefaultSearchConfig(), cfg.Search)
	assert.Equal(t, "*/5 * * * *", cfg.Booking.ExpirySchedule)
}

func TestLoadConfig_RequiredValues(t *testing.T) {
	envFile := writeFile(t, ".env", "")

	t.Run("postgres needs a url", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("RABBITMQ_ENABLED", "false")
		_, err := LoadConfig(envFile)
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("enabled broker needs a url", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("RABBITMQ_ENABLED", "true")
		t.Setenv("RABBITMQ_URL", "")
		_, err := LoadConfig(envFile)
		assert.ErrorContains(t, err, "RABBITMQ_URL")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "sqlite")
		_, err := LoadConfig(envFile)
		assert.Error(t, err)
	})
}

func TestLoadConfig_MissingExplicitEnvFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestLoadSearchConfig(t *testing.T) {
	path := writeFile(t, "search.yaml", `
order: newest
operators: [eq, range]
max_page_size: 50
`)
	cfg, err := LoadSearchConfig(path)
	require.NoError(t, err)

	assert.Equal(t, domain.SortByNewest, cfg.Order)
	assert.Equal(t, []domain.FilterOperator{domain.OperatorEquals, domain.OperatorRange}, cfg.Operators)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, 50, cfg.MaxPageSize)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoadSearchConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown order":    "order: cheapest\n",
		"unknown key":      "ranking: rating_desc\n",
		"default over max": "default_page_size: 200\nmax_page_size: 100\n",
		"no workers":       "workers: 0\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSearchConfig(writeFile(t, "search.yaml", content))
			assert.Error(t, err)
		})
	}

	_, err := LoadSearchConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadSearchConfig_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadSearchConfig(writeFile(t, "search.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchConfig(), *cfg)
}

func TestLoadSearchConfig_SampleFile(t *testing.T) {
	cfg, err := LoadSearchConfig("../../config/search.yaml")
	require.NoError(t, err)
	assert.Equal(t, domain.SortByRatingDesc, cfg.Order)
	assert.Len(t, cfg.Operators, 8)
}
