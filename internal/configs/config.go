package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type RESTConfig struct {
	Port           string
	AllowedOrigins []string
}

type StorageConfig struct {
	Driver      string // postgres | memory
	DatabaseURL string
	MaxConns    int32
	Timeout     time.Duration // per persistence call
	SeedPath    string        // JSON seed for the memory driver
}

// RabbitMQConfig - broker connection and consumer tuning.
type RabbitMQConfig struct {
	Enabled     bool
	URL         string
	MaxInFlight int
}

type CacheConfig struct {
	MemcachedHost string // remote level is off when empty
	TTL           time.Duration
	RemoteTTL     time.Duration
	MaxSize       int64
}

type BookingConfig struct {
	PendingTTL     time.Duration
	ExpirySchedule string
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Enabled bool
	Host    string
	Port    int
	Level   string
}

// AppConfig holds the whole application configuration.
type AppConfig struct {
	AppName      string
	Rest         RESTConfig
	Storage      StorageConfig
	RabbitMQ     RabbitMQConfig
	Cache        CacheConfig
	Booking      BookingConfig
	Search       SearchConfig
	StdoutLogger StdoutLogConfig
	FluentBit    FluentBitConfig
}

// LoadConfig reads an optional .env file and then the environment.
// A missing default .env is fine; an explicitly given path must exist.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
		if errors.Is(err, fs.ErrNotExist) {
			log.Println("Info: no .env file found, using process environment")
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not load .env file (path: %v): %w", envPath, err)
	}

	cfg := &AppConfig{}
	cfg.AppName = getEnvAsString("APP_NAME", "search-analytics-service")

	cfg.Rest.Port = getEnvAsString("PORT", "8080")
	cfg.Rest.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", nil)

	cfg.Storage.Driver = strings.ToLower(getEnvAsString("STORAGE_DRIVER", StorageDriverPostgres))
	cfg.Storage.Timeout = getEnvAsDuration("STORAGE_TIMEOUT", 3*time.Second)
	cfg.Storage.SeedPath = os.Getenv("SEED_PATH")
	switch cfg.Storage.Driver {
	case StorageDriverPostgres:
		cfg.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.Storage.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres driver")
		}
		cfg.Storage.MaxConns = int32(getEnvAsInt("DATABASE_MAX_CONNS", 10))
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q, expected %s or %s", cfg.Storage.Driver, StorageDriverPostgres, StorageDriverMemory)
	}

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", true)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL environment variable is required when RABBITMQ_ENABLED is true")
		}
		cfg.RabbitMQ.MaxInFlight = getEnvAsInt("RABBITMQ_MAX_IN_FLIGHT", 8)
	}

	cfg.Cache.MemcachedHost = os.Getenv("MEMCACHED_HOST")
	cfg.Cache.TTL = getEnvAsDuration("CACHE_TTL", time.Minute)
	cfg.Cache.RemoteTTL = getEnvAsDuration("CACHE_REMOTE_TTL", 5*time.Minute)
	cfg.Cache.MaxSize = int64(getEnvAsInt("CACHE_MAX_SIZE", 10000))

	cfg.Booking.PendingTTL = getEnvAsDuration("PENDING_BOOKING_TTL", 30*time.Minute)
	cfg.Booking.ExpirySchedule = getEnvAsString("PENDING_EXPIRY_SCHEDULE", "*/5 * * * *")
	if cfg.Booking.PendingTTL <= 0 {
		return nil, fmt.Errorf("PENDING_BOOKING_TTL must be positive")
	}

	search, err := LoadSearchConfig(os.Getenv("SEARCH_CONFIG_PATH"))
	if err != nil {
		return nil, err
	}
	cfg.Search = *search

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt falls back to the default and logs a warning when the value is not an int.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsDuration accepts Go durations ("30s", "5m").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return d
}

// getEnvAsList splits a comma separated value and drops empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
