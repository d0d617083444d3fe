package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	HttpServer ServerConfig
	Postgres   PostgresConfig
	Upstream   UpstreamConfig
	Search     SearchConfig
	Cart       CartConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName   string `envconfig:"POSTGRES_DBNAME" required:"true"`
}

// UpstreamConfig holds the two catalog source endpoints. Both return JSON: a
// list of Product records and a list of category name strings.
type UpstreamConfig struct {
	ProductsURL   string        `envconfig:"UPSTREAM_PRODUCTS_URL" default:"https://fakestoreapi.com/products"`
	CategoriesURL string        `envconfig:"UPSTREAM_CATEGORIES_URL" default:"https://fakestoreapi.com/products/categories"`
	Timeout       time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
}

// SearchConfig holds the search pipeline settings.
type SearchConfig struct {
	DebounceInterval time.Duration `envconfig:"SEARCH_DEBOUNCE_INTERVAL" default:"250ms"`
}

// CartConfig holds the cart retention settings.
type CartConfig struct {
	Retention   time.Duration `envconfig:"CART_RETENTION" default:"720h"`
	CleanupSpec string        `envconfig:"CART_CLEANUP_SPEC" default:"0 0 * * * *"` // hourly, with seconds field
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	return &cfg, nil
}
