// config/config.go
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is everything the service reads from the environment at startup.
type Config struct {
	Port             string   `env:"PORT" envDefault:"5200"`
	GameServiceToken string   `env:"GAME_SERVICE_TOKEN,notEmpty"`
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	StoreDriver           string        `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabaseURL           string        `env:"DATABASE_URL"`
	SQLitePath            string        `env:"SQLITE_PATH" envDefault:"./daily-quest.db"`
	TxMaxAttempts         int           `env:"TX_MAX_ATTEMPTS" envDefault:"5"`
	SubscribePollInterval time.Duration `env:"SUBSCRIBE_POLL_INTERVAL" envDefault:"2s"`

	// AtomicCompletion folds the XP award and the task deletion into one
	// transaction. When false, the task is deleted after the award commits.
	AtomicCompletion bool `env:"ATOMIC_COMPLETION" envDefault:"true"`

	DailyTasksCron string   `env:"DAILY_TASKS_CRON" envDefault:"0 0 * * *"`
	DailyTasks     []string `env:"DAILY_TASKS" envSeparator:";" envDefault:"Ler 20 páginas:30;Exercício físico:50;Revisar flashcards:20"`

	BackupInterval    time.Duration `env:"BACKUP_INTERVAL" envDefault:"0"`
	R2AccountID       string        `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID     string        `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string        `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket          string        `env:"R2_BUCKET_NAME"`
	CDNBaseURL        string        `env:"CDN_BASE_URL"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return Parse()
}

// Parse parses the current environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1, got %d", c.TxMaxAttempts)
	}
	for i, origin := range c.AllowedOrigins {
		c.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	return nil
}

// BackupsEnabled reports whether profile snapshots should be shipped to R2.
func (c Config) BackupsEnabled() bool {
	return c.BackupInterval > 0 && c.R2Bucket != ""
}
