package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("GAME_SERVICE_TOKEN", "secret")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "5200" {
		t.Fatalf("expected default port 5200, got %q", cfg.Port)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.StoreDriver)
	}
	if cfg.TxMaxAttempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", cfg.TxMaxAttempts)
	}
	if cfg.SubscribePollInterval != 2*time.Second {
		t.Fatalf("expected 2s poll interval, got %s", cfg.SubscribePollInterval)
	}
	if !cfg.AtomicCompletion {
		t.Fatal("expected atomic completion by default")
	}
	if len(cfg.DailyTasks) != 3 {
		t.Fatalf("expected 3 default daily tasks, got %v", cfg.DailyTasks)
	}
	if cfg.BackupsEnabled() {
		t.Fatal("backups should be disabled by default")
	}
}

func TestParseRequiresToken(t *testing.T) {
	t.Setenv("GAME_SERVICE_TOKEN", "")

	_, err := Parse()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
	t.Setenv("STORE_DRIVER", "mongo")

	if _, err := Parse(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestParsePostgresNeedsDatabaseURL(t *testing.T) {
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Parse(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/quests")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Fatalf("driver not normalized: %q", cfg.StoreDriver)
	}
}

func TestParseTrimsOrigins(t *testing.T) {
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := strings.Join(cfg.AllowedOrigins, ","); got != "http://a.test,http://b.test" {
		t.Fatalf("origins = %q", got)
	}
}
