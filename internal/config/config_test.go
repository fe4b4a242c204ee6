package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Placement.DefaultTotalQuestions != 20 {
		t.Errorf("DefaultTotalQuestions = %d, want 20", cfg.Placement.DefaultTotalQuestions)
	}
	if cfg.Placement.DefaultTimeLimitMinutes != 20 {
		t.Errorf("DefaultTimeLimitMinutes = %d, want 20", cfg.Placement.DefaultTimeLimitMinutes)
	}
	if cfg.RabbitMQ.Exchange != "placement.events" {
		t.Errorf("Exchange = %q, want placement.events", cfg.RabbitMQ.Exchange)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLACEMENT_TOTAL_QUESTIONS", "12")
	t.Setenv("USAGE_FLUSH_INTERVAL", "30s")
	t.Setenv("READ_TIMEOUT", "7")
	t.Setenv("MONGODB_POOL_SIZE", "25")
	t.Setenv("CONSUL_ENABLED", "false")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://localhost:3000, https://app.example.com ,")

	cfg := Load()

	if cfg.Placement.DefaultTotalQuestions != 12 {
		t.Errorf("DefaultTotalQuestions = %d, want 12", cfg.Placement.DefaultTotalQuestions)
	}
	if cfg.Placement.UsageFlushInterval != 30*time.Second {
		t.Errorf("UsageFlushInterval = %v, want 30s", cfg.Placement.UsageFlushInterval)
	}
	if cfg.Server.ReadTimeout != 7*time.Second {
		t.Errorf("ReadTimeout = %v, want 7s", cfg.Server.ReadTimeout)
	}
	if cfg.MongoDB.PoolSize != 25 {
		t.Errorf("PoolSize = %d, want 25", cfg.MongoDB.PoolSize)
	}
	if cfg.Consul.Enabled {
		t.Error("expected consul to be disabled")
	}
	want := []string{"http://localhost:3000", "https://app.example.com"}
	if len(cfg.Server.AllowOrigins) != len(want) {
		t.Fatalf("AllowOrigins = %v, want %v", cfg.Server.AllowOrigins, want)
	}
	for i := range want {
		if cfg.Server.AllowOrigins[i] != want[i] {
			t.Errorf("AllowOrigins[%d] = %q, want %q", i, cfg.Server.AllowOrigins[i], want[i])
		}
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PLACEMENT_TOTAL_QUESTIONS", "many")
	t.Setenv("MONGODB_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Placement.DefaultTotalQuestions != 20 {
		t.Errorf("DefaultTotalQuestions = %d, want fallback 20", cfg.Placement.DefaultTotalQuestions)
	}
	if cfg.MongoDB.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want fallback 10s", cfg.MongoDB.Timeout)
	}
}
