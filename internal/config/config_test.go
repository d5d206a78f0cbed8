package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name  string
		check func(*Config) bool
	}{
		{"default mode is api", func(c *Config) bool { return c.Mode == "api" }},
		{"default app env is development", func(c *Config) bool { return c.AppEnv == "development" }},
		{"default port is 8080", func(c *Config) bool { return c.Port == 8080 }},
		{"default log format is json", func(c *Config) bool { return c.LogFormat == "json" }},
		{"default worker count is 8", func(c *Config) bool { return c.WorkerCount == 8 }},
		{"default backoff base is 2s", func(c *Config) bool { return c.BackoffBaseSec == 2 }},
		{"default backoff cap is 300s", func(c *Config) bool { return c.BackoffCapSec == 300 }},
		{"default lease timeout is 900s", func(c *Config) bool { return c.LeaseTimeoutSec == 900 }},
		{"default stale after is 300s", func(c *Config) bool { return c.StaleAfterSeconds == 300 }},
		{"default paper checkpoint target is 10", func(c *Config) bool { return c.PaperCheckpointTarget == 10 }},
		{"listen addr format", func(c *Config) bool { return c.ListenAddr() == "0.0.0.0:8080" }},
		{"not production by default", func(c *Config) bool { return !c.IsProduction() }},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("check failed for %s", tt.name)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{AppEnv: "production"}
	if !cfg.IsProduction() {
		t.Fatal("expected IsProduction() true when APP_ENV=production")
	}
}
