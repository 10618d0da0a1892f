package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	return path
}

func TestLoadWithPath_Defaults(t *testing.T) {
	path := writeEnvFile(t, "APP_NAME=slots-test\n")

	cfg, err := LoadWithPath(path)
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}

	if cfg.App.Name != "slots-test" {
		t.Errorf("App.Name = %q, want slots-test", cfg.App.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Booking.DefaultPrice != 500 {
		t.Errorf("Booking.DefaultPrice = %d, want 500", cfg.Booking.DefaultPrice)
	}
	if cfg.Booking.CatalogCacheTTL != 5*time.Minute {
		t.Errorf("Booking.CatalogCacheTTL = %v, want 5m", cfg.Booking.CatalogCacheTTL)
	}
	if cfg.Kafka.SlotTopic != "slot-events" {
		t.Errorf("Kafka.SlotTopic = %q, want slot-events", cfg.Kafka.SlotTopic)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development environment by default")
	}
}

func TestLoadWithPath_Overrides(t *testing.T) {
	path := writeEnvFile(t, `
SERVER_PORT=9090
KAFKA_BROKERS=k1:9092, k2:9092
BOOKING_TIMEZONE=Asia/Bangkok
BOOKING_DEFAULT_PRICE=650
`)

	cfg, err := LoadWithPath(path)
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Booking.DefaultPrice != 650 {
		t.Errorf("Booking.DefaultPrice = %d, want 650", cfg.Booking.DefaultPrice)
	}
	if got := cfg.Booking.Location().String(); got != "Asia/Bangkok" {
		t.Errorf("Booking.Location() = %s, want Asia/Bangkok", got)
	}
}

func TestLoadWithPath_MissingFile(t *testing.T) {
	if _, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Name: "slots", Environment: "development"},
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Host: "localhost", DBName: "slots_db"},
			JWT:      JWTConfig{Secret: "secret"},
			Booking:  BookingConfig{Timezone: "UTC", DefaultPrice: 500},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing app name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "missing database host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: true},
		{name: "missing jwt secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: true},
		{
			name: "default secret in production",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.JWT.Secret = defaultJWTSecret
			},
			wantErr: true,
		},
		{
			name: "header user in production",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.JWT.AllowHeaderUser = true
			},
			wantErr: true,
		},
		{name: "negative default price", mutate: func(c *Config) { c.Booking.DefaultPrice = -1 }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
