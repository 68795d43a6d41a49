package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config captures the settings shared by the CLI commands.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	// GoogleCalendarIDs is empty when every calendar of each account should be synced.
	GoogleCalendarIDs []string

	ICloudUsername     string
	ICloudPassword     string
	ICloudCalendarName string

	Location    *time.Location
	LogLevel    string
	StateFile   string
	SyncDays    int
	MetricsAddr string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCalendarIDs:  splitList(os.Getenv("GOOGLE_CALENDAR_IDS")),
		ICloudUsername:     os.Getenv("ICLOUD_USERNAME"),
		ICloudPassword:     os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"),
		ICloudCalendarName: os.Getenv("ICLOUD_CALENDAR_NAME"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		StateFile:          envOr("SYNC_STATE_FILE", "sync-state.json"),
		MetricsAddr:        os.Getenv("METRICS_ADDR"),
		SyncDays:           7,
	}

	tz := envOr("PRIMARY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone '%s': %w", tz, err)
	}
	cfg.Location = loc

	if v := os.Getenv("SYNC_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return Config{}, fmt.Errorf("SYNC_DAYS must be a positive integer, got %q", v)
		}
		cfg.SyncDays = days
	}

	return cfg, nil
}

// ValidateICloud reports missing iCloud credentials.
func (c Config) ValidateICloud() error {
	var missing []string
	if c.ICloudUsername == "" {
		missing = append(missing, "ICLOUD_USERNAME")
	}
	if c.ICloudPassword == "" {
		missing = append(missing, "ICLOUD_APP_SPECIFIC_PASSWORD")
	}
	if c.ICloudCalendarName == "" {
		missing = append(missing, "ICLOUD_CALENDAR_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
