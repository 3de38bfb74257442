package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Availability sources.
const (
	SourceDemo   = "demo"
	SourceICS    = "ics"
	SourceGoogle = "google"
	SourceCalDAV = "caldav"
)

type Config struct {
	Source            string
	ICSFile           string
	Timezone          string
	SelfEmail         string
	LogLevel          string
	LookupConcurrency int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleAccount      string

	CalDAVEndpoint  string
	CalDAVUsername  string
	CalDAVPassword  string
	CalDAVCalendars map[string]string // attendee email -> calendar name
}

// Load reads the configuration from the environment. Call godotenv.Load
// first to pick up a .env file.
func Load() (Config, error) {
	calendars, err := parseCalendarMap(os.Getenv("CALDAV_CALENDARS"))
	if err != nil {
		return Config{}, err
	}
	concurrency, err := getenvInt("SLOTFINDER_LOOKUP_CONCURRENCY", 4)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Source:            strings.ToLower(getenvDefault("SLOTFINDER_SOURCE", SourceDemo)),
		ICSFile:           strings.TrimSpace(os.Getenv("SLOTFINDER_ICS_FILE")),
		Timezone:          getenvDefault("PRIMARY_TIMEZONE", "Local"),
		SelfEmail:         strings.TrimSpace(os.Getenv("SLOTFINDER_SELF_EMAIL")),
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		LookupConcurrency: concurrency,

		GoogleClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		GoogleAccount:      strings.TrimSpace(os.Getenv("GOOGLE_ACCOUNT")),

		CalDAVEndpoint:  strings.TrimSpace(os.Getenv("CALDAV_ENDPOINT")),
		CalDAVUsername:  strings.TrimSpace(os.Getenv("ICLOUD_USERNAME")),
		CalDAVPassword:  strings.TrimSpace(os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD")),
		CalDAVCalendars: calendars,
	}
	return cfg, nil
}

// Validate checks that the selected source has what it needs.
func (c Config) Validate() error {
	switch c.Source {
	case SourceDemo, SourceGoogle:
	case SourceICS:
		if c.ICSFile == "" {
			return errors.New("SLOTFINDER_ICS_FILE is required when source=ics")
		}
	case SourceCalDAV:
		if c.CalDAVUsername == "" || c.CalDAVPassword == "" {
			return errors.New("ICLOUD_USERNAME and ICLOUD_APP_SPECIFIC_PASSWORD are required when source=caldav")
		}
		if len(c.CalDAVCalendars) == 0 {
			return errors.New("CALDAV_CALENDARS is required when source=caldav")
		}
	default:
		return fmt.Errorf("unknown availability source: %q", c.Source)
	}
	if c.LookupConcurrency <= 0 {
		return errors.New("lookup concurrency must be > 0")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

// parseCalendarMap reads "email=Calendar Name" pairs separated by commas.
func parseCalendarMap(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, name, ok := strings.Cut(pair, "=")
		email, name = strings.TrimSpace(email), strings.TrimSpace(name)
		if !ok || email == "" || name == "" {
			return nil, fmt.Errorf("invalid CALDAV_CALENDARS entry %q: expected email=Calendar Name", pair)
		}
		out[strings.ToLower(email)] = name
	}
	return out, nil
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
