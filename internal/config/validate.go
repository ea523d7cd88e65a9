package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Credentials needed only by
// the poll loop are checked separately by ValidateLookup.
func (c *Config) Validate() error {
	if err := c.validatePoll(); err != nil {
		return err
	}
	if err := c.validateSlots(); err != nil {
		return err
	}
	return nil
}

// ValidateLookup reports whether the TMDB credentials needed to resolve
// now-playing titles are present.
func (c *Config) ValidateLookup() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/cinebot/config.toml"
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'cinebot config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePoll() error {
	return ensurePositiveMap(map[string]int{
		"poll.interval_seconds":                 c.Poll.IntervalSeconds,
		"state.lock_timeout_seconds":            c.State.LockTimeoutSeconds,
		"notifications.request_timeout_seconds": c.Notifications.RequestTimeoutSeconds,
	})
}

func (c *Config) validateSlots() error {
	start, end := c.Slots.DaytimeStartHour, c.Slots.DaytimeEndHour
	if start < 0 || start > 23 {
		return errors.New("slots.daytime_start_hour must be between 0 and 23")
	}
	if end < 1 || end > 24 {
		return errors.New("slots.daytime_end_hour must be between 1 and 24")
	}
	if end <= start {
		return errors.New("slots.daytime_end_hour must be greater than slots.daytime_start_hour")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
