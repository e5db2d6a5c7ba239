package schedule

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// SpikeEntry is one recurring load spike
type SpikeEntry struct {
	Name    string `toml:"name"`
	Cron    string `toml:"cron"`
	Enabled *bool  `toml:"enabled"`
}

// IsEnabled reports whether the entry fires; entries are enabled unless set otherwise
func (e SpikeEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// Validate checks if the entry is valid
func (e SpikeEntry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("spike name is required")
	}
	if e.Cron == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := ParseCron(e.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// Config holds all recurring spike entries
type Config struct {
	Spikes []SpikeEntry `toml:"spike"`
}

// Validate checks every entry and rejects duplicate names
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Spikes))
	for i, e := range c.Spikes {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("spike %d: %w", i, err)
		}
		if seen[e.Name] {
			return fmt.Errorf("spike %d: duplicate name %q", i, e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

// LoadConfig loads the schedule from a TOML file. A missing file is an empty schedule.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing schedule %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
