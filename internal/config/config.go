package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/planner"
)

// LocalConfigName is the per-directory config file looked up from the working directory
const LocalConfigName = ".loadspike.toml"

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Spike         SpikeConfig         `toml:"spike"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
	Logging       LoggingConfig       `toml:"logging"`
	Schedule      ScheduleConfig      `toml:"schedule"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
}

// SpikeConfig bounds the randomized load targets
type SpikeConfig struct {
	MinIntensity         float64 `toml:"min_intensity"`
	MaxIntensity         float64 `toml:"max_intensity"`
	MinDurationSecs      int     `toml:"min_duration_secs"`
	MaxDurationSecs      int     `toml:"max_duration_secs"`
	MinMemoryPerWorkerMB int     `toml:"min_memory_per_worker_mb"`
	MaxMemoryWorkers     int     `toml:"max_memory_workers"`
	JoinGraceSecs        int     `toml:"join_grace_secs"`
	MemoryCeilingPercent float64 `toml:"memory_ceiling_percent"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds dashboard settings
type WebConfig struct {
	Port                  int    `toml:"port"`
	Host                  string `toml:"host"`
	TelemetryIntervalSecs int    `toml:"telemetry_interval_secs"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ScheduleConfig points at the recurring spike schedule
type ScheduleConfig struct {
	File string `toml:"file"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".loadspike", "runs.db"),
		},
		Spike: SpikeConfig{
			MinIntensity:         0.30,
			MaxIntensity:         0.50,
			MinDurationSecs:      300,
			MaxDurationSecs:      900,
			MinMemoryPerWorkerMB: 100,
			MaxMemoryWorkers:     4,
			JoinGraceSecs:        10,
			MemoryCeilingPercent: 90,
		},
		Notifications: NotificationsConfig{
			Desktop: false,
		},
		Web: WebConfig{
			Port:                  8000,
			Host:                  "127.0.0.1",
			TelemetryIntervalSecs: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Schedule: ScheduleConfig{
			File: filepath.Join(home, ".config", "loadspike", "schedule.toml"),
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Expand paths
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.Schedule.File = ExpandPath(cfg.Schedule.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to a TOML file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the spike bounds and web settings
func (c *Config) Validate() error {
	if _, err := planner.New(c.Spike.Policy()); err != nil {
		return fmt.Errorf("spike: %w", err)
	}
	if c.Spike.JoinGraceSecs < 0 {
		return fmt.Errorf("spike: join_grace_secs must not be negative")
	}
	if c.Spike.MemoryCeilingPercent < 0 || c.Spike.MemoryCeilingPercent > 100 {
		return fmt.Errorf("spike: memory_ceiling_percent must be within [0, 100]")
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web: port %d out of range", c.Web.Port)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	return nil
}

// Policy converts the spike settings into planner bounds
func (s SpikeConfig) Policy() planner.Policy {
	return planner.Policy{
		MinIntensity:       s.MinIntensity,
		MaxIntensity:       s.MaxIntensity,
		MinDurationSecs:    s.MinDurationSecs,
		MaxDurationSecs:    s.MaxDurationSecs,
		MinMemoryPerWorker: uint64(s.MinMemoryPerWorkerMB) * domain.MiB,
		MaxMemoryWorkers:   s.MaxMemoryWorkers,
	}
}

// JoinGrace returns the join grace as a duration
func (s SpikeConfig) JoinGrace() time.Duration {
	return time.Duration(s.JoinGraceSecs) * time.Second
}

// TelemetryInterval returns the dashboard push interval
func (w WebConfig) TelemetryInterval() time.Duration {
	if w.TelemetryIntervalSecs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(w.TelemetryIntervalSecs) * time.Second
}

// Addr returns host:port for the web server
func (w WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "loadspike", "config.toml")
}

// LoadWithLocalFallback loads the explicit path if given, otherwise the nearest
// local config, otherwise the default config path
func LoadWithLocalFallback(explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	if local := FindLocalConfig(); local != "" {
		return Load(local)
	}
	return Load(DefaultConfigPath())
}

// FindLocalConfig walks up from the working directory looking for LocalConfigName.
// Returns "" when none is found.
func FindLocalConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
