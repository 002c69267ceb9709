package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL     string `yaml:"ttl"`
		Shuffle bool   `yaml:"shuffle"`
	} `yaml:"questions"`
	Game struct {
		RoundsPerGame    int      `yaml:"roundsPerGame"`
		TimePerQuestion  int      `yaml:"timePerQuestion"`
		PointsPerCorrect int      `yaml:"pointsPerCorrect"`
		Roster           []string `yaml:"roster"`
		IdleTimeout      string   `yaml:"idleTimeout"`
		SweepSchedule    string   `yaml:"sweepSchedule"`
	} `yaml:"game"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Telemetry struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"telemetry"`
}

// DefaultRoster seats the family when no roster is configured.
var DefaultRoster = []string{"Mom", "Dad", "Sam", "Ava"}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Game.Roster) == 0 {
		c.Game.Roster = append([]string(nil), DefaultRoster...)
	}
	if c.Game.SweepSchedule == "" {
		c.Game.SweepSchedule = "@every 5m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
