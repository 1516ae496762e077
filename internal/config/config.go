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
	Bank struct {
		TTL string `yaml:"ttl"`
	} `yaml:"bank"`
	Engine struct {
		AnswerWindow  string `yaml:"answerWindow"`
		SweepInterval string `yaml:"sweepInterval"`
		SnapshotTTL   string `yaml:"snapshotTtl"`
		MaxPlayers    int    `yaml:"maxPlayers"`
	} `yaml:"engine"`
	Validation struct {
		FuzzyThreshold float64 `yaml:"fuzzyThreshold"`
		AI             struct {
			Enabled bool   `yaml:"enabled"`
			URL     string `yaml:"url"`
			Timeout string `yaml:"timeout"`
		} `yaml:"ai"`
	} `yaml:"validation"`
}

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
	return cfg, nil
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
