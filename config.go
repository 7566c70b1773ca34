package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the server runtime configuration. Values load from
// ctrlos.yml when present, then environment variables override.
type Config struct {
	Port           int    `yaml:"port"`
	DBPath         string `yaml:"db_path"`
	SessionTTLMins int    `yaml:"session_ttl_minutes"`
	SeedOnStart    bool   `yaml:"seed_on_start"`
}

func defaultConfig() Config {
	return Config{
		Port:           8133,
		DBPath:         "./ctrlos.db",
		SessionTTLMins: 480,
		SeedOnStart:    true,
	}
}

func loadConfig(path string) Config {
	// .env is optional, useful in development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Skipping .env: %v", err)
	}

	cfg := defaultConfig()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Printf("Invalid config file %s, using defaults: %v", path, err)
			cfg = defaultConfig()
		}
	}

	if v := os.Getenv("CTRLOS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("CTRLOS_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CTRLOS_SESSION_TTL"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			cfg.SessionTTLMins = m
		}
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = 8133
	}
	if cfg.SessionTTLMins <= 0 {
		cfg.SessionTTLMins = 480
	}
	return cfg
}
