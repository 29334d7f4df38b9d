// Package config loads server configuration from the environment.
//
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server settings.
type Config struct {
	Port                int
	DBPath              string
	LogLevel            string
	LogFormat           string
	ServiceName         string
	ExpirySweepInterval time.Duration
	CORSOrigins         []string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:                8080,
		DBPath:              "compliance.db",
		LogLevel:            "info",
		LogFormat:           "json",
		ServiceName:         "compliance-engine",
		ExpirySweepInterval: time.Hour,
		CORSOrigins:         []string{"http://localhost:5173", "http://localhost:8080"},
	}
}

// Load reads .env (if any) and then the environment over Default().
// The returned bool reports whether a .env file was loaded.
func Load() (Config, bool, error) {
	loaded := godotenv.Load() == nil
	cfg, err := FromEnv(os.Getenv)
	return cfg, loaded, err
}

// FromEnv builds a Config from a lookup function, so tests can supply a map.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := getenv("SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := getenv("EXPIRY_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return cfg, fmt.Errorf("invalid EXPIRY_SWEEP_INTERVAL %q", v)
		}
		cfg.ExpirySweepInterval = d
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
