// Package config loads the per-service TOML configuration files. Every
// service reads its own file from the working directory; a missing or
// malformed file is a startup error, not a warning.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ServerConfig configures the API server.
type ServerConfig struct {
	// AdminPassword authenticates the instance administrator.
	AdminPassword string `toml:"admin_password"`
	// DatabaseURL selects the backing store. postgres:// DSNs use
	// PostgreSQL, anything else is treated as a SQLite path.
	DatabaseURL string `toml:"database_url"`
	// Address is the listen address, host:port.
	Address string `toml:"address"`
	// SelfRegistration allows unauthenticated user sign-up.
	SelfRegistration bool `toml:"self_registration"`
	// APSelfRegistration allows unauthenticated action provider and
	// platform sign-up.
	APSelfRegistration bool `toml:"ap_self_registration"`
}

// SchedulerConfig configures the scheduler service.
type SchedulerConfig struct {
	AdminPassword string `toml:"admin_password"`
	// ServerURL is the base URL of the API server.
	ServerURL string `toml:"server_url"`
	// GarbageCollectionMinDays is the minimum tombstone age, in days,
	// before a row is hard-deleted.
	GarbageCollectionMinDays int `toml:"garbage_collection_min_days"`
}

// ProviderConfig configures an action provider service.
type ProviderConfig struct {
	// Password authenticates the provider against the API server.
	Password  string `toml:"password"`
	ServerURL string `toml:"server_url"`
}

const (
	serverFile    = "sport-log-server.toml"
	schedulerFile = "sport-log-scheduler.toml"
)

// LoadServer reads and validates the server configuration.
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{Address: "0.0.0.0:8000"}
	if err := load(serverFile, cfg); err != nil {
		return nil, err
	}
	if cfg.AdminPassword == "" {
		return nil, fmt.Errorf("%s: admin_password must be set", serverFile)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%s: database_url must be set", serverFile)
	}
	return cfg, nil
}

// LoadScheduler reads and validates the scheduler configuration.
func LoadScheduler() (*SchedulerConfig, error) {
	cfg := &SchedulerConfig{GarbageCollectionMinDays: 14}
	if err := load(schedulerFile, cfg); err != nil {
		return nil, err
	}
	if cfg.AdminPassword == "" {
		return nil, fmt.Errorf("%s: admin_password must be set", schedulerFile)
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%s: server_url must be set", schedulerFile)
	}
	return cfg, nil
}

// LoadProvider reads and validates an action provider configuration from the
// given file.
func LoadProvider(file string) (*ProviderConfig, error) {
	cfg := &ProviderConfig{}
	if err := load(file, cfg); err != nil {
		return nil, err
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("%s: password must be set", file)
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%s: server_url must be set", file)
	}
	return cfg, nil
}

func load(file string, dest any) error {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found", file)
		}
		return fmt.Errorf("read %s: %w", file, err)
	}
	if err := toml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}
