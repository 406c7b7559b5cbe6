package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	BackendFixture = "fixture"
	BackendFile    = "file"
	BackendSQLite  = "sqlite"
	// BackendMemory is a mutable in-memory store seeded with the fixture.
	BackendMemory  = "memory"
)

type Config struct {
	// Address to listen on, e.g. ":8080".
	Listen string `yaml:"listen"`
	// Optional origin base URL. When set, catalog pages read /api/products over HTTP.
	Origin string `yaml:"origin"`
	// Client timeout for origin reads.
	OriginTimeout time.Duration `yaml:"originTimeout"`
	Backend       Backend       `yaml:"backend"`
}

// Backend is the store behind /api/products.
type Backend struct {
	Kind string `yaml:"kind"`
	// File path for the file and sqlite kinds.
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:        ":8080",
		OriginTimeout: 5 * time.Second,
		Backend:       Backend{Kind: BackendFixture},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(filename string) (Config, error) {
	config := Default()
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return config, fmt.Errorf("parse %s: %w", filename, err)
	}
	return config, config.Validate()
}

// Validate checks that the configuration can be used.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address missing")
	}
	switch c.Backend.Kind {
	case BackendFixture, BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Backend.Path == "" {
			return fmt.Errorf("backend %s needs a path", c.Backend.Kind)
		}
	default:
		return fmt.Errorf("unsupported backend kind %q", c.Backend.Kind)
	}
	if c.Origin != "" {
		u, err := url.Parse(c.Origin)
		if err != nil {
			return fmt.Errorf("origin: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("origin must be an http(s) URL, got %q", c.Origin)
		}
	}
	if c.OriginTimeout < 0 {
		return fmt.Errorf("originTimeout must not be negative")
	}
	return nil
}
