// Package config resolves runtime settings from defaults, a YAML file, a
// .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultEndpoint = "http://localhost:8000/graphql/"

// Environment variable names.
const (
	EnvEndpoint = "TASKHQ_GRAPHQL_ENDPOINT"
	EnvBackend  = "TASKHQ_BACKEND_URL"
	EnvTimeout  = "TASKHQ_REQUEST_TIMEOUT"
	EnvLogFile  = "TASKHQ_LOG_FILE"
	EnvDataDir  = "TASKHQ_DATA_DIR"
)

type Config struct {
	GraphQLEndpoint string        `yaml:"graphql_endpoint"`
	BackendURL      string        `yaml:"backend_url"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	LogFile         string        `yaml:"log_file"`
	DataDir         string        `yaml:"data_dir"`
}

// Default returns the built-in settings. A zero RequestTimeout means no
// client-side timeout.
func Default() Config {
	return Config{GraphQLEndpoint: DefaultEndpoint}
}

// DefaultPath is $XDG_CONFIG_HOME/taskhq/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "taskhq", "config.yaml")
}

// Load builds a Config. An empty path means DefaultPath; a missing file at
// the default location is not an error, a missing explicit file is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return cfg, err
			}
		}
	}

	// .env never overrides variables already in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.GraphQLEndpoint = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.RequestTimeout = d
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	return nil
}

// Normalize fills derived values. Call it again after overriding fields.
func (c *Config) Normalize() {
	if c.GraphQLEndpoint == "" {
		c.GraphQLEndpoint = DefaultEndpoint
	}
	if c.BackendURL == "" {
		c.BackendURL = BackendFromEndpoint(c.GraphQLEndpoint)
	}
	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	if c.RequestTimeout < 0 {
		c.RequestTimeout = 0
	}
}

// BackendFromEndpoint strips a trailing /graphql or /graphql/.
func BackendFromEndpoint(endpoint string) string {
	base := strings.TrimRight(endpoint, "/")
	base = strings.TrimSuffix(base, "/graphql")
	return base
}
