// Package config loads front-end settings from the environment, an optional
// .env file and the .credentials file the web tool also reads.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// CredentialsFile is read from the working directory when present
const CredentialsFile = ".credentials"

// Config holds the settings shared by the CLI and the MCP server
type Config struct {
	Username    string `env:"CALIMOTO_USERNAME"`
	Password    string `env:"CALIMOTO_PASSWORD"`
	SessionFile string `env:"CALIMOTO_SESSION_FILE"`
	SentryDSN   string `env:"CALIMOTO_SENTRY_DSN"`
	LogLevel    string `env:"CALIMOTO_LOG_LEVEL" envDefault:"info"`
	OutputDir   string `env:"CALIMOTO_OUTPUT_DIR" envDefault:"."`
}

// credentials is the layout of the .credentials file
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Load reads dir/.env (if any) into the process environment, parses the
// environment and lets dir/.credentials override the username and password.
// An empty dir means the working directory.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	creds, err := readCredentials(filepath.Join(dir, CredentialsFile))
	if err != nil {
		return nil, err
	}
	if creds != nil {
		if creds.Email != "" {
			cfg.Username = creds.Email
		}
		if creds.Password != "" {
			cfg.Password = creds.Password
		}
	}

	cfg.SessionFile = ExpandPath(cfg.SessionFile)
	cfg.OutputDir = ExpandPath(cfg.OutputDir)

	return &cfg, nil
}

// HasCredentials reports whether both username and password are set
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

func readCredentials(path string) (*credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return &creds, nil
}

// ExpandPath resolves a leading "~/" against the home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
