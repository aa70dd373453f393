package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
)

// envFiles are tried in order; the first that loads wins.
var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads environment variables from .env/.env.local files.
// Existing process environment variables are not overwritten.
func loadEnvFile() error {
	for _, envPath := range envFiles {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load %s: %w", envPath, err)
		}
		fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
		return nil
	}
	return fmt.Errorf("no .env file found")
}

// applyEnvOverrides sets fields from WATERTRACKER_* variables. Unset
// variables leave the YAML value in place.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "parse environment overrides")
	}
	return nil
}
