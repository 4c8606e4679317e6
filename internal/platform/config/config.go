// Package config provides shared configuration helpers for service and CLI
// entry points.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
// It provides a consistent fatal-exit pattern for CLI entry points.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
