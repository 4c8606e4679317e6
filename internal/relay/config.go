package relay

import (
	"fmt"

	"github.com/dxcis/loanwd/internal/platform/config"
)

// Config describes the relay server configuration.
//
// The three SN_* values are the server-held secrets for the production
// credential relay. Their names are logged when missing but never surfaced
// to callers.
type Config struct {
	Instance     string `env:"SN_INSTANCE"`
	ClientID     string `env:"SN_OAUTH_CLIENT_ID"`
	ClientSecret string `env:"SN_OAUTH_CLIENT_SECRET"`

	Addr          string `env:"LOANWD_RELAY_ADDR"           envDefault:"localhost:8080"`
	AllowedOrigin string `env:"LOANWD_RELAY_ALLOWED_ORIGIN" envDefault:"https://loan-withdrawal.vercel.app"`
	Mode          string `env:"LOANWD_RELAY_MODE"           envDefault:"production"`
}

// LoadConfigFromEnv loads relay configuration from environment variables.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("load relay config: %w", err)
	}
	return cfg, nil
}

// MissingSecrets returns the names of unset server-side secrets. Used for
// server-side logging only.
func (c Config) MissingSecrets() []string {
	var missing []string
	if c.Instance == "" {
		missing = append(missing, "SN_INSTANCE")
	}
	if c.ClientID == "" {
		missing = append(missing, "SN_OAUTH_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "SN_OAUTH_CLIENT_SECRET")
	}
	return missing
}

// Development reports whether the relay runs as the transparent local proxy.
func (c Config) Development() bool {
	return c.Mode == "development"
}
