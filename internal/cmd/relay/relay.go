// Package relay wires configuration and lifecycle for the relay server
// binary.
package relay

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/dxcis/loanwd/internal/platform/otel"
	relaysvc "github.com/dxcis/loanwd/internal/relay"
)

// Config holds relay command configuration.
type Config struct {
	Addr string
	Mode string
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config. Flags override environment values.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		Addr: envOrDefault(lookup, []string{"LOANWD_RELAY_ADDR"}, "localhost:8080"),
		Mode: envOrDefault(lookup, []string{"LOANWD_RELAY_MODE"}, "production"),
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The relay HTTP listen address")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Relay mode: production or development")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the relay server.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "loanwd-relay")
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	serverCfg, err := relaysvc.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	serverCfg.Addr = cfg.Addr
	serverCfg.Mode = cfg.Mode

	if !serverCfg.Development() {
		if missing := serverCfg.MissingSecrets(); len(missing) > 0 {
			// The relay still starts so the endpoints can answer with a
			// generic configuration error; the detail stays in the logs.
			log.Printf("missing required server environment variables: %s", strings.Join(missing, ", "))
		}
	}

	return relaysvc.Run(ctx, serverCfg)
}

func envOrDefault(lookup EnvLookup, keys []string, fallback string) string {
	for _, key := range keys {
		if lookup == nil {
			break
		}
		value, ok := lookup(key)
		if ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return fallback
}
