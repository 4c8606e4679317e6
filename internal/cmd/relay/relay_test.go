package relay

import (
	"flag"
	"testing"
)

func lookupFrom(env map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, lookupFrom(nil))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "localhost:8080" {
		t.Errorf("addr = %q, want localhost:8080", cfg.Addr)
	}
	if cfg.Mode != "production" {
		t.Errorf("mode = %q, want production", cfg.Mode)
	}
}

func TestParseConfigEnv(t *testing.T) {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, lookupFrom(map[string]string{
		"LOANWD_RELAY_ADDR": "0.0.0.0:9090",
		"LOANWD_RELAY_MODE": "development",
	}))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9090" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Mode != "development" {
		t.Errorf("mode = %q", cfg.Mode)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "localhost:7000", "-mode", "production"}, lookupFrom(map[string]string{
		"LOANWD_RELAY_ADDR": "0.0.0.0:9090",
		"LOANWD_RELAY_MODE": "development",
	}))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "localhost:7000" {
		t.Errorf("addr = %q, want flag value", cfg.Addr)
	}
	if cfg.Mode != "production" {
		t.Errorf("mode = %q, want flag value", cfg.Mode)
	}
}

func TestParseConfigBlankEnvFallsBack(t *testing.T) {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, lookupFrom(map[string]string{
		"LOANWD_RELAY_ADDR": "   ",
	}))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "localhost:8080" {
		t.Errorf("addr = %q, want default for blank env", cfg.Addr)
	}
}
