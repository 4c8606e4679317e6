package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	relaycmd "github.com/dxcis/loanwd/internal/cmd/relay"
)

func main() {
	cfg, err := relaycmd.ParseConfig(flag.CommandLine, os.Args[1:], func(key string) (string, bool) {
		value, ok := os.LookupEnv(key)
		return value, ok
	})
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[RELAY] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := relaycmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
