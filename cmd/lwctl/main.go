package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	lwctlcmd "github.com/dxcis/loanwd/internal/cmd/lwctl"
)

func main() {
	log.SetPrefix("[LWCTL] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := lwctlcmd.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("%v", err)
	}
}
