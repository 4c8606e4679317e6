// Package relay implements the server-side trust boundary between the
// browser-facing application and the record system.
//
// In production mode it hosts the credential relay (password-grant exchange
// with server-held client secrets) and a generic API proxy endpoint. In
// development mode it is a transparent prefix-stripping reverse proxy, the
// local equivalent of the production relay without credential injection.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// Run serves the relay until the context ends.
func Run(ctx context.Context, cfg Config) error {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	server := NewServer(cfg)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	httpServer := &http.Server{Handler: WithRequestLog(mux)}

	log.Printf("relay server listening at %v (mode %s)", listener.Addr(), cfg.Mode)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		err := <-serveErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	}
}
