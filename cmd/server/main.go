package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qolzam/telar/apps/engagement/internal/pkg/log"
	platformconfig "github.com/qolzam/telar/apps/engagement/internal/platform/config"
)

func main() {
	if err := run(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load platform config: %w", err)
	}
	log.Info("Engagement ledger starting with %s store, owner lookups enabled: %t", cfg.Store.Backend, cfg.OwnerLookupEnabled())
	log.InfoStruct(cfg.Likes, cfg.RateLimits)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open dependencies: %w", err)
	}
	defer deps.Close()

	app := newApp(cfg, deps)

	listenErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("Starting engagement ledger on %s", addr)
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down, draining requests for up to %s", cfg.Server.ShutdownTimeout)
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
