package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"goblin/internal/config"
	"goblin/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// run starts the reconciler's file watcher, the router and gateway
// server's background sync loops, and the configured front-side
// transport, then blocks. SIGHUP triggers a config reload in place;
// SIGINT/SIGTERM and admin POST /shutdown trigger graceful shutdown
// (spec.md §6).
func run(parent context.Context, cfg *Config, s *Services) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s.Gateway.SetShutdownFunc(cancel)

	if err := s.Reconciler.Start(); err != nil {
		return err
	}
	defer func() {
		if err := s.Reconciler.Stop(); err != nil {
			logging.Warn("App", "stopping config watcher: %v", err)
		}
	}()

	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(hupCh)
	go watchSIGHUP(ctx, hupCh, s)

	go watchReconciler(ctx, s)
	go s.Router.Run(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Gateway.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return serveFrontend(gctx, cfg, s)
	})

	logging.Info("App", "goblin gateway running (transport=%s)", cfg.Transport)
	err := g.Wait()
	for _, spec := range s.Reconciler.Current().Config.Servers {
		s.Pool.ApplyEvent(context.Background(), config.ServerEvent{Kind: config.EventRemoved, Spec: spec})
	}
	logging.Info("App", "goblin gateway shut down")
	return err
}

func watchSIGHUP(ctx context.Context, ch <-chan os.Signal, s *Services) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			logging.Info("App", "SIGHUP received, reloading config")
			s.Reconciler.Reload()
		}
	}
}

func serveFrontend(ctx context.Context, cfg *Config, s *Services) error {
	snap := s.Reconciler.Current()
	host := cfg.Host
	if host == "" {
		host = snap.Config.Gateway.Host
	}
	port := cfg.Port
	if port == 0 {
		port = snap.Config.Gateway.Port
	}

	switch cfg.Transport {
	case "stdio":
		return s.Gateway.ServeStdio(ctx)
	case "", "http":
		sse := snap.Config.StreamableHTTP != nil && snap.Config.StreamableHTTP.SSEEnabled
		return s.Gateway.ServeHTTP(ctx, host, port, sse)
	default:
		logging.Warn("App", "unknown transport %q, defaulting to http", cfg.Transport)
		return s.Gateway.ServeHTTP(ctx, host, port, false)
	}
}
