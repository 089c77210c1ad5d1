// Package app wires the gateway's core components (config reconciler,
// pool, registry, router, gateway server) into a runnable process and
// owns the process's signal handling, mirroring the teacher's two-phase
// bootstrap/run split in its own internal/app package.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"goblin/pkg/logging"
)

// Application is a fully wired, not-yet-running goblin gateway process.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads the backend config document, builds every core
// component, and seeds the pool with the initial server set, which starts
// the connection loops of stateful and smart backends. It does not start
// the config watcher or the sync loops, and does not open a listener.
func NewApplication(cfg *Config) (*Application, error) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	var out io.Writer = os.Stderr
	logging.InitForCLI(level, out)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "failed to initialize services")
		return nil, fmt.Errorf("initialize services: %w", err)
	}

	applyInitialServers(context.Background(), services, services.Reconciler.Current().Config)

	return &Application{config: cfg, services: services}, nil
}

// Run starts every background loop, opens the configured front-side
// transport, and blocks until ctx is cancelled or a fatal transport error
// occurs.
func (a *Application) Run(ctx context.Context) error {
	return run(ctx, a.config, a.services)
}
