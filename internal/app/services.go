package app

import (
	"context"
	"time"

	"goblin/internal/config"
	"goblin/internal/gatewayserver"
	"goblin/internal/pool"
	"goblin/internal/registry"
	"goblin/internal/router"
	"goblin/pkg/logging"
)

// Services holds every long-lived component wired together by
// InitializeServices, in dependency order: reconciler feeds the pool and
// registry, the pool and registry feed the router, the router feeds the
// gateway server.
type Services struct {
	Reconciler *config.Reconciler
	Registry   *registry.Registry
	Pool       *pool.Pool
	Router     *router.Router
	Gateway    *gatewayserver.Server
}

// InitializeServices loads the backend configuration document and
// constructs every core component. It does not start background loops or
// open any listener; Application.Run does that.
func InitializeServices(cfg *Config) (*Services, error) {
	path := cfg.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}

	reconciler, err := config.NewReconciler(path)
	if err != nil {
		return nil, err
	}

	snap := reconciler.Current()
	grace := time.Duration(config.DefaultRegistryGraceMs) * time.Millisecond
	reg := registry.New(grace, cfg.Yolo || snap.Config.Policies.Yolo)
	reg.SetAliases(toRegistryAliases(snap.Config.Aliases))

	defaultTimeout := time.Duration(snap.Config.Policies.DefaultTimeoutMs) * time.Millisecond
	p := pool.New(reg, defaultTimeout)

	rt := router.New(reg, p, snap.Config.Policies.OutputSizeLimit, defaultTimeout)

	gw := gatewayserver.New(reg, rt, p, snap.Config.StreamableHTTP)

	return &Services{
		Reconciler: reconciler,
		Registry:   reg,
		Pool:       p,
		Router:     rt,
		Gateway:    gw,
	}, nil
}

func toRegistryAliases(aliases []config.Alias) []registry.Alias {
	out := make([]registry.Alias, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, registry.Alias{Name: a.Name, ServerName: a.ServerName, LocalName: a.LocalName})
	}
	return out
}

// applyInitialServers feeds the current snapshot's server specs into the
// pool as a synthetic "all added" diff, the same path a reload's Diff
// output takes.
func applyInitialServers(ctx context.Context, s *Services, cfg *config.Config) {
	for _, spec := range cfg.Servers {
		s.Pool.ApplyEvent(ctx, config.ServerEvent{Kind: config.EventAdded, Spec: spec})
	}
}

// watchReconciler applies every reconcile event's server diff to the pool
// until ctx is done, logging reload failures per spec.md §4.1 scenario 3
// ("Invalid reload" retains the previous snapshot and keeps running).
func watchReconciler(ctx context.Context, s *Services) {
	events := s.Reconciler.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Err != nil {
				logging.Warn("App", "config reload rejected: %v", ev.Err)
				continue
			}
			s.Registry.SetAliases(toRegistryAliases(ev.Snapshot.Config.Aliases))
			for _, se := range ev.ServerEvents {
				s.Pool.ApplyEvent(ctx, se)
			}
		}
	}
}
