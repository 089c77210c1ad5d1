package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goblin/internal/config"
	"goblin/internal/gatewayerr"
	"goblin/internal/mcpclient"
	"goblin/internal/metrics"
	"goblin/internal/registry"
	"goblin/internal/transport"
	"goblin/pkg/logging"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"
)

const (
	healthProbeInterval = 15 * time.Second
	clientName          = "goblin"
	clientVersion       = "0.1.0"
)

// Pool is the connection pool / lifecycle manager (component D). One
// Backend exists per configured ServerSpec; the registry only ever holds
// backend names, never Backend pointers, per spec.md §3's "weak
// reference" ownership rule.
type Pool struct {
	mu       sync.RWMutex
	backends map[string]*Backend

	registry         *registry.Registry
	defaultTimeout   time.Duration
	circuitThreshold int

	sf singleflight.Group

	resourceUpdates chan ResourceUpdate
}

// ResourceUpdate is published whenever a backend emits
// notifications/resources/updated, for the gateway server to multiplex to
// subscribed sessions (spec.md §4.5's resolved Open Question).
type ResourceUpdate struct {
	ServerName string
	URI        string
}

// New builds a Pool bound to reg. defaultTimeout is used for every
// backend call that doesn't carry its own deadline.
func New(reg *registry.Registry, defaultTimeout time.Duration) *Pool {
	return &Pool{
		backends:         make(map[string]*Backend),
		registry:         reg,
		defaultTimeout:   defaultTimeout,
		circuitThreshold: config.DefaultCircuitBreakerN,
		resourceUpdates:  make(chan ResourceUpdate, 256),
	}
}

// ResourceUpdates returns the channel of backend resource-update events.
func (p *Pool) ResourceUpdates() <-chan ResourceUpdate { return p.resourceUpdates }

// ApplyEvent applies one ordered config.ServerEvent, per spec.md §4.1:
// removed servers are evicted, added servers are introduced, and modified
// servers are handled as remove-then-add to avoid partial-update
// anomalies.
func (p *Pool) ApplyEvent(ctx context.Context, ev config.ServerEvent) {
	switch ev.Kind {
	case config.EventRemoved:
		p.evict(ev.Spec.Name)
	case config.EventModified:
		p.evict(ev.Spec.Name)
		p.add(ctx, ev.Spec)
	case config.EventAdded:
		p.add(ctx, ev.Spec)
	}
}

func (p *Pool) add(ctx context.Context, spec config.ServerSpec) {
	b := newBackend(spec)
	p.mu.Lock()
	p.backends[spec.Name] = b
	p.mu.Unlock()

	if !spec.Enabled {
		logging.Info("Pool", "%s: disabled in config, skipping", spec.Name)
		return
	}

	switch spec.Mode {
	case config.ModeStateless:
		// No background connection loop. The first Acquire connects; that
		// client is then kept and returned by later Acquire calls, and it
		// is not closed after each call.
	case config.ModeSmart:
		go p.runSmart(ctx, b)
	default: // stateful
		go p.runStateful(ctx, b)
	}
}

func (p *Pool) evict(name string) {
	p.mu.Lock()
	b, ok := p.backends[name]
	delete(p.backends, name)
	p.mu.Unlock()
	if !ok {
		return
	}
	b.setState(StateEvicted)
	close(b.stopCh)
	client, _ := b.clearClient()
	if client != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Pool", "%s: error during shutdown: %v", name, err)
		}
	}
	p.registry.Evict(name)
	metrics.RegistryChurn.WithLabelValues("evicted").Inc()
}

func (p *Pool) get(name string) (*Backend, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, ok := p.backends[name]
	return b, ok
}

// Acquire returns a ready backend client, or BackendUnavailable. Acquire
// guarantees at most one concurrent reconnect per backend via a
// single-flight guard, per spec.md §4.4.
func (p *Pool) Acquire(ctx context.Context, name string) (*mcpclient.Client, error) {
	b, ok := p.get(name)
	if !ok {
		return nil, gatewayerr.BackendUnavailable("backend %q not configured", name)
	}

	state, _ := b.snapshot()
	switch state {
	case StateReady:
		b.mu.Lock()
		c := b.Client
		if c != nil {
			b.LastActivity = time.Now()
		}
		b.mu.Unlock()
		if c != nil {
			return c, nil
		}
	case StateDegraded:
		return nil, gatewayerr.BackendUnavailable("backend %q circuit open", name)
	case StateEvicted:
		return nil, gatewayerr.BackendUnavailable("backend %q evicted", name)
	}

	if b.Spec.Mode == config.ModeStateless {
		return p.connectOnce(ctx, b)
	}

	// Stateful/Smart: at most one reconnect in flight.
	v, err, _ := p.sf.Do(name, func() (interface{}, error) {
		return p.connectOnce(ctx, b)
	})
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindBackendUnavailable, err, "acquire %s", name)
	}
	return v.(*mcpclient.Client), nil
}

func (p *Pool) connectOnce(ctx context.Context, b *Backend) (*mcpclient.Client, error) {
	tr, err := newTransport(b.Spec)
	if err != nil {
		return nil, err
	}
	c := mcpclient.New(b.Spec.Name, tr, p.defaultTimeout)
	if err := c.Initialize(ctx, clientName, clientVersion); err != nil {
		b.recordFailure(p.circuitThreshold)
		metrics.BackendFailures.WithLabelValues(b.Spec.Name).Inc()
		return nil, err
	}

	done := make(chan struct{})
	oldClient, oldDone := b.setClient(c, done)
	b.mu.Lock()
	b.ServerInfo = c.ServerInfo()
	b.Capabilities = c.Capabilities()
	b.mu.Unlock()
	b.recordSuccess()
	p.shutdownSuperseded(b.Spec.Name, oldClient, oldDone)

	if err := p.refreshCapabilities(ctx, b, c); err != nil {
		logging.Warn("Pool", "%s: initial capability listing failed: %v", b.Spec.Name, err)
	}
	go p.pumpNotifications(b, c, done)

	return c, nil
}

// shutdownSuperseded stops a just-replaced client's notification pump and
// closes its transport. Safe to call with a nil client (nothing to do).
func (p *Pool) shutdownSuperseded(name string, client *mcpclient.Client, done chan struct{}) {
	if client == nil {
		return
	}
	if done != nil {
		close(done)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Pool", "%s: error shutting down superseded client: %v", name, err)
	}
}

func newTransport(spec config.ServerSpec) (transport.Transport, error) {
	switch spec.Transport {
	case config.TransportStdio:
		return transport.New(transport.KindStdio, transport.Config{Command: spec.Command, Args: spec.Args, Env: spec.Env})
	case config.TransportHTTP:
		return transport.New(transport.KindHTTP, transport.Config{URL: spec.URL, Headers: spec.Headers})
	case config.TransportSSE:
		return transport.New(transport.KindSSE, transport.Config{URL: spec.URL, Headers: spec.Headers})
	case config.TransportStreamableHTTP:
		return transport.New(transport.KindStreamableHTTP, transport.Config{URL: spec.URL, Headers: spec.Headers})
	default:
		return nil, fmt.Errorf("unknown transport %q", spec.Transport)
	}
}

func (p *Pool) refreshCapabilities(ctx context.Context, b *Backend, c *mcpclient.Client) error {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return err
	}

	promptList, err := c.ListPrompts(ctx)
	if err != nil {
		promptList = nil
	}
	resources, err := c.ListResources(ctx)
	if err != nil {
		resources = nil
	}
	templates, err := c.ListResourceTemplates(ctx)
	if err != nil {
		templates = nil
	}

	p.registry.UpdateBackend(b.Spec.Name, tools, promptList, resources, templates)
	metrics.RegistryChurn.WithLabelValues("refreshed").Inc()
	return nil
}

// pumpNotifications demuxes a backend's notification stream into registry
// refreshes (list_changed) and pool-level ResourceUpdate events. done is
// closed when this specific client is superseded or shut down; since
// mcpclient.Client never closes its own notification channel (its
// transport callback can still fire mid-teardown), selecting on done is
// the only way this goroutine ever exits for a superseded connection.
func (p *Pool) pumpNotifications(b *Backend, c *mcpclient.Client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-b.stopCh:
			return
		case n, ok := <-c.Notifications():
			if !ok {
				return
			}
			b.mu.Lock()
			b.LastActivity = time.Now()
			b.mu.Unlock()

			switch n.Kind {
			case mcpclient.ToolsListChanged, mcpclient.PromptsListChanged, mcpclient.ResourcesListChanged:
				ctx, cancel := context.WithTimeout(context.Background(), p.defaultTimeout)
				if err := p.refreshCapabilities(ctx, b, c); err != nil {
					logging.Warn("Pool", "%s: refresh after %s failed: %v", b.Spec.Name, n.Kind, err)
				}
				cancel()
			case mcpclient.ResourcesUpdated:
				select {
				case p.resourceUpdates <- ResourceUpdate{ServerName: b.Spec.Name, URI: n.URI}:
				default:
					logging.Warn("Pool", "%s: resource update queue full, dropping %s", b.Spec.Name, n.URI)
				}
			}
		}
	}
}

// runStateful keeps a connection open, reconnecting with exponential
// backoff on failure (initial 500ms, factor 1.5, cap 30s, unlimited
// retries unless Evicted), per spec.md §4.4.
func (p *Pool) runStateful(ctx context.Context, b *Backend) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.Multiplier = 1.5
	bo.MaxInterval = 30 * time.Second

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if _, err := p.connectOnce(ctx, b); err != nil {
			logging.Error("Pool:"+b.Spec.Name, err, "connect failed, retrying")
			wait := bo.NextBackOff()
			select {
			case <-time.After(wait):
				continue
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}

		bo.Reset()
		p.waitAndProbe(ctx, b)
	}
}

// waitAndProbe blocks until the connection fails or the backend is
// evicted, issuing periodic health probes (ping) meanwhile.
func (p *Pool) waitAndProbe(ctx context.Context, b *Backend) {
	ticker := time.NewTicker(healthProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			c := b.Client
			b.mu.Unlock()
			if c == nil {
				return
			}
			pingCtx, cancel := context.WithTimeout(ctx, p.defaultTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logging.Warn("Pool", "%s: health probe failed: %v", b.Spec.Name, err)
				metrics.BackendFailures.WithLabelValues(b.Spec.Name).Inc()
				opened := b.recordFailure(p.circuitThreshold)
				if opened {
					p.registry.MarkDeparted(b.Spec.Name)
					metrics.RegistryChurn.WithLabelValues("departed").Inc()
				}
				stale, staleDone := b.clearClient()
				p.shutdownSuperseded(b.Spec.Name, stale, staleDone)
				return
			}
			b.recordSuccess()
		}
	}
}

// runSmart keeps a connection open until idleTimeoutMs elapses with no
// activity, then disconnects and reconnects on demand (spec.md §4.4).
func (p *Pool) runSmart(ctx context.Context, b *Backend) {
	if _, err := p.connectOnce(ctx, b); err != nil {
		logging.Error("Pool:"+b.Spec.Name, err, "initial connect failed")
	}

	idleTimeout := time.Duration(b.Spec.IdleTimeoutMs) * time.Millisecond
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	ticker := time.NewTicker(idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			idle := time.Since(b.LastActivity)
			c := b.Client
			b.mu.Unlock()
			if c != nil && idle >= idleTimeout {
				logging.Debug("Pool", "%s: idle for %s, disconnecting (smart mode)", b.Spec.Name, idle)
				stale, staleDone := b.clearClient()
				p.shutdownSuperseded(b.Spec.Name, stale, staleDone)
				b.setState(StateDisconnected)
			}
		}
	}
}
