package registry

import (
	"sync"
	"time"

	"goblin/internal/gatewayerr"
	"goblin/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// Alias maps an external capability name to a specific backend's local
// name (spec.md §4.5).
type Alias struct {
	Name       string
	ServerName string
	LocalName  string
}

type backendEntry struct {
	tools             []Card
	prompts           []Card
	resources         []Card
	resourceTemplates []Card
	ready             bool
	removedAt         time.Time // zero while ready
}

// Registry holds the union of capabilities across Ready backends. Readers
// (listing, routing) proceed concurrently; writers (backend add/remove,
// list_changed application) take the exclusive section, per spec.md §5.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]*backendEntry
	aliases  map[string]Alias // alias name -> target
	grace    time.Duration
	yolo     bool

	subMu       sync.Mutex
	subscribers []chan struct{}
}

// New builds a Registry. grace is the duration a departed backend's cards
// are retained as unavailable before eviction (default 5s, spec.md §4.5).
// yolo disables denylist blocking.
func New(grace time.Duration, yolo bool) *Registry {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Registry{
		backends: make(map[string]*backendEntry),
		aliases:  make(map[string]Alias),
		grace:    grace,
		yolo:     yolo,
	}
}

// SetAliases replaces the alias table wholesale (called after config
// validation already rejected any collision).
func (r *Registry) SetAliases(aliases []Alias) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[string]Alias, len(aliases))
	for _, a := range aliases {
		m[a.Name] = a
	}
	r.aliases = m
}

// UpdateBackend replaces serverName's cards with a fresh listing, e.g.
// after the initial handshake or a list_changed round-trip. Call sites
// outside the exclusive section (network I/O to refresh the listing)
// must happen before calling this, per spec.md §4.5's bounded-critical-
// section requirement.
func (r *Registry) UpdateBackend(serverName string, tools []mcp.Tool, prompts []mcp.Prompt, resources []mcp.Resource, templates []mcp.ResourceTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &backendEntry{ready: true}

	for _, t := range tools {
		entry.tools = append(entry.tools, Card{
			Kind:          KindTool,
			LocalName:     t.Name,
			QualifiedName: qualify(serverName, t.Name),
			ServerName:    serverName,
			Summary:       summarize(t.Description),
			Blocked:       !r.yolo && isDestructive(t.Name),
		})
	}
	for _, p := range prompts {
		entry.prompts = append(entry.prompts, Card{
			Kind:          KindPrompt,
			LocalName:     p.Name,
			QualifiedName: qualify(serverName, p.Name),
			ServerName:    serverName,
			Summary:       summarize(p.Description),
		})
	}
	for _, res := range resources {
		entry.resources = append(entry.resources, Card{
			Kind:          KindResource,
			LocalName:     res.URI,
			QualifiedName: res.URI,
			ServerName:    serverName,
			Summary:       summarize(res.Description),
		})
	}
	for _, rt := range templates {
		entry.resourceTemplates = append(entry.resourceTemplates, Card{
			Kind:          KindResourceTemplate,
			LocalName:     rt.URITemplate,
			QualifiedName: rt.URITemplate,
			ServerName:    serverName,
			Summary:       summarize(rt.Description),
		})
	}

	r.backends[serverName] = entry
	r.notifyLocked()
}

// MarkDeparted transitions serverName out of Ready. Its cards remain
// listed (but excluded from fresh listings after grace elapses) so
// transient flaps don't perturb clients, per spec.md §4.5.
func (r *Registry) MarkDeparted(serverName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.backends[serverName]
	if !ok {
		return
	}
	entry.ready = false
	entry.removedAt = time.Now()
	r.notifyLocked()
}

// Evict permanently removes serverName, e.g. on config removal.
func (r *Registry) Evict(serverName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backends, serverName)
	r.notifyLocked()
}

func (r *Registry) withinGrace(entry *backendEntry) bool {
	if entry.ready {
		return true
	}
	return time.Since(entry.removedAt) < r.grace
}

// ListTools returns all tool cards from Ready backends (plus departed
// ones still within their grace window). O(total items); never blocks on
// backend I/O per spec.md §4.5.
func (r *Registry) ListTools() []Card {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Card
	for _, entry := range r.backends {
		if !r.withinGrace(entry) {
			continue
		}
		out = append(out, entry.tools...)
	}
	return out
}

func (r *Registry) ListPrompts() []Card {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Card
	for _, entry := range r.backends {
		if !r.withinGrace(entry) {
			continue
		}
		out = append(out, entry.prompts...)
	}
	return out
}

// ListResources returns all resource cards. Collisions between backends
// (same URI) are resolved first-writer-wins with a warning; the loser is
// available only via an explicit serverName filter, per spec.md §4.5.
func (r *Registry) ListResources() []Card {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []Card
	for name, entry := range r.backends {
		if !r.withinGrace(entry) {
			continue
		}
		for _, res := range entry.resources {
			if seen[res.QualifiedName] {
				logging.Warn("Registry", "resource URI %s from %s shadowed by an earlier backend", res.QualifiedName, name)
				continue
			}
			seen[res.QualifiedName] = true
			out = append(out, res)
		}
	}
	return out
}

func (r *Registry) ListResourceTemplates() []Card {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Card
	for _, entry := range r.backends {
		if !r.withinGrace(entry) {
			continue
		}
		out = append(out, entry.resourceTemplates...)
	}
	return out
}

// Resolve translates a qualified name (or alias) into the owning server
// and local name. Aliases are consulted first.
func (r *Registry) Resolve(qualifiedName string) (serverName, localName string, kind Kind, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if alias, ok := r.aliases[qualifiedName]; ok {
		if _, k, ok := r.findLocked(alias.ServerName, alias.LocalName); ok {
			return alias.ServerName, alias.LocalName, k, nil
		}
		return "", "", "", gatewayerr.UnknownCapability("alias %q targets missing capability %s/%s", qualifiedName, alias.ServerName, alias.LocalName)
	}

	for name, entry := range r.backends {
		if !r.withinGrace(entry) {
			continue
		}
		for _, c := range entry.tools {
			if c.QualifiedName == qualifiedName {
				return name, c.LocalName, KindTool, nil
			}
		}
		for _, c := range entry.prompts {
			if c.QualifiedName == qualifiedName {
				return name, c.LocalName, KindPrompt, nil
			}
		}
		for _, c := range entry.resources {
			if c.QualifiedName == qualifiedName {
				return name, c.LocalName, KindResource, nil
			}
		}
	}
	return "", "", "", gatewayerr.UnknownCapability("no capability named %q", qualifiedName)
}

func (r *Registry) findLocked(serverName, localName string) (Card, Kind, bool) {
	entry, ok := r.backends[serverName]
	if !ok {
		return Card{}, "", false
	}
	for _, c := range entry.tools {
		if c.LocalName == localName {
			return c, KindTool, true
		}
	}
	for _, c := range entry.prompts {
		if c.LocalName == localName {
			return c, KindPrompt, true
		}
	}
	return Card{}, "", false
}

// Subscribe returns a capacity-1 coalescing channel signaling "something
// changed"; callers re-read via List*/Resolve rather than receiving a
// payload, mirroring the teacher's updateChan pattern in
// aggregator/registry.go.
func (r *Registry) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	r.subMu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.subMu.Unlock()
	return ch
}

func (r *Registry) notifyLocked() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ServerState reports whether serverName is currently Ready in the
// registry's view (used by the /servers admin endpoint).
func (r *Registry) ServerState(serverName string) (ready bool, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, exists := r.backends[serverName]
	if !exists {
		return false, false
	}
	return entry.ready, true
}
