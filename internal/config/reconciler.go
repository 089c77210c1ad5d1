package config

import (
	"sync"
	"time"

	"goblin/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// ReconcileEvent is published to subscribers whenever a reload produces a
// new live snapshot (or a successful no-op reload of a byte-identical
// file, which produces a Snapshot with no ServerEvents).
type ReconcileEvent struct {
	Snapshot     *Snapshot
	ServerEvents []ServerEvent
	Err          error // set when a candidate reload failed validation
}

// subscriberQueueSize bounds each subscriber's fan-out channel. Overflow
// drops the oldest pending event, mirroring the teacher's capacity-1
// coalescing updateChan generalized to a small ring per subscriber.
const subscriberQueueSize = 8

// Reconciler watches a config file for changes, debounces rapid edits, and
// on each successful reload computes a diff and publishes an ordered event
// stream to subscribers (component A, spec.md §4.1).
type Reconciler struct {
	path string

	mu         sync.RWMutex
	current    *Snapshot
	generation uint64

	subMu       sync.Mutex
	subscribers []chan ReconcileEvent

	watcher     *fsnotify.Watcher
	debounce    time.Duration
	debounceMu  sync.Mutex
	debounceTmr *time.Timer

	stopCh chan struct{}
}

// NewReconciler loads the initial config at path and prepares (without
// starting) a file watcher.
func NewReconciler(path string) (*Reconciler, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		path:       path,
		current:    &Snapshot{Generation: 1, Config: cfg},
		generation: 1,
		debounce:   DefaultWatchDebounce,
		stopCh:     make(chan struct{}),
	}, nil
}

// Current returns the live snapshot.
func (r *Reconciler) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Subscribe returns a bounded channel of reconcile events. The channel is
// never closed by Stop; callers select on their own shutdown signal too.
func (r *Reconciler) Subscribe() <-chan ReconcileEvent {
	ch := make(chan ReconcileEvent, subscriberQueueSize)
	r.subMu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.subMu.Unlock()
	return ch
}

func (r *Reconciler) publish(ev ReconcileEvent) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// drop oldest, then enqueue
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Start begins watching the config file for changes. SIGHUP handling (an
// external signal requesting an immediate reload) is wired by
// internal/app, which calls Reload directly.
func (r *Reconciler) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	r.watcher = w
	if err := w.Add(r.path); err != nil {
		_ = w.Close()
		return err
	}

	go r.watchLoop()
	return nil
}

func (r *Reconciler) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			r.scheduleReload()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("ConfigReconciler", "watch error: %v", err)
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reconciler) scheduleReload() {
	r.debounceMu.Lock()
	defer r.debounceMu.Unlock()
	if r.debounceTmr != nil {
		r.debounceTmr.Stop()
	}
	r.debounceTmr = time.AfterFunc(r.debounce, func() {
		r.Reload()
	})
}

// Reload parses and validates the current file content. On success it
// computes a diff versus the live snapshot, swaps it in, and publishes an
// event; on failure the live snapshot is retained and a ReconcileEvent
// carrying Err is published (spec.md §4.1, scenario 3: "Invalid reload").
func (r *Reconciler) Reload() {
	cfg, err := Load(r.path)
	if err != nil {
		logging.Error("ConfigReconciler", err, "reload of %s failed, retaining previous snapshot", r.path)
		r.publish(ReconcileEvent{Snapshot: r.Current(), Err: err})
		return
	}

	r.mu.Lock()
	prevCfg := r.current.Config
	events := Diff(prevCfg, cfg)
	r.generation++
	next := &Snapshot{Generation: r.generation, Config: cfg}
	r.current = next
	r.mu.Unlock()

	if len(events) == 0 {
		logging.Debug("ConfigReconciler", "reload of %s produced no server changes", r.path)
	} else {
		logging.Info("ConfigReconciler", "reload of %s: %d removed/modified/added server events", r.path, len(events))
	}
	r.publish(ReconcileEvent{Snapshot: next, ServerEvents: events})
}

// Stop stops the file watcher. Subscriber channels are left open; the
// caller that owns each subscription is responsible for no longer reading
// from it once the reconciler is stopped.
func (r *Reconciler) Stop() error {
	close(r.stopCh)
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}
