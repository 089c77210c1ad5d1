package config

import "reflect"

// EventKind classifies one entry in a reconcile diff.
type EventKind string

const (
	EventRemoved  EventKind = "removed"
	EventModified EventKind = "modified"
	EventAdded    EventKind = "added"
)

// ServerEvent is one server-level change between two snapshots.
type ServerEvent struct {
	Kind EventKind
	Spec ServerSpec
}

// Diff computes the ordered event stream between prev and next, per
// spec.md §4.1: removed servers, then modified servers, then added
// servers. Modifications are always expressed as remove-then-add in the
// *caller's* application order (the pool applies EventModified by tearing
// down the old connection before establishing the new one) but are
// reported here as a single EventModified entry carrying the new spec, so
// subscribers see one event per logical change.
func Diff(prev, next *Config) []ServerEvent {
	prevByName := specsByName(prev)
	nextByName := specsByName(next)

	var removed, modified, added []ServerEvent

	for name, prevSpec := range prevByName {
		nextSpec, ok := nextByName[name]
		if !ok {
			removed = append(removed, ServerEvent{Kind: EventRemoved, Spec: prevSpec})
			continue
		}
		if !reflect.DeepEqual(prevSpec, nextSpec) {
			modified = append(modified, ServerEvent{Kind: EventModified, Spec: nextSpec})
		}
	}
	for name, nextSpec := range nextByName {
		if _, ok := prevByName[name]; !ok {
			added = append(added, ServerEvent{Kind: EventAdded, Spec: nextSpec})
		}
	}

	events := make([]ServerEvent, 0, len(removed)+len(modified)+len(added))
	events = append(events, removed...)
	events = append(events, modified...)
	events = append(events, added...)
	return events
}

func specsByName(c *Config) map[string]ServerSpec {
	m := make(map[string]ServerSpec)
	if c == nil {
		return m
	}
	for _, s := range c.Servers {
		m[s.Name] = s
	}
	return m
}
