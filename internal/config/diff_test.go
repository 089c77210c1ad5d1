package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func server(name string, enabled bool) ServerSpec {
	return ServerSpec{Name: name, Transport: TransportStdio, Command: "/bin/true", Enabled: enabled, Mode: ModeStateful}
}

func TestDiffOrdersRemovedThenModifiedThenAdded(t *testing.T) {
	prev := &Config{Servers: []ServerSpec{server("gone", true), server("changed", true)}}
	next := &Config{Servers: []ServerSpec{server("changed", false), server("new", true)}}

	events := Diff(prev, next)
	require := assert.New(t)
	require.Len(events, 3)
	require.Equal(EventRemoved, events[0].Kind)
	require.Equal("gone", events[0].Spec.Name)
	require.Equal(EventModified, events[1].Kind)
	require.Equal("changed", events[1].Spec.Name)
	require.Equal(EventAdded, events[2].Kind)
	require.Equal("new", events[2].Spec.Name)
}

func TestDiffIdenticalConfigProducesNoEvents(t *testing.T) {
	cfg := &Config{Servers: []ServerSpec{server("s1", true)}}
	events := Diff(cfg, cfg)
	assert.Empty(t, events)
}

func TestDiffEmptyToEmpty(t *testing.T) {
	assert.Empty(t, Diff(&Config{}, &Config{}))
}
