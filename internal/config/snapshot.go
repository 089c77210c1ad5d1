package config

// Snapshot is a validated, immutable view of the configuration plus a
// monotonic Generation counter so subscribers can detect staleness without
// deep-comparing the struct (SPEC_FULL.md §4.1).
type Snapshot struct {
	Generation uint64
	Config     *Config
}

// ServerByName returns the ServerSpec named name, if present.
func (s *Snapshot) ServerByName(name string) (ServerSpec, bool) {
	if s == nil || s.Config == nil {
		return ServerSpec{}, false
	}
	for _, spec := range s.Config.Servers {
		if spec.Name == name {
			return spec, true
		}
	}
	return ServerSpec{}, false
}
