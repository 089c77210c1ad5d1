// Package config parses, validates, and hot-reloads goblin's JSON
// configuration document. Load/Parse produce a validated Config; Reconciler
// watches the source file and publishes an ordered diff stream on change.
package config
