// lstore Config - explicit construction-time tuning, no flags/env-vars
// Component: B+-tree order and logging

package database

import (
	"io"
	"log/slog"
)

// Config tunes a Database's constructors. The zero value is valid:
// withDefaults fills in every unset field. There is no flag or
// environment-variable parsing here — callers construct Config
// directly, since the engine has no CLI (out of scope) and embeds
// into a host process that owns its own configuration story.
type Config struct {
	// BTreeOrder is the fanout passed to every index's B+-trees.
	// Zero means DefaultBTreeOrder.
	BTreeOrder int
	// Logger receives structured diagnostic events. Nil means a
	// logger that discards everything.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.BTreeOrder == 0 {
		c.BTreeOrder = DefaultBTreeOrder
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}
