package config

import "sync/atomic"

// Holder is the live configuration of a running server. Request handlers
// read a snapshot per request; Watch swaps in a new one after a valid reload.
// Snapshots are never mutated after they are stored.
type Holder struct {
	cfg  atomic.Pointer[Config]
	path string
}

// NewHolder returns a Holder serving cfg, loaded from path.
func NewHolder(cfg *Config, path string) *Holder {
	h := &Holder{path: path}
	h.cfg.Store(cfg)

	return h
}

// Config returns the current snapshot.
func (h *Holder) Config() *Config {
	return h.cfg.Load()
}

// Path returns the file the config was loaded from and is watched at.
func (h *Holder) Path() string {
	return h.path
}

// Update replaces the snapshot. Callers holding the old one keep it.
func (h *Holder) Update(cfg *Config) {
	h.cfg.Store(cfg)
}
