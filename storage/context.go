package storage

import (
	"fmt"
	"sync"
)

// Mode selects which class of backend serves durable operations.
type Mode string

const (
	// ModeNative routes to a user-granted filesystem directory.
	ModeNative Mode = "native"
	// ModeManaged routes to the embedded database.
	ModeManaged Mode = "managed"
)

// Context owns the process's storage-mode state.
//
// Callers resolve the active Workspace through the Context on every
// operation rather than caching it, so replacing the mode under the Context
// redirects all subsequent calls. The mode is explicit owned state, not a
// per-call capability probe: revoking a native grant means calling SetMode,
// and projects stored natively stay invisible until the grant returns.
type Context struct {
	mu       sync.RWMutex
	mode     Mode
	backends map[Mode]Workspace
}

// NewContext returns a Context starting in mode. Backends are attached
// with Attach before the mode that uses them can resolve.
func NewContext(mode Mode) *Context {
	return &Context{mode: mode, backends: make(map[Mode]Workspace)}
}

// Attach installs the backend serving a mode, replacing any previous one.
// Attaching nil detaches the mode.
func (c *Context) Attach(mode Mode, ws Workspace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ws == nil {
		delete(c.backends, mode)
		return
	}
	c.backends[mode] = ws
}

// SetMode switches the active storage mode. Calls already in flight keep
// the Workspace they resolved; subsequent calls resolve the new mode.
func (c *Context) SetMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

// Mode returns the active storage mode.
func (c *Context) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Resolve returns the Workspace serving the active mode, or
// ErrWorkspaceUnavailable when none is attached.
func (c *Context) Resolve() (Workspace, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ws, ok := c.backends[c.mode]
	if !ok {
		return nil, fmt.Errorf("%w: no backend for mode %q", ErrWorkspaceUnavailable, c.mode)
	}
	return ws, nil
}
