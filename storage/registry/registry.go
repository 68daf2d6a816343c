// Package registry names workspace backends and opens them from config.
//
// Backends are linked at build time: a backend package registers itself in
// init(), and a binary enables it by importing that package (often as a
// blank import). Config-driven selection then picks backends by name.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"holi.app/vault/storage"
)

// Backend describes one openable workspace implementation.
type Backend struct {
	Name        string
	Description string
	// Mode is the storage mode this backend serves when attached to a
	// Context (native grant vs. embedded database).
	Mode storage.Mode

	// Open constructs the workspace from backend-specific config values
	// (usually mirroring the backend's documented keys). It returns an
	// optional close function.
	Open func(config map[string]string, logger *slog.Logger) (storage.Workspace, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("registry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("registry: backend %q missing Open", b.Name)
	}
	if b.Mode != storage.ModeNative && b.Mode != storage.ModeManaged {
		return fmt.Errorf("registry: backend %q has unknown mode %q", b.Name, b.Mode)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("registry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns all registered backends, sorted by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Open opens the named backend if it is registered.
func Open(name string, config map[string]string, logger *slog.Logger) (storage.Workspace, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("registry: unknown backend %q", name)
	}
	return b.Open(config, logger)
}

// Lookup returns the registered backend descriptor by name.
func Lookup(name string) (Backend, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	return b, ok
}
