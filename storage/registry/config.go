package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"holi.app/vault/storage"
)

// Config describes which backends to open and which storage mode starts
// active. Callers still need to link the backend packages via blank imports.
//
// Example:
//
//	{
//	  "mode": "managed",
//	  "backends": [
//	    {"name":"localfs", "config":{"root":"/data/vaults"}},
//	    {"name":"boltdb",  "config":{"path":"/data/vault.db"}}
//	  ]
//	}
type Config struct {
	Mode     storage.Mode    `json:"mode"`
	Backends []BackendConfig `json:"backends"`
}

// BackendConfig selects one registered backend plus its config values.
type BackendConfig struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config,omitempty"`
}

// LoadFile reads and validates a Config from a JSON file.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("registry: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks structural validity, not backend availability.
func (c Config) Validate() error {
	if c.Mode != storage.ModeNative && c.Mode != storage.ModeManaged {
		return fmt.Errorf("registry: unknown mode %q", c.Mode)
	}
	if len(c.Backends) == 0 {
		return errors.New("registry: at least one backend is required")
	}
	seen := map[string]bool{}
	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("registry: backend %d missing name", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("registry: duplicate backend %q", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}

// BuildContext opens every configured backend, attaches each at its
// registered mode and returns a Context starting in cfg.Mode, plus a close
// function releasing all opened backends.
func BuildContext(cfg Config, logger *slog.Logger) (*storage.Context, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	ctx := storage.NewContext(cfg.Mode)
	var closers []func() error
	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	for _, bc := range cfg.Backends {
		b, ok := Lookup(bc.Name)
		if !ok {
			closeAll()
			return nil, nil, fmt.Errorf("registry: unknown backend %q", bc.Name)
		}
		ws, closer, err := b.Open(bc.Config, logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("registry: open %q: %w", bc.Name, err)
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		ctx.Attach(b.Mode, ws)
	}
	return ctx, closeAll, nil
}
