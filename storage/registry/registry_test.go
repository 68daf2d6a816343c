package registry_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"holi.app/vault/storage"
	"holi.app/vault/storage/registry"

	_ "holi.app/vault/storage/boltdb"
	_ "holi.app/vault/storage/localfs"
)

func TestRegisteredBackends(t *testing.T) {
	names := map[string]storage.Mode{}
	for _, b := range registry.List() {
		names[b.Name] = b.Mode
	}
	if names["localfs"] != storage.ModeNative {
		t.Fatalf("localfs backend: got mode %q want %q", names["localfs"], storage.ModeNative)
	}
	if names["boltdb"] != storage.ModeManaged {
		t.Fatalf("boltdb backend: got mode %q want %q", names["boltdb"], storage.ModeManaged)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  registry.Config
		ok   bool
	}{
		{
			"valid",
			registry.Config{Mode: storage.ModeManaged, Backends: []registry.BackendConfig{{Name: "boltdb"}}},
			true,
		},
		{"bad mode", registry.Config{Mode: "cloud", Backends: []registry.BackendConfig{{Name: "boltdb"}}}, false},
		{"no backends", registry.Config{Mode: storage.ModeManaged}, false},
		{
			"duplicate backend",
			registry.Config{Mode: storage.ModeManaged, Backends: []registry.BackendConfig{{Name: "boltdb"}, {Name: "boltdb"}}},
			false,
		},
		{
			"missing name",
			registry.Config{Mode: storage.ModeManaged, Backends: []registry.BackendConfig{{}}},
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("Validate succeeded, want error")
			}
		})
	}
}

func TestBuildContextFromFile(t *testing.T) {
	dir := t.TempDir()
	cfg := registry.Config{
		Mode: storage.ModeManaged,
		Backends: []registry.BackendConfig{
			{Name: "localfs", Config: map[string]string{"root": filepath.Join(dir, "native")}},
			{Name: "boltdb", Config: map[string]string{"path": filepath.Join(dir, "vault.db")}},
		},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "storage.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, err := registry.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	ctx, closeAll, err := registry.BuildContext(loaded, nil)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}
	defer closeAll()

	if ctx.Mode() != storage.ModeManaged {
		t.Fatalf("context mode: got %q want %q", ctx.Mode(), storage.ModeManaged)
	}
	if _, err := ctx.Resolve(); err != nil {
		t.Fatalf("Resolve managed failed: %v", err)
	}
	ctx.SetMode(storage.ModeNative)
	if _, err := ctx.Resolve(); err != nil {
		t.Fatalf("Resolve native failed: %v", err)
	}
}

func TestBuildContextUnknownBackend(t *testing.T) {
	cfg := registry.Config{
		Mode:     storage.ModeManaged,
		Backends: []registry.BackendConfig{{Name: "no-such-backend"}},
	}
	if _, _, err := registry.BuildContext(cfg, nil); err == nil {
		t.Fatal("BuildContext with unknown backend succeeded")
	}
}
