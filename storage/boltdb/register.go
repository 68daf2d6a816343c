package boltdb

import (
	"errors"
	"log/slog"

	"holi.app/vault/storage"
	"holi.app/vault/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "boltdb",
		Description: "embedded database workspace stored in a single file",
		Mode:        storage.ModeManaged,
		Open: func(config map[string]string, logger *slog.Logger) (storage.Workspace, func() error, error) {
			path := config["path"]
			if path == "" {
				return nil, nil, errors.New("boltdb: config key \"path\" is required")
			}
			ws, err := Open(path, logger)
			if err != nil {
				return nil, nil, err
			}
			return ws, ws.Close, nil
		},
	})
}
