package localfs

import (
	"errors"
	"log/slog"

	"holi.app/vault/storage"
	"holi.app/vault/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "localfs",
		Description: "native filesystem workspace rooted at a granted directory",
		Mode:        storage.ModeNative,
		Open: func(config map[string]string, logger *slog.Logger) (storage.Workspace, func() error, error) {
			root := config["root"]
			if root == "" {
				return nil, nil, errors.New("localfs: config key \"root\" is required")
			}
			ws, err := New(root, logger)
			if err != nil {
				return nil, nil, err
			}
			return ws, nil, nil
		},
	})
}
