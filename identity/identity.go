// Package identity manages the user's locally held identities: an ed25519
// keypair plus profile metadata per identity, persisted on the local
// filesystem. The identity id is derived from the public key, so
// re-deriving from the same keypair always yields the same id.
package identity

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"holi.app/vault/keys"
	"holi.app/vault/storage"
)

const (
	metaFile = "identity.json"
	seedFile = "identity.key"
)

// ErrExists is returned when creating an identity whose id is already
// stored.
var ErrExists = errors.New("identity: already exists")

// Identity is the profile metadata of one locally held keypair. The
// private key material lives in a separate file and is never embedded
// here.
type Identity struct {
	ID        string `json:"id"`
	Alias     string `json:"alias,omitempty"`
	Avatar    []byte `json:"avatar,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Manager stores identities on the local filesystem, one directory per
// identity holding the profile document and the hex-encoded key seed.
type Manager struct {
	dir string
	log *slog.Logger

	now func() int64
}

// DefaultDirectory returns the per-user identity directory.
func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".holi", "identities"), nil
}

// NewManager returns a manager rooted at dir; an empty dir selects the
// default per-user directory.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDirectory()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir: dir,
		log: logger,
		now: func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// Directory returns the manager's root directory.
func (m *Manager) Directory() string { return m.dir }

func checkIdentityID(id string) error {
	if id == "" {
		return fmt.Errorf("identity: id cannot be empty")
	}
	for _, char := range id {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("identity: invalid character %q in id", char)
	}
	return nil
}

// CreateIdentity generates a fresh keypair, derives the identity id from
// its public key, and persists profile and seed. No collision check is
// performed against existing ids.
func (m *Manager) CreateIdentity(alias string, avatar []byte) (*Identity, error) {
	key, err := keys.GenerateIdentityKey()
	if err != nil {
		return nil, err
	}
	id := key.UserID()

	dir := filepath.Join(m.dir, id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
	}

	// Seed first, exclusively: a second identity with the same id means a
	// reproduced keypair, and silently overwriting its key would be worse
	// than failing.
	if err := writeSeedFile(filepath.Join(dir, seedFile), key.Seed()); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrExists, id)
		}
		return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
	}

	ident := &Identity{ID: id, Alias: alias, Avatar: avatar, CreatedAt: m.now()}
	if err := writeMetaFile(filepath.Join(dir, metaFile), ident); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
	}
	return ident, nil
}

// Identities lists all stored identities, oldest first. Individually
// corrupt entries are skipped with a warning.
func (m *Manager) Identities() ([]*Identity, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
	}

	var out []*Identity
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ident, err := readMetaFile(filepath.Join(m.dir, entry.Name(), metaFile))
		if err != nil {
			m.log.Warn("skipping unreadable identity", "id", entry.Name(), "err", err)
			continue
		}
		out = append(out, ident)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Identity returns one stored identity, or ErrNotFound.
func (m *Manager) Identity(id string) (*Identity, error) {
	if err := checkIdentityID(id); err != nil {
		return nil, err
	}
	ident, err := readMetaFile(filepath.Join(m.dir, id, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: identity %s", storage.ErrNotFound, id)
		}
		return nil, err
	}
	return ident, nil
}

// PrimaryIdentity returns the first stored identity, or nil when none
// exist.
func (m *Manager) PrimaryIdentity() (*Identity, error) {
	all, err := m.Identities()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// EnsurePrimaryIdentity returns the primary identity, creating one with
// defaultAlias when none exists. Idempotent.
func (m *Manager) EnsurePrimaryIdentity(defaultAlias string) (*Identity, error) {
	primary, err := m.PrimaryIdentity()
	if err != nil {
		return nil, err
	}
	if primary != nil {
		return primary, nil
	}
	return m.CreateIdentity(defaultAlias, nil)
}

// IdentityPrivateKey reconstructs the keypair of a stored identity from
// its seed. Unknown ids yield nil without error.
func (m *Manager) IdentityPrivateKey(id string) (*keys.IdentityKey, error) {
	if err := checkIdentityID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(m.dir, id, seedFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
	}
	seed, err := keys.ParseSeedHex(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: seed of %s: %v", storage.ErrCorrupt, id, err)
	}
	return keys.IdentityKeyFromSeed(seed)
}

// DeleteIdentity removes a stored identity and its key material.
func (m *Manager) DeleteIdentity(id string) error {
	if err := checkIdentityID(id); err != nil {
		return err
	}
	dir := filepath.Join(m.dir, id)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: identity %s", storage.ErrNotFound, id)
		}
		return err
	}
	return os.RemoveAll(dir)
}

func writeSeedFile(path string, seed []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func writeMetaFile(path string, ident *Identity) error {
	data, err := json.Marshal(ident)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readMetaFile(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ident Identity
	if err := json.Unmarshal(data, &ident); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
	}
	if ident.ID == "" {
		return nil, fmt.Errorf("%w: missing id", storage.ErrCorrupt)
	}
	return &ident, nil
}
