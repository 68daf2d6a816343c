package project

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"holi.app/vault/keys"
	"holi.app/vault/storage"
)

// ProjectIDPrefix namespaces project ids.
const ProjectIDPrefix = "p_"

// GrantStore is the external access-grant table collaborator changes are
// bridged to. Grants are upserts; revoking an absent grant is a no-op.
type GrantStore interface {
	Allow(projectID, did string, role storage.Role) error
	Revoke(projectID, did string) error
	RemoveAll(projectID string) error
	Peers(projectID string) (map[string]storage.Role, error)
}

// MessageHistory is the external per-project message archive, purged when
// a project is deleted.
type MessageHistory interface {
	PurgeProject(projectID string) error
}

// Manager mediates all durable project reads and writes.
//
// No transaction spans the workspace and the grant store: a failure after
// a roster write but before the matching grant write leaves the two out of
// sync until ReconcileGrants repairs it.
type Manager struct {
	ctx     *storage.Context
	grants  GrantStore
	history MessageHistory
	log     *slog.Logger

	selfDID  string
	selfName string

	now func() int64
}

// NewManager returns a manager operating as the identity selfDID. The
// grant store and message history may be nil when the deployment has none;
// the corresponding bridge steps are skipped.
func NewManager(ctx *storage.Context, selfDID, selfName string, grants GrantStore, history MessageHistory, logger *slog.Logger) (*Manager, error) {
	if ctx == nil {
		return nil, fmt.Errorf("project: storage context is required")
	}
	if selfDID == "" {
		return nil, fmt.Errorf("project: self identity is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ctx:      ctx,
		grants:   grants,
		history:  history,
		log:      logger,
		selfDID:  selfDID,
		selfName: selfName,
		now:      func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// NewProjectID returns a fresh project id.
func NewProjectID() string {
	return ProjectIDPrefix + strings.ToLower(ulid.Make().String())
}

// CreateProject creates a project owned by the local identity: a fresh id,
// a generated master key, and a roster holding exactly the owner. The
// owner's own grant is recorded so the access table starts consistent with
// the roster.
func (m *Manager) CreateProject(name string) (*storage.ProjectRecord, error) {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return nil, err
	}

	key, err := keys.GenerateProjectKey()
	if err != nil {
		return nil, fmt.Errorf("project: generate master key: %w", err)
	}

	now := m.now()
	rec := &storage.ProjectRecord{
		ID:         NewProjectID(),
		Name:       name,
		Role:       storage.RoleOwner,
		LastOpened: now,
		MasterKey:  key.Base64(),
		Collaborators: []storage.Collaborator{{
			DID:     m.selfDID,
			Role:    storage.RoleOwner,
			Name:    m.selfName,
			AddedAt: now,
		}},
	}
	if err := ws.CreateProject(rec); err != nil {
		return nil, err
	}
	if m.grants != nil {
		if err := m.grants.Allow(rec.ID, m.selfDID, storage.RoleOwner); err != nil {
			m.log.Warn("recording owner grant failed", "project", rec.ID, "err", err)
		}
	}
	return rec.Clone(), nil
}

// Projects lists all projects on the active backend, ordered by lastOpened
// descending.
func (m *Manager) Projects() ([]*storage.ProjectRecord, error) {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return nil, err
	}
	return ws.Projects()
}

// Project returns one project record.
func (m *Manager) Project(id string) (*storage.ProjectRecord, error) {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return nil, err
	}
	return ws.Project(id)
}

// TouchProject marks a project as just opened. lastOpened strictly
// increases even when the wall clock does not, so listing order reflects
// open order.
func (m *Manager) TouchProject(id string) error {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return err
	}
	rec, err := ws.Project(id)
	if err != nil {
		return err
	}
	next := m.now()
	if next <= rec.LastOpened {
		next = rec.LastOpened + 1
	}
	rec.LastOpened = next
	return ws.UpdateProject(rec)
}

// SaveJoinedProject records a project adopted through an invitation: role
// editor, empty roster pending sync from the owner. Idempotent; calling it
// again for a known id updates the name and key only when they changed.
func (m *Manager) SaveJoinedProject(id, name, masterKey string) (*storage.ProjectRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("project: joined project id is required")
	}
	ws, err := m.ctx.Resolve()
	if err != nil {
		return nil, err
	}

	existing, err := ws.Project(id)
	switch {
	case err == nil:
		if existing.Name == name && existing.MasterKey == masterKey {
			return existing, nil
		}
		existing.Name = name
		existing.MasterKey = masterKey
		if err := ws.UpdateProject(existing); err != nil {
			return nil, err
		}
		return existing.Clone(), nil
	case storage.IsNotFound(err):
		// Fall through to creation.
	default:
		return nil, err
	}

	rec := &storage.ProjectRecord{
		ID:         id,
		Name:       name,
		Role:       storage.RoleEditor,
		LastOpened: m.now(),
		MasterKey:  masterKey,
	}
	if err := ws.CreateProject(rec); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// DeleteProject removes a project and everything keyed by its id: message
// history, access grants, then the storage subtree. History and grant
// cleanup are best-effort; their failures are logged and do not block
// storage removal.
func (m *Manager) DeleteProject(id string) error {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return err
	}
	if m.history != nil {
		if err := m.history.PurgeProject(id); err != nil {
			m.log.Warn("purging message history failed", "project", id, "err", err)
		}
	}
	if m.grants != nil {
		if err := m.grants.RemoveAll(id); err != nil {
			m.log.Warn("removing grants failed", "project", id, "err", err)
		}
	}
	return ws.DeleteProject(id)
}

// UpdateProjectSettings replaces a project's settings.
func (m *Manager) UpdateProjectSettings(id string, settings storage.Settings) error {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return err
	}
	rec, err := ws.Project(id)
	if err != nil {
		return err
	}
	rec.Settings = settings
	return ws.UpdateProject(rec)
}
