package project

import (
	"fmt"

	"holi.app/vault/storage"
)

// AddCollaborator grants did access and adds it to the roster. The grant
// is written first so a peer never appears on the roster without access;
// adding an existing did updates its role and name instead.
func (m *Manager) AddCollaborator(projectID, did, name string, role storage.Role) error {
	if did == "" {
		return fmt.Errorf("project: collaborator did is required")
	}
	if !role.Valid() {
		return fmt.Errorf("project: invalid role %q", role)
	}
	ws, err := m.ctx.Resolve()
	if err != nil {
		return err
	}
	rec, err := ws.Project(projectID)
	if err != nil {
		return err
	}
	if m.grants != nil {
		if err := m.grants.Allow(projectID, did, role); err != nil {
			return fmt.Errorf("project: grant %s: %w", did, err)
		}
	}
	updated := false
	for i := range rec.Collaborators {
		if rec.Collaborators[i].DID == did {
			rec.Collaborators[i].Role = role
			rec.Collaborators[i].Name = name
			updated = true
			break
		}
	}
	if !updated {
		rec.Collaborators = append(rec.Collaborators, storage.Collaborator{
			DID:     did,
			Role:    role,
			Name:    name,
			AddedAt: m.now(),
		})
	}
	return ws.UpdateProject(rec)
}

// RemoveCollaborator drops did from the roster and revokes its grant. The
// roster is written first; a revoke failure is logged and left for
// ReconcileGrants.
func (m *Manager) RemoveCollaborator(projectID, did string) error {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return err
	}
	rec, err := ws.Project(projectID)
	if err != nil {
		return err
	}
	kept := rec.Collaborators[:0]
	found := false
	for _, c := range rec.Collaborators {
		if c.DID == did {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return fmt.Errorf("%w: collaborator %s", storage.ErrNotFound, did)
	}
	rec.Collaborators = kept
	if err := ws.UpdateProject(rec); err != nil {
		return err
	}
	if m.grants != nil {
		if err := m.grants.Revoke(projectID, did); err != nil {
			m.log.Warn("revoking grant failed", "project", projectID, "did", did, "err", err)
		}
	}
	return nil
}

// UpdateCollaboratorRole changes a roster entry's role and mirrors the
// change into the grant store.
func (m *Manager) UpdateCollaboratorRole(projectID, did string, role storage.Role) error {
	if !role.Valid() {
		return fmt.Errorf("project: invalid role %q", role)
	}
	ws, err := m.ctx.Resolve()
	if err != nil {
		return err
	}
	rec, err := ws.Project(projectID)
	if err != nil {
		return err
	}
	found := false
	for i := range rec.Collaborators {
		if rec.Collaborators[i].DID == did {
			rec.Collaborators[i].Role = role
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: collaborator %s", storage.ErrNotFound, did)
	}
	if err := ws.UpdateProject(rec); err != nil {
		return err
	}
	if m.grants != nil {
		if err := m.grants.Allow(projectID, did, role); err != nil {
			m.log.Warn("updating grant failed", "project", projectID, "did", did, "err", err)
		}
	}
	return nil
}

// ReconcileGrants diffs a project's roster against the grant store and
// repairs divergence left behind by failed bridge writes: roster members
// get their grant (re)allowed at the roster role, grants with no roster
// entry are revoked. Intended to run when a project is loaded.
func (m *Manager) ReconcileGrants(projectID string) error {
	if m.grants == nil {
		return nil
	}
	ws, err := m.ctx.Resolve()
	if err != nil {
		return err
	}
	rec, err := ws.Project(projectID)
	if err != nil {
		return err
	}
	granted, err := m.grants.Peers(projectID)
	if err != nil {
		return fmt.Errorf("project: list grants: %w", err)
	}

	roster := make(map[string]storage.Role, len(rec.Collaborators))
	for _, c := range rec.Collaborators {
		roster[c.DID] = c.Role
	}

	for did, role := range roster {
		if granted[did] == role {
			continue
		}
		if err := m.grants.Allow(projectID, did, role); err != nil {
			return fmt.Errorf("project: repair grant %s: %w", did, err)
		}
	}
	for did := range granted {
		if _, ok := roster[did]; ok {
			continue
		}
		if err := m.grants.Revoke(projectID, did); err != nil {
			return fmt.Errorf("project: revoke stale grant %s: %w", did, err)
		}
	}
	return nil
}
