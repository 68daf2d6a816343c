package project

import (
	"testing"

	"holi.app/vault/storage"
)

func TestAddCollaboratorBridgesGrant(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.CreateProject("Report")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.mgr.AddCollaborator(rec.ID, "u_peer", "Peer", storage.RoleEditor); err != nil {
		t.Fatalf("AddCollaborator: %v", err)
	}

	got, err := f.mgr.Project(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := got.Collaborator("u_peer")
	if !ok || c.Role != storage.RoleEditor || c.Name != "Peer" {
		t.Fatalf("roster entry = %+v %v", c, ok)
	}
	if c.AddedAt == 0 {
		t.Fatal("addedAt not set")
	}
	if role, ok := f.grants.Allowed(rec.ID, "u_peer"); !ok || role != storage.RoleEditor {
		t.Fatalf("grant = %q %v, want editor", role, ok)
	}
}

func TestAddCollaboratorTwiceUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.CreateProject("Report")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.AddCollaborator(rec.ID, "u_peer", "Peer", storage.RoleViewer); err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.AddCollaborator(rec.ID, "u_peer", "Peer Renamed", storage.RoleEditor); err != nil {
		t.Fatal(err)
	}

	got, err := f.mgr.Project(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	// Owner plus one peer; unique by did.
	if len(got.Collaborators) != 2 {
		t.Fatalf("roster = %v, want 2 entries", got.Collaborators)
	}
	c, _ := got.Collaborator("u_peer")
	if c.Role != storage.RoleEditor || c.Name != "Peer Renamed" {
		t.Fatalf("entry not updated: %+v", c)
	}
}

func TestAddCollaboratorValidation(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.CreateProject("Report")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.AddCollaborator(rec.ID, "", "x", storage.RoleEditor); err == nil {
		t.Fatal("expected error for empty did")
	}
	if err := f.mgr.AddCollaborator(rec.ID, "u_peer", "x", "admin"); err == nil {
		t.Fatal("expected error for invalid role")
	}
	if err := f.mgr.AddCollaborator("p_missing", "u_peer", "x", storage.RoleEditor); !storage.IsNotFound(err) {
		t.Fatalf("missing project = %v, want NotFound", err)
	}
}

func TestRemoveCollaboratorRevokes(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.CreateProject("Report")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.AddCollaborator(rec.ID, "u_peer", "Peer", storage.RoleEditor); err != nil {
		t.Fatal(err)
	}

	if err := f.mgr.RemoveCollaborator(rec.ID, "u_peer"); err != nil {
		t.Fatalf("RemoveCollaborator: %v", err)
	}
	got, err := f.mgr.Project(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.Collaborator("u_peer"); ok {
		t.Fatal("collaborator still on roster")
	}
	if _, ok := f.grants.Allowed(rec.ID, "u_peer"); ok {
		t.Fatal("grant not revoked")
	}

	if err := f.mgr.RemoveCollaborator(rec.ID, "u_peer"); !storage.IsNotFound(err) {
		t.Fatalf("removing absent collaborator = %v, want NotFound", err)
	}
}

func TestUpdateCollaboratorRole(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.CreateProject("Report")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.AddCollaborator(rec.ID, "u_peer", "Peer", storage.RoleViewer); err != nil {
		t.Fatal(err)
	}

	if err := f.mgr.UpdateCollaboratorRole(rec.ID, "u_peer", storage.RoleEditor); err != nil {
		t.Fatalf("UpdateCollaboratorRole: %v", err)
	}
	got, err := f.mgr.Project(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := got.Collaborator("u_peer")
	if c.Role != storage.RoleEditor {
		t.Fatalf("roster role = %q, want editor", c.Role)
	}
	if role, _ := f.grants.Allowed(rec.ID, "u_peer"); role != storage.RoleEditor {
		t.Fatalf("grant role = %q, want editor", role)
	}

	if err := f.mgr.UpdateCollaboratorRole(rec.ID, "u_ghost", storage.RoleEditor); !storage.IsNotFound(err) {
		t.Fatalf("unknown did = %v, want NotFound", err)
	}
	if err := f.mgr.UpdateCollaboratorRole(rec.ID, "u_peer", "admin"); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestReconcileGrantsRepairsDivergence(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.CreateProject("Report")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.AddCollaborator(rec.ID, "u_peer", "Peer", storage.RoleEditor); err != nil {
		t.Fatal(err)
	}

	// Simulate bridge failures: a roster member lost its grant, a revoked
	// peer kept one, and a role drifted.
	if err := f.grants.Revoke(rec.ID, "u_peer"); err != nil {
		t.Fatal(err)
	}
	if err := f.grants.Allow(rec.ID, "u_stale", storage.RoleViewer); err != nil {
		t.Fatal(err)
	}
	if err := f.grants.Allow(rec.ID, "u_self", storage.RoleViewer); err != nil {
		t.Fatal(err)
	}

	if err := f.mgr.ReconcileGrants(rec.ID); err != nil {
		t.Fatalf("ReconcileGrants: %v", err)
	}

	if role, ok := f.grants.Allowed(rec.ID, "u_peer"); !ok || role != storage.RoleEditor {
		t.Fatalf("missing grant not restored: %q %v", role, ok)
	}
	if _, ok := f.grants.Allowed(rec.ID, "u_stale"); ok {
		t.Fatal("stale grant not revoked")
	}
	if role, _ := f.grants.Allowed(rec.ID, "u_self"); role != storage.RoleOwner {
		t.Fatalf("drifted role not repaired: %q", role)
	}
}

func TestReconcileGrantsWithoutStoreIsNoOp(t *testing.T) {
	f := newFixture(t)
	mgr, err := NewManager(f.ctx, "u_self", "Me", nil, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	rec, err := mgr.CreateProject("Report")
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.ReconcileGrants(rec.ID); err != nil {
		t.Fatalf("ReconcileGrants without store: %v", err)
	}
}
