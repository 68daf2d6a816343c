// Package testkit runs the shared workspace conformance suite against a
// backend. Every storage.Workspace implementation must pass it.
package testkit

import (
	"bytes"
	"fmt"
	"testing"

	"holi.app/vault/storage"
)

// NewWorkspace constructs a fresh, empty Workspace instance for a test.
// The returned Workspace MUST be isolated from other tests.
type NewWorkspace func(t *testing.T) storage.Workspace

func record(id, name string, lastOpened int64) *storage.ProjectRecord {
	return &storage.ProjectRecord{
		ID:         id,
		Name:       name,
		Role:       storage.RoleOwner,
		LastOpened: lastOpened,
		Settings:   storage.Settings{AllowOfflineEditing: true},
		Type:       "vault",
	}
}

func RunWorkspaceConformance(t *testing.T, newWorkspace NewWorkspace) {
	t.Helper()

	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		ws := newWorkspace(t)
		want := record("p_report", "Report", 1000)
		want.Collaborators = []storage.Collaborator{
			{DID: "u_0011223344556677", Role: storage.RoleOwner, Name: "Alice", AddedAt: 900},
		}

		if err := ws.CreateProject(want); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
		got, err := ws.Project("p_report")
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}
		if got.ID != want.ID || got.Name != want.Name || got.Role != want.Role ||
			got.LastOpened != want.LastOpened || got.Type != want.Type {
			t.Fatalf("record mismatch: got %+v want %+v", got, want)
		}
		if len(got.Collaborators) != 1 || got.Collaborators[0] != want.Collaborators[0] {
			t.Fatalf("collaborators mismatch: %+v", got.Collaborators)
		}
	})

	t.Run("GetMissingIsNotFound", func(t *testing.T) {
		ws := newWorkspace(t)
		if _, err := ws.Project("p_missing"); !storage.IsNotFound(err) {
			t.Fatalf("Project(missing): got %v want ErrNotFound", err)
		}
	})

	t.Run("UpdateMissingIsNotFound", func(t *testing.T) {
		ws := newWorkspace(t)
		if err := ws.UpdateProject(record("p_ghost", "Ghost", 1)); !storage.IsNotFound(err) {
			t.Fatalf("UpdateProject(missing): got %v want ErrNotFound", err)
		}
	})

	t.Run("CreateDuplicateFails", func(t *testing.T) {
		ws := newWorkspace(t)
		if err := ws.CreateProject(record("p_dup", "A", 1)); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
		if err := ws.CreateProject(record("p_dup", "B", 2)); err == nil {
			t.Fatal("CreateProject with duplicate id succeeded")
		}
	})

	t.Run("ListingOrderedByLastOpened", func(t *testing.T) {
		ws := newWorkspace(t)
		for i, id := range []string{"p_t1", "p_t2", "p_t3"} {
			if err := ws.CreateProject(record(id, id, int64(100*(i+1)))); err != nil {
				t.Fatalf("CreateProject failed: %v", err)
			}
		}
		records, err := ws.Projects()
		if err != nil {
			t.Fatalf("Projects failed: %v", err)
		}
		want := []string{"p_t3", "p_t2", "p_t1"}
		if len(records) != len(want) {
			t.Fatalf("got %d records, want %d", len(records), len(want))
		}
		for i, id := range want {
			if records[i].ID != id {
				t.Fatalf("position %d: got %s want %s", i, records[i].ID, id)
			}
		}
	})

	t.Run("DeleteRemovesEverything", func(t *testing.T) {
		ws := newWorkspace(t)
		if err := ws.CreateProject(record("p_del", "Doomed", 1)); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
		if err := ws.SaveProjectFile("p_del", "notes.txt", []byte("bye")); err != nil {
			t.Fatalf("SaveProjectFile failed: %v", err)
		}
		if err := ws.DeleteProject("p_del"); err != nil {
			t.Fatalf("DeleteProject failed: %v", err)
		}
		if _, err := ws.Project("p_del"); !storage.IsNotFound(err) {
			t.Fatalf("Project after delete: got %v want ErrNotFound", err)
		}
		if _, err := ws.ReadProjectFile("p_del", "notes.txt"); !storage.IsNotFound(err) {
			t.Fatalf("ReadProjectFile after delete: got %v want ErrNotFound", err)
		}
		if err := ws.DeleteProject("p_del"); !storage.IsNotFound(err) {
			t.Fatalf("second DeleteProject: got %v want ErrNotFound", err)
		}
	})

	t.Run("FileRoundTrip", func(t *testing.T) {
		ws := newWorkspace(t)
		if err := ws.CreateProject(record("p_files", "Files", 1)); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
		want := []byte{0x00, 0x01, 0xfe, 0xff, 'h', 'i'}
		if err := ws.SaveProjectFile("p_files", "docs/deep/a.bin", want); err != nil {
			t.Fatalf("SaveProjectFile failed: %v", err)
		}
		got, err := ws.ReadProjectFile("p_files", "docs/deep/a.bin")
		if err != nil {
			t.Fatalf("ReadProjectFile failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("file content mismatch: got %x want %x", got, want)
		}

		// Overwrite keeps the path and replaces the bytes.
		want2 := []byte("second version")
		if err := ws.SaveProjectFile("p_files", "docs/deep/a.bin", want2); err != nil {
			t.Fatalf("SaveProjectFile overwrite failed: %v", err)
		}
		got, err = ws.ReadProjectFile("p_files", "docs/deep/a.bin")
		if err != nil {
			t.Fatalf("ReadProjectFile failed: %v", err)
		}
		if !bytes.Equal(got, want2) {
			t.Fatalf("overwrite mismatch: got %q want %q", got, want2)
		}
	})

	t.Run("FileListing", func(t *testing.T) {
		ws := newWorkspace(t)
		if err := ws.CreateProject(record("p_list", "List", 1)); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
		for _, p := range []string{"b.txt", "a.txt", "docs/c.txt"} {
			if err := ws.SaveProjectFile("p_list", p, []byte(p)); err != nil {
				t.Fatalf("SaveProjectFile(%s) failed: %v", p, err)
			}
		}
		paths, err := ws.ListProjectFiles("p_list")
		if err != nil {
			t.Fatalf("ListProjectFiles failed: %v", err)
		}
		want := []string{"a.txt", "b.txt", "docs/c.txt"}
		if len(paths) != len(want) {
			t.Fatalf("got %v, want %v", paths, want)
		}
		for i := range want {
			if paths[i] != want[i] {
				t.Fatalf("got %v, want %v", paths, want)
			}
		}
	})

	t.Run("InvalidPathsRejected", func(t *testing.T) {
		ws := newWorkspace(t)
		if err := ws.CreateProject(record("p_paths", "Paths", 1)); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
		for _, p := range []string{"", ".", "..", "../escape", "a/../b", "./a", "a//b", "a\x00b"} {
			if err := ws.SaveProjectFile("p_paths", p, []byte("x")); !storage.IsInvalidPath(err) {
				t.Fatalf("SaveProjectFile(%q): got %v want ErrInvalidPath", p, err)
			}
			if _, err := ws.ReadProjectFile("p_paths", p); !storage.IsInvalidPath(err) {
				t.Fatalf("ReadProjectFile(%q): got %v want ErrInvalidPath", p, err)
			}
		}
	})

	t.Run("MissingFileIsNotFound", func(t *testing.T) {
		ws := newWorkspace(t)
		if err := ws.CreateProject(record("p_nf", "NF", 1)); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
		if _, err := ws.ReadProjectFile("p_nf", "absent.txt"); !storage.IsNotFound(err) {
			t.Fatalf("ReadProjectFile(absent): got %v want ErrNotFound", err)
		}
		if err := ws.SaveProjectFile("p_gone", "a.txt", []byte("x")); !storage.IsNotFound(err) {
			t.Fatalf("SaveProjectFile on missing project: got %v want ErrNotFound", err)
		}
	})

	t.Run("DocumentSnapshotAndLog", func(t *testing.T) {
		ws := newWorkspace(t)
		if err := ws.CreateProject(record("p_doc", "Doc", 1)); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}

		if _, err := ws.ReadDocument("p_doc"); !storage.IsNotFound(err) {
			t.Fatalf("ReadDocument before save: got %v want ErrNotFound", err)
		}

		state := []byte("snapshot-v1")
		if err := ws.SaveDocument("p_doc", state); err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}
		got, err := ws.ReadDocument("p_doc")
		if err != nil {
			t.Fatalf("ReadDocument failed: %v", err)
		}
		if !bytes.Equal(got, state) {
			t.Fatalf("snapshot mismatch: got %q want %q", got, state)
		}

		var wantUpdates [][]byte
		for i := 0; i < 3; i++ {
			u := []byte(fmt.Sprintf("update-%d-\x00\xff", i))
			wantUpdates = append(wantUpdates, u)
			if err := ws.AppendDocumentUpdate("p_doc", u); err != nil {
				t.Fatalf("AppendDocumentUpdate failed: %v", err)
			}
		}
		updates, err := ws.DocumentUpdates("p_doc")
		if err != nil {
			t.Fatalf("DocumentUpdates failed: %v", err)
		}
		if len(updates) != len(wantUpdates) {
			t.Fatalf("got %d updates, want %d", len(updates), len(wantUpdates))
		}
		for i := range wantUpdates {
			if !bytes.Equal(updates[i], wantUpdates[i]) {
				t.Fatalf("update %d mismatch: got %x want %x", i, updates[i], wantUpdates[i])
			}
		}

		compacted := []byte("snapshot-v2")
		if err := ws.CompactDocument("p_doc", compacted); err != nil {
			t.Fatalf("CompactDocument failed: %v", err)
		}
		got, err = ws.ReadDocument("p_doc")
		if err != nil {
			t.Fatalf("ReadDocument after compact failed: %v", err)
		}
		if !bytes.Equal(got, compacted) {
			t.Fatalf("compacted snapshot mismatch: got %q want %q", got, compacted)
		}
		updates, err = ws.DocumentUpdates("p_doc")
		if err != nil {
			t.Fatalf("DocumentUpdates after compact failed: %v", err)
		}
		if len(updates) != 0 {
			t.Fatalf("update log not cleared by compact: %d entries remain", len(updates))
		}
	})
}
