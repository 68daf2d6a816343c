// Package sync keeps one replicated project document alive per open
// project: it restores state from the workspace, persists every applied
// update, and bridges the document to a peer transport without echoing
// remote updates back into the mesh.
package sync
