// Package project implements the project and collaborator lifecycle on top
// of the storage layer: create/list/touch/delete, roster mutation bridged
// to an external access-grant store, per-project settings, and file
// pass-throughs. Every durable operation resolves its Workspace through the
// injected storage.Context, so switching the storage mode redirects
// subsequent calls without touching the manager.
package project
