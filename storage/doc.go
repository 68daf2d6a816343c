// Package storage defines the durable workspace contract behind holi vaults.
//
// A Workspace stores project metadata, project files and replicated-document
// state. Two interchangeable implementations exist: storage/localfs (a real
// filesystem directory granted by the user) and storage/boltdb (an embedded
// database used when no native grant is active). Both satisfy the same
// conformance suite in storage/testkit.
//
// Backend selection is owned by a Context: callers resolve the active
// Workspace through the Context on every call, so switching the storage mode
// redirects subsequent calls without touching the callers.
package storage
