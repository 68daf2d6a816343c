// Package crdt implements the conflict-free replicated document that backs
// an open project.
//
// The document is a map of (section, key) registers merged last-writer-wins
// by (lamport clock, actor). Every mutation is expressed as an update: an
// opaque byte blob that can be applied on any replica, in any order, any
// number of times, and still converge every replica to the same state. No
// coordinator and no locking between peers is involved.
//
// Every applied update carries an Origin tag. Updates from genuine local
// edits are tagged Local and are the only ones a transport binding may
// broadcast; updates ingested from peers are tagged Remote and must never
// be re-broadcast (echo suppression). The predicate Origin.ShouldBroadcast
// is the single gate.
package crdt
