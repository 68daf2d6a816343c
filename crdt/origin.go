package crdt

// Origin tags an applied update with its provenance.
type Origin struct {
	remote bool
	peer   string
}

// Local is the origin of updates produced by local edits.
func Local() Origin { return Origin{} }

// Remote is the origin of updates ingested from a peer. The peer id may be
// empty when the transport does not attribute deltas.
func Remote(peer string) Origin { return Origin{remote: true, peer: peer} }

// IsRemote reports whether the update came from a peer.
func (o Origin) IsRemote() bool { return o.remote }

// Peer returns the originating peer id, if known.
func (o Origin) Peer() string { return o.peer }

// ShouldBroadcast reports whether a transport binding may forward the
// update to peers. Only locally originated updates broadcast; rebroadcasting
// remote updates would echo them back through the mesh.
func (o Origin) ShouldBroadcast() bool { return !o.remote }
