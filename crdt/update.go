package crdt

import (
	"encoding/json"
	"errors"
	"fmt"
)

// updateVersion is the wire version of encoded updates.
const updateVersion = 1

// ErrBadUpdate is returned when update bytes cannot be decoded.
var ErrBadUpdate = errors.New("crdt: malformed update")

// wireUpdate is the serialized form of one or more register writes. State
// snapshots use the same shape, so loading a snapshot is just applying a
// large update.
type wireUpdate struct {
	V       int         `json:"v"`
	Entries []wireEntry `json:"entries"`
}

type wireEntry struct {
	Section string          `json:"section"`
	Key     string          `json:"key"`
	Value   json.RawMessage `json:"value,omitempty"`
	Clock   uint64          `json:"clock"`
	Actor   string          `json:"actor"`
	Deleted bool            `json:"deleted,omitempty"`
}

func encodeUpdate(entries []wireEntry) ([]byte, error) {
	data, err := json.Marshal(wireUpdate{V: updateVersion, Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("crdt: encode update: %w", err)
	}
	return data, nil
}

func decodeUpdate(data []byte) ([]wireEntry, error) {
	var u wireUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadUpdate, err)
	}
	if u.V != updateVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadUpdate, u.V)
	}
	for _, e := range u.Entries {
		if e.Section == "" || e.Key == "" || e.Actor == "" || e.Clock == 0 {
			return nil, fmt.Errorf("%w: incomplete entry", ErrBadUpdate)
		}
	}
	return u.Entries, nil
}
