package storage

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Role is a collaborator's access level within a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the three defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Collaborator is a peer identity attached to a project.
// Collaborators are unique by DID within a project.
type Collaborator struct {
	DID     string `json:"did"`
	Role    Role   `json:"role"`
	Name    string `json:"name"`
	AddedAt int64  `json:"addedAt"`
}

// Settings are per-project behavior toggles.
type Settings struct {
	AutoAdmit           bool `json:"autoAdmit"`
	AllowOfflineEditing bool `json:"allowOfflineEditing"`
}

// ProjectRecord is the persisted metadata document of a single project.
//
// The JSON shape is the on-disk contract shared by every backend:
// timestamps are epoch milliseconds, the optional master key is base64.
type ProjectRecord struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Role          Role           `json:"role"`
	LastOpened    int64          `json:"lastOpened"`
	MasterKey     string         `json:"projectMasterKey,omitempty"`
	Collaborators []Collaborator `json:"collaborators"`
	Settings      Settings       `json:"settings"`
	Type          string         `json:"type"`
	Assets        []string       `json:"assets"`
}

// Clone returns a deep copy so callers can mutate records freely.
func (r *ProjectRecord) Clone() *ProjectRecord {
	out := *r
	out.Collaborators = append([]Collaborator(nil), r.Collaborators...)
	out.Assets = append([]string(nil), r.Assets...)
	return &out
}

// Collaborator returns the roster entry for did, if present.
func (r *ProjectRecord) Collaborator(did string) (Collaborator, bool) {
	for _, c := range r.Collaborators {
		if c.DID == did {
			return c, true
		}
	}
	return Collaborator{}, false
}

// EncodeProjectRecord renders the persisted JSON form of a record.
func EncodeProjectRecord(r *ProjectRecord) ([]byte, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("storage: project record missing id")
	}
	if !r.Role.Valid() {
		return nil, fmt.Errorf("storage: project %s has invalid role %q", r.ID, r.Role)
	}
	return json.Marshal(r)
}

// DecodeProjectRecord parses a persisted record. Unparseable or internally
// inconsistent bytes are reported as ErrCorrupt.
func DecodeProjectRecord(data []byte) (*ProjectRecord, error) {
	var r ProjectRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if r.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrCorrupt)
	}
	if !r.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", ErrCorrupt, r.Role)
	}
	return &r, nil
}

// SortProjects orders records by lastOpened descending, the listing order
// every backend must return. Ties break on id for determinism.
func SortProjects(records []*ProjectRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].LastOpened != records[j].LastOpened {
			return records[i].LastOpened > records[j].LastOpened
		}
		return records[i].ID < records[j].ID
	})
}
