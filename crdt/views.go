package crdt

import (
	"encoding/json"
	"fmt"
)

// Map is an addressable view over one section of a document. It is a thin
// handle; copying it is cheap and all operations go through the backing
// document.
type Map struct {
	doc     *Document
	section string
}

// Section returns a view over an arbitrary section.
func (d *Document) Section(name string) Map { return Map{doc: d, section: name} }

// Assets returns the file/reference metadata view.
func (d *Document) Assets() Map { return d.Section(SectionAssets) }

// Awareness returns the presence/ephemeral-state view.
func (d *Document) Awareness() Map { return d.Section(SectionAwareness) }

// Name returns the section this view addresses.
func (m Map) Name() string { return m.section }

// Set writes value under key as a local edit.
func (m Map) Set(key string, value any) error {
	return m.doc.Set(m.section, key, value)
}

// Delete tombstones key as a local edit.
func (m Map) Delete(key string) error {
	return m.doc.Delete(m.section, key)
}

// Get unmarshals the value under key into out.
func (m Map) Get(key string, out any) (bool, error) {
	raw, ok := m.doc.Get(m.section, key)
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("crdt: unmarshal %s/%s: %w", m.section, key, err)
	}
	return true, nil
}

// Raw returns the raw JSON value under key.
func (m Map) Raw(key string) (json.RawMessage, bool) {
	return m.doc.Get(m.section, key)
}

// Keys returns the live keys of the section, sorted.
func (m Map) Keys() []string { return m.doc.Keys(m.section) }

// Len returns the number of live keys.
func (m Map) Len() int { return len(m.doc.Keys(m.section)) }
