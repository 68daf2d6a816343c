package crdt

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Well-known document sections.
const (
	// SectionAssets holds file/reference metadata.
	SectionAssets = "assets"
	// SectionAwareness holds presence and cursor-like ephemeral state.
	SectionAwareness = "awareness"
)

// Observer receives every applied update together with its origin. The
// update bytes are exactly what a peer needs to apply the same change.
type Observer func(update []byte, origin Origin)

type register struct {
	value   json.RawMessage
	clock   uint64
	actor   string
	deleted bool
}

// wins reports whether the incoming write supersedes the current one.
// Ties on the clock break on the actor id so every replica picks the same
// winner.
func (r register) wins(cur register, curOK bool) bool {
	if !curOK {
		return true
	}
	if r.clock != cur.clock {
		return r.clock > cur.clock
	}
	return r.actor > cur.actor
}

// Document is a conflict-free replicated document owned by a single open
// project. One live Document per project id per process; methods are safe
// for concurrent use so transport callbacks and local edits can interleave.
type Document struct {
	mu        sync.Mutex
	actor     string
	clock     uint64
	sections  map[string]map[string]register
	observers map[int]Observer
	nextObs   int
}

// NewDocument returns an empty document whose local writes are attributed
// to actor.
func NewDocument(actor string) (*Document, error) {
	if actor == "" {
		return nil, fmt.Errorf("crdt: actor is required")
	}
	return &Document{
		actor:     actor,
		sections:  make(map[string]map[string]register),
		observers: make(map[int]Observer),
	}, nil
}

// Actor returns the local replica id.
func (d *Document) Actor() string { return d.actor }

// Observe registers an observer for applied updates and returns its
// cancel function. Cancel is idempotent.
func (d *Document) Observe(fn Observer) (cancel func()) {
	d.mu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

// Set writes value under (section, key) as a local edit. The resulting
// update is delivered to observers tagged Local.
func (d *Document) Set(section, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("crdt: marshal value: %w", err)
	}
	return d.localWrite(section, key, raw, false)
}

// Delete tombstones (section, key) as a local edit.
func (d *Document) Delete(section, key string) error {
	return d.localWrite(section, key, nil, true)
}

func (d *Document) localWrite(section, key string, raw json.RawMessage, deleted bool) error {
	if section == "" || key == "" {
		return fmt.Errorf("crdt: section and key are required")
	}

	d.mu.Lock()
	d.clock++
	reg := register{value: raw, clock: d.clock, actor: d.actor, deleted: deleted}
	d.put(section, key, reg)
	update, err := encodeUpdate([]wireEntry{{
		Section: section,
		Key:     key,
		Value:   raw,
		Clock:   reg.clock,
		Actor:   reg.actor,
		Deleted: deleted,
	}})
	if err != nil {
		d.mu.Unlock()
		return err
	}
	observers := d.observerList()
	d.mu.Unlock()

	notify(observers, update, Local())
	return nil
}

// ApplyUpdate merges update bytes into the document. Duplicate and
// out-of-order delivery are harmless: writes that do not supersede the
// current register are ignored, and a fully redundant update is not
// re-delivered to observers.
func (d *Document) ApplyUpdate(update []byte, origin Origin) error {
	entries, err := decodeUpdate(update)
	if err != nil {
		return err
	}

	d.mu.Lock()
	changed := false
	for _, e := range entries {
		incoming := register{value: e.Value, clock: e.Clock, actor: e.Actor, deleted: e.Deleted}
		cur, ok := d.get(e.Section, e.Key)
		if incoming.wins(cur, ok) {
			d.put(e.Section, e.Key, incoming)
			changed = true
		}
		if e.Clock > d.clock {
			d.clock = e.Clock
		}
	}
	var observers []Observer
	if changed {
		observers = d.observerList()
	}
	d.mu.Unlock()

	if changed {
		notify(observers, update, origin)
	}
	return nil
}

// EncodeState renders the full document (tombstones included) as a single
// update, deterministically ordered. Applying it to an empty document
// reproduces the state; applying it to a diverged document merges.
func (d *Document) EncodeState() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var entries []wireEntry
	for _, section := range sortedKeys(d.sections) {
		regs := d.sections[section]
		keys := make([]string, 0, len(regs))
		for k := range regs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r := regs[k]
			entries = append(entries, wireEntry{
				Section: section,
				Key:     k,
				Value:   r.value,
				Clock:   r.clock,
				Actor:   r.actor,
				Deleted: r.deleted,
			})
		}
	}
	return encodeUpdate(entries)
}

// Get returns the raw value under (section, key), if present and live.
func (d *Document) Get(section, key string) (json.RawMessage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.get(section, key)
	if !ok || r.deleted {
		return nil, false
	}
	return r.value, true
}

// Keys returns the live keys of a section, sorted.
func (d *Document) Keys(section string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	regs := d.sections[section]
	keys := make([]string, 0, len(regs))
	for k, r := range regs {
		if !r.deleted {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Sections returns the section names that hold at least one register,
// sorted. Tombstoned-only sections are included; they still carry merge
// state.
func (d *Document) Sections() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sortedKeys(d.sections)
}

func (d *Document) get(section, key string) (register, bool) {
	regs, ok := d.sections[section]
	if !ok {
		return register{}, false
	}
	r, ok := regs[key]
	return r, ok
}

func (d *Document) put(section, key string, r register) {
	regs, ok := d.sections[section]
	if !ok {
		regs = make(map[string]register)
		d.sections[section] = regs
	}
	regs[key] = r
}

func (d *Document) observerList() []Observer {
	out := make([]Observer, 0, len(d.observers))
	for _, fn := range d.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []Observer, update []byte, origin Origin) {
	for _, fn := range observers {
		fn(update, origin)
	}
}

func sortedKeys(m map[string]map[string]register) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
