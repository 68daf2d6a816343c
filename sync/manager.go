package sync

import (
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"

	"holi.app/vault/crdt"
	"holi.app/vault/storage"
)

// ErrClosed is returned by operations on a disconnected manager.
var ErrClosed = errors.New("sync: manager closed")

// ErrAlreadyBound is returned when BindP2P is called on a manager that
// already has a transport.
var ErrAlreadyBound = errors.New("sync: transport already bound")

// Manager owns the live replicated document of one open project. There is
// at most one Manager per project id per process; concurrent local edits
// and transport deliveries serialize on the document.
type Manager struct {
	projectID string
	ws        storage.Workspace
	log       *slog.Logger
	doc       *crdt.Document

	mu            gosync.Mutex
	closed        bool
	persistCancel func()
	sendCancel    func()
	unsubscribe   func()
}

// Open restores the project document from the workspace and returns a
// manager for it. The persisted snapshot is loaded first, then the pending
// update log is replayed in append order; corrupt log entries are skipped.
// Restoration happens before any observer exists, so nothing replayed is
// rebroadcast.
func Open(projectID, actor string, ws storage.Workspace, logger *slog.Logger) (*Manager, error) {
	if projectID == "" {
		return nil, fmt.Errorf("sync: project id is required")
	}
	if ws == nil {
		return nil, fmt.Errorf("sync: workspace is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("project", projectID)

	doc, err := crdt.NewDocument(actor)
	if err != nil {
		return nil, err
	}

	snapshot, err := ws.ReadDocument(projectID)
	switch {
	case err == nil:
		if len(snapshot) > 0 {
			if err := doc.ApplyUpdate(snapshot, crdt.Remote("")); err != nil {
				return nil, fmt.Errorf("sync: load snapshot: %w", err)
			}
		}
	case storage.IsNotFound(err):
		// Fresh project, nothing persisted yet.
	default:
		return nil, fmt.Errorf("sync: load snapshot: %w", err)
	}

	updates, err := ws.DocumentUpdates(projectID)
	if err != nil && !storage.IsNotFound(err) {
		return nil, fmt.Errorf("sync: read update log: %w", err)
	}
	for i, u := range updates {
		if err := doc.ApplyUpdate(u, crdt.Remote("")); err != nil {
			logger.Warn("skipping corrupt update log entry", "index", i, "err", err)
		}
	}

	m := &Manager{projectID: projectID, ws: ws, log: logger, doc: doc}
	m.persistCancel = doc.Observe(m.persist)
	return m, nil
}

// ProjectID returns the project this manager serves.
func (m *Manager) ProjectID() string { return m.projectID }

// Doc returns the live document.
func (m *Manager) Doc() *crdt.Document { return m.doc }

// Assets returns the document's asset metadata view.
func (m *Manager) Assets() crdt.Map { return m.doc.Assets() }

// Awareness returns the document's presence view.
func (m *Manager) Awareness() crdt.Map { return m.doc.Awareness() }

// BindP2P connects the document to a transport. Locally originated updates
// are sent to peers; inbound updates are applied as remote writes and are
// never sent back out.
func (m *Manager) BindP2P(t Transport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.sendCancel != nil {
		return ErrAlreadyBound
	}
	m.sendCancel = m.doc.Observe(func(update []byte, origin crdt.Origin) {
		if !origin.ShouldBroadcast() {
			return
		}
		if err := t.SendUpdate(update); err != nil {
			m.log.Warn("sending update failed", "err", err)
		}
	})
	m.unsubscribe = t.Subscribe(func(update []byte) {
		if err := m.doc.ApplyUpdate(update, crdt.Remote("")); err != nil {
			m.log.Warn("dropping malformed inbound update", "err", err)
		}
	})
	return nil
}

// Unbind detaches the transport, leaving the manager open for local edits.
// It is a no-op when no transport is bound.
func (m *Manager) Unbind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unbindLocked()
}

func (m *Manager) unbindLocked() {
	if m.sendCancel != nil {
		m.sendCancel()
		m.sendCancel = nil
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Disconnect detaches the transport, compacts the persisted document, and
// releases the manager. It is idempotent; operations after Disconnect fail
// with ErrClosed.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.unbindLocked()
	if m.persistCancel != nil {
		m.persistCancel()
		m.persistCancel = nil
	}
	m.closed = true

	state, err := m.doc.EncodeState()
	if err != nil {
		return fmt.Errorf("sync: encode state: %w", err)
	}
	if err := m.ws.CompactDocument(m.projectID, state); err != nil {
		return fmt.Errorf("sync: compact document: %w", err)
	}
	return nil
}

// persist appends every applied update, local and remote, to the durable
// log so a crash before the next compaction loses nothing.
func (m *Manager) persist(update []byte, _ crdt.Origin) {
	if err := m.ws.AppendDocumentUpdate(m.projectID, update); err != nil {
		m.log.Error("persisting update failed", "err", err)
	}
}
