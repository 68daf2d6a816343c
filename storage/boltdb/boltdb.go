// Package boltdb implements the embedded workspace backend over bbolt.
//
// It serves every project whose bytes are not under a native storage grant:
// a single database file holds project metadata, project files and
// replicated-document state in separate buckets. Update logs use bbolt's
// per-bucket sequence numbers so append order survives restarts.
package boltdb

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	bolt "go.etcd.io/bbolt"

	"holi.app/vault/storage"
)

const (
	bucketProjects  = "projects"
	bucketFiles     = "files"
	bucketDocuments = "documents"
	bucketUpdates   = "updates"
)

// Workspace is an embedded-database-backed storage.Workspace.
type Workspace struct {
	db  *bolt.DB
	log *slog.Logger
}

var _ storage.Workspace = (*Workspace)(nil)

// Open opens (creating if needed) the embedded workspace database at path.
// A nil logger falls back to slog.Default.
func Open(path string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketProjects, bucketFiles, bucketDocuments, bucketUpdates} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
	}
	return &Workspace{db: db, log: logger}, nil
}

// Close releases the database file.
func (w *Workspace) Close() error { return w.db.Close() }

func (w *Workspace) CreateProject(rec *storage.ProjectRecord) error {
	data, err := storage.EncodeProjectRecord(rec)
	if err != nil {
		return err
	}
	return w.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketProjects))
		if b.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("boltdb: project %s already exists", rec.ID)
		}
		if err := b.Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		return nil
	})
}

func (w *Workspace) Projects() ([]*storage.ProjectRecord, error) {
	var records []*storage.ProjectRecord
	err := w.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketProjects)).ForEach(func(k, v []byte) error {
			rec, err := storage.DecodeProjectRecord(v)
			if err != nil {
				w.log.Warn("skipping corrupt project entry", "project", string(k), "error", err)
				return nil
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	storage.SortProjects(records)
	return records, nil
}

func (w *Workspace) Project(id string) (*storage.ProjectRecord, error) {
	var rec *storage.ProjectRecord
	err := w.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketProjects)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: project %s", storage.ErrNotFound, id)
		}
		var err error
		rec, err = storage.DecodeProjectRecord(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (w *Workspace) UpdateProject(rec *storage.ProjectRecord) error {
	data, err := storage.EncodeProjectRecord(rec)
	if err != nil {
		return err
	}
	return w.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketProjects))
		if b.Get([]byte(rec.ID)) == nil {
			return fmt.Errorf("%w: project %s", storage.ErrNotFound, rec.ID)
		}
		if err := b.Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		return nil
	})
}

func (w *Workspace) DeleteProject(id string) error {
	return w.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketProjects))
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: project %s", storage.ErrNotFound, id)
		}
		if err := b.Delete([]byte(id)); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		for _, name := range []string{bucketFiles, bucketUpdates} {
			if err := deleteSubBucket(tx, name, id); err != nil {
				return err
			}
		}
		if err := tx.Bucket([]byte(bucketDocuments)).Delete([]byte(id)); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		return nil
	})
}

func deleteSubBucket(tx *bolt.Tx, parent, id string) error {
	b := tx.Bucket([]byte(parent))
	if b.Bucket([]byte(id)) == nil {
		return nil
	}
	if err := b.DeleteBucket([]byte(id)); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	return nil
}

func requireProject(tx *bolt.Tx, id string) error {
	if tx.Bucket([]byte(bucketProjects)).Get([]byte(id)) == nil {
		return fmt.Errorf("%w: project %s", storage.ErrNotFound, id)
	}
	return nil
}

func (w *Workspace) SaveProjectFile(projectID, path string, data []byte) error {
	clean, err := storage.CleanFilePath(path)
	if err != nil {
		return err
	}
	return w.db.Update(func(tx *bolt.Tx) error {
		if err := requireProject(tx, projectID); err != nil {
			return err
		}
		b, err := tx.Bucket([]byte(bucketFiles)).CreateBucketIfNotExists([]byte(projectID))
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		if err := b.Put([]byte(clean), data); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		return nil
	})
}

func (w *Workspace) ReadProjectFile(projectID, path string) ([]byte, error) {
	clean, err := storage.CleanFilePath(path)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = w.db.View(func(tx *bolt.Tx) error {
		if err := requireProject(tx, projectID); err != nil {
			return err
		}
		b := tx.Bucket([]byte(bucketFiles)).Bucket([]byte(projectID))
		if b == nil {
			return fmt.Errorf("%w: file %s", storage.ErrNotFound, clean)
		}
		v := b.Get([]byte(clean))
		if v == nil {
			return fmt.Errorf("%w: file %s", storage.ErrNotFound, clean)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (w *Workspace) ListProjectFiles(projectID string) ([]string, error) {
	var paths []string
	err := w.db.View(func(tx *bolt.Tx) error {
		if err := requireProject(tx, projectID); err != nil {
			return err
		}
		b := tx.Bucket([]byte(bucketFiles)).Bucket([]byte(projectID))
		if b == nil {
			return nil
		}
		// Bucket keys iterate in byte order, which is the sorted order the
		// listing contract requires.
		return b.ForEach(func(k, v []byte) error {
			paths = append(paths, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (w *Workspace) SaveDocument(projectID string, state []byte) error {
	return w.db.Update(func(tx *bolt.Tx) error {
		if err := requireProject(tx, projectID); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(bucketDocuments)).Put([]byte(projectID), state); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		return nil
	})
}

func (w *Workspace) ReadDocument(projectID string) ([]byte, error) {
	var state []byte
	err := w.db.View(func(tx *bolt.Tx) error {
		if err := requireProject(tx, projectID); err != nil {
			return err
		}
		v := tx.Bucket([]byte(bucketDocuments)).Get([]byte(projectID))
		if v == nil {
			return fmt.Errorf("%w: document for %s", storage.ErrNotFound, projectID)
		}
		state = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (w *Workspace) AppendDocumentUpdate(projectID string, update []byte) error {
	return w.db.Update(func(tx *bolt.Tx) error {
		if err := requireProject(tx, projectID); err != nil {
			return err
		}
		b, err := tx.Bucket([]byte(bucketUpdates)).CreateBucketIfNotExists([]byte(projectID))
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		if err := b.Put(marshalSeq(seq), update); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		return nil
	})
}

func (w *Workspace) DocumentUpdates(projectID string) ([][]byte, error) {
	var updates [][]byte
	err := w.db.View(func(tx *bolt.Tx) error {
		if err := requireProject(tx, projectID); err != nil {
			return err
		}
		b := tx.Bucket([]byte(bucketUpdates)).Bucket([]byte(projectID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			updates = append(updates, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updates, nil
}

func (w *Workspace) CompactDocument(projectID string, state []byte) error {
	return w.db.Update(func(tx *bolt.Tx) error {
		if err := requireProject(tx, projectID); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(bucketDocuments)).Put([]byte(projectID), state); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
		return deleteSubBucket(tx, bucketUpdates, projectID)
	})
}

func marshalSeq(seq uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, seq)
	return out
}
