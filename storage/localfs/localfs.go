// Package localfs implements the native-filesystem workspace backend.
//
// Each project lives under <root>/projects/<id>/ as one metadata document
// (project.json) plus files/ and documents/ subtrees. The layout is plain
// enough to inspect and back up with ordinary tools, which is the point of
// a user-granted native storage root.
package localfs

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"holi.app/vault/storage"
)

const (
	projectsDir  = "projects"
	metaFile     = "project.json"
	filesDir     = "files"
	documentsDir = "documents"
	stateFile    = "state.bin"
	updatesDir   = "updates"
)

// Workspace is a filesystem-backed storage.Workspace rooted at a granted
// directory. It is safe for concurrent use by independent operations; the
// usual single-writer discipline for a given project applies.
type Workspace struct {
	root string
	log  *slog.Logger
}

var _ storage.Workspace = (*Workspace)(nil)

// New opens (creating if needed) a workspace rooted at root.
// A nil logger falls back to slog.Default.
func New(root string, logger *slog.Logger) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("localfs: root directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(root, projectsDir), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
	}
	return &Workspace{root: root, log: logger}, nil
}

// Root returns the granted root directory.
func (w *Workspace) Root() string { return w.root }

func (w *Workspace) projectDir(id string) (string, error) {
	if err := checkProjectID(id); err != nil {
		return "", err
	}
	return filepath.Join(w.root, projectsDir, id), nil
}

// checkProjectID keeps ids usable as single directory names.
func checkProjectID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty project id", storage.ErrInvalidPath)
	}
	if strings.ContainsAny(id, "/\\\x00") || id == "." || id == ".." {
		return fmt.Errorf("%w: project id %q", storage.ErrInvalidPath, id)
	}
	return nil
}

func (w *Workspace) CreateProject(rec *storage.ProjectRecord) error {
	dir, err := w.projectDir(rec.ID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("localfs: project %s already exists", rec.ID)
	}
	data, err := storage.EncodeProjectRecord(rec)
	if err != nil {
		return err
	}
	for _, sub := range []string{filesDir, documentsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
		}
	}
	return w.writeMeta(dir, data)
}

func (w *Workspace) Projects() ([]*storage.ProjectRecord, error) {
	entries, err := os.ReadDir(filepath.Join(w.root, projectsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", storage.ErrWorkspaceUnavailable, err)
	}

	var records []*storage.ProjectRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(w.root, projectsDir, entry.Name(), metaFile))
		if err != nil {
			w.log.Warn("skipping unreadable project entry", "project", entry.Name(), "error", err)
			continue
		}
		rec, err := storage.DecodeProjectRecord(data)
		if err != nil {
			w.log.Warn("skipping corrupt project entry", "project", entry.Name(), "error", err)
			continue
		}
		records = append(records, rec)
	}
	storage.SortProjects(records)
	return records, nil
}

func (w *Workspace) Project(id string) (*storage.ProjectRecord, error) {
	dir, err := w.projectDir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: project %s", storage.ErrNotFound, id)
		}
		return nil, err
	}
	return storage.DecodeProjectRecord(data)
}

func (w *Workspace) UpdateProject(rec *storage.ProjectRecord) error {
	dir, err := w.projectDir(rec.ID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: project %s", storage.ErrNotFound, rec.ID)
		}
		return err
	}
	data, err := storage.EncodeProjectRecord(rec)
	if err != nil {
		return err
	}
	return w.writeMeta(dir, data)
}

func (w *Workspace) DeleteProject(id string) error {
	dir, err := w.projectDir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: project %s", storage.ErrNotFound, id)
		}
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	return nil
}

// writeMeta replaces project.json atomically: write-temp, fsync, rename.
func (w *Workspace) writeMeta(dir string, data []byte) error {
	tmp, err := os.CreateTemp(dir, metaFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	if err := os.Rename(name, filepath.Join(dir, metaFile)); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	return nil
}

func (w *Workspace) filePath(projectID, path string) (string, error) {
	dir, err := w.projectDir(projectID)
	if err != nil {
		return "", err
	}
	clean, err := storage.CleanFilePath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filesDir, filepath.FromSlash(clean)), nil
}

func (w *Workspace) requireProject(projectID string) (string, error) {
	dir, err := w.projectDir(projectID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: project %s", storage.ErrNotFound, projectID)
		}
		return "", err
	}
	return dir, nil
}

func (w *Workspace) SaveProjectFile(projectID, path string, data []byte) error {
	if _, err := w.requireProject(projectID); err != nil {
		return err
	}
	target, err := w.filePath(projectID, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	return nil
}

func (w *Workspace) ReadProjectFile(projectID, path string) ([]byte, error) {
	if _, err := w.requireProject(projectID); err != nil {
		return nil, err
	}
	target, err := w.filePath(projectID, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file %s", storage.ErrNotFound, path)
		}
		return nil, err
	}
	return data, nil
}

func (w *Workspace) ListProjectFiles(projectID string) ([]string, error) {
	dir, err := w.requireProject(projectID)
	if err != nil {
		return nil, err
	}
	base := filepath.Join(dir, filesDir)
	var paths []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (w *Workspace) SaveDocument(projectID string, state []byte) error {
	dir, err := w.requireProject(projectID)
	if err != nil {
		return err
	}
	target := filepath.Join(dir, documentsDir, stateFile)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	if err := os.WriteFile(target, state, 0o644); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	return nil
}

func (w *Workspace) ReadDocument(projectID string) ([]byte, error) {
	dir, err := w.requireProject(projectID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, documentsDir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: document for %s", storage.ErrNotFound, projectID)
		}
		return nil, err
	}
	return data, nil
}

func (w *Workspace) AppendDocumentUpdate(projectID string, update []byte) error {
	dir, err := w.requireProject(projectID)
	if err != nil {
		return err
	}
	updates := filepath.Join(dir, documentsDir, updatesDir)
	if err := os.MkdirAll(updates, 0o755); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	seq, err := nextUpdateSeq(updates)
	if err != nil {
		return err
	}
	target := filepath.Join(updates, fmt.Sprintf("%08d.bin", seq))
	if err := os.WriteFile(target, update, 0o644); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	return nil
}

func (w *Workspace) DocumentUpdates(projectID string) ([][]byte, error) {
	dir, err := w.requireProject(projectID)
	if err != nil {
		return nil, err
	}
	updates := filepath.Join(dir, documentsDir, updatesDir)
	entries, err := os.ReadDir(updates)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".bin") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(updates, name))
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func (w *Workspace) CompactDocument(projectID string, state []byte) error {
	if err := w.SaveDocument(projectID, state); err != nil {
		return err
	}
	dir, err := w.projectDir(projectID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(dir, documentsDir, updatesDir)); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWriteFailure, err)
	}
	return nil
}

func nextUpdateSeq(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, err
	}
	max := 0
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".bin")
		var n int
		if _, err := fmt.Sscanf(name, "%d", &n); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}
