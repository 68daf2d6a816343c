package project

import (
	"holi.app/vault/storage"
)

// SaveProjectFile writes a file under a project and records its path in
// the project's asset list. It returns the content id of the written
// bytes.
func (m *Manager) SaveProjectFile(projectID, path string, data []byte) (string, error) {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return "", err
	}
	clean, err := storage.CleanFilePath(path)
	if err != nil {
		return "", err
	}
	if err := ws.SaveProjectFile(projectID, clean, data); err != nil {
		return "", err
	}

	rec, err := ws.Project(projectID)
	if err != nil {
		return "", err
	}
	known := false
	for _, a := range rec.Assets {
		if a == clean {
			known = true
			break
		}
	}
	if !known {
		rec.Assets = append(rec.Assets, clean)
		if err := ws.UpdateProject(rec); err != nil {
			return "", err
		}
	}

	return storage.ContentID(data), nil
}

// ReadProjectFile returns a project file's content.
func (m *Manager) ReadProjectFile(projectID, path string) ([]byte, error) {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return nil, err
	}
	return ws.ReadProjectFile(projectID, path)
}

// ListProjectFiles returns the project's file paths, sorted.
func (m *Manager) ListProjectFiles(projectID string) ([]string, error) {
	ws, err := m.ctx.Resolve()
	if err != nil {
		return nil, err
	}
	return ws.ListProjectFiles(projectID)
}
