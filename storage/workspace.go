package storage

// Workspace is durable storage for projects, their files and their
// replicated-document state.
//
// Contract:
//   - Projects MUST return records ordered by lastOpened descending, and
//     MUST skip (not abort on) individually corrupt metadata entries.
//   - Missing project/file/document references fail with ErrNotFound.
//   - All file paths are project-relative and MUST be sanitized via
//     CleanFilePath; violations fail with ErrInvalidPath.
//   - SaveProjectFile followed by ReadProjectFile returns byte-identical
//     content.
//   - Document updates are opaque bytes; AppendDocumentUpdate preserves
//     them exactly and DocumentUpdates returns them in append order.
//     CompactDocument atomically replaces the snapshot and clears the
//     pending update log.
type Workspace interface {
	CreateProject(rec *ProjectRecord) error
	Projects() ([]*ProjectRecord, error)
	Project(id string) (*ProjectRecord, error)
	UpdateProject(rec *ProjectRecord) error
	DeleteProject(id string) error

	SaveProjectFile(projectID, path string, data []byte) error
	ReadProjectFile(projectID, path string) ([]byte, error)
	ListProjectFiles(projectID string) ([]string, error)

	SaveDocument(projectID string, state []byte) error
	ReadDocument(projectID string) ([]byte, error)
	AppendDocumentUpdate(projectID string, update []byte) error
	DocumentUpdates(projectID string) ([][]byte, error)
	CompactDocument(projectID string, state []byte) error
}
