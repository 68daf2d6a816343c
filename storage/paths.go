package storage

import (
	"fmt"
	"strings"
)

// CleanFilePath sanitizes a project-relative file path.
//
// Contract:
//   - separators are normalized to forward slashes
//   - "." and ".." segments are rejected, as are empty segments
//   - NUL bytes are rejected
//   - the result never escapes the project's file sandbox
//
// Violations fail with ErrInvalidPath.
func CleanFilePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: NUL byte in path", ErrInvalidPath)
	}
	path = strings.ReplaceAll(path, "\\", "/")
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		switch seg {
		case "":
			return "", fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		case ".", "..":
			return "", fmt.Errorf("%w: %q segment in %q", ErrInvalidPath, seg, path)
		}
	}
	return strings.Join(segments, "/"), nil
}
