// Package upload persists reference images for templates on local disk.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/templatehash/platform/internal/apperr"
)

// Store writes uploaded reference images under a base directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created lazily on
// the first Save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes data to a new file named after the template and returns the
// resulting path. A short random suffix keeps repeated uploads of the same
// template name from colliding.
func (s *Store) Save(templateName, originalName, format string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", apperr.Wrap(err, apperr.CodePersistence, "creating upload directory")
	}

	name := fmt.Sprintf("%s_%s%s", sanitize(templateName), uuid.NewString()[:8], extension(originalName, format))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", apperr.Wrapf(err, apperr.CodePersistence, "writing reference image %s", path)
	}
	return path, nil
}

// sanitize turns a template name into a safe filename fragment.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "template"
	}
	return out
}

// extension picks a file extension from the original filename, falling back
// to the decoded image format.
func extension(originalName, format string) string {
	if ext := filepath.Ext(originalName); ext != "" {
		return strings.ToLower(ext)
	}
	if format != "" {
		return "." + format
	}
	return ".img"
}
