// Package jsonfile persists the template collection as a single JSON
// document, compatible with the deployed templates.json layout. Saves write
// to a temp file in the same directory and rename over the target, so a crash
// mid-write never leaves a partial collection behind.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/templatehash/platform/internal/template"
)

// document is the on-disk envelope.
type document struct {
	Templates []template.Record `json:"templates"`
}

// Persistence is a file-backed store.Persistence implementation.
type Persistence struct {
	path string
}

// New returns a persistence rooted at path. The parent directory is created
// on the first Save.
func New(path string) *Persistence {
	return &Persistence{path: path}
}

// Load reads the collection. A missing file yields an empty collection.
func (p *Persistence) Load() ([]template.Template, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return []template.Template{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p.path, err)
	}

	templates := make([]template.Template, 0, len(doc.Templates))
	for _, rec := range doc.Templates {
		templates = append(templates, rec.Template())
	}
	return templates, nil
}

// Save atomically replaces the collection on disk.
func (p *Persistence) Save(templates []template.Template) error {
	doc := document{Templates: make([]template.Record, 0, len(templates))}
	for _, t := range templates {
		doc.Templates = append(doc.Templates, template.ToRecord(t))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding template collection: %w", err)
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".templates-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("replacing %s: %w", p.path, err)
	}
	return nil
}
