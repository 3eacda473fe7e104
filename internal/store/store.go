// Package store owns the durable template collection. Every mutation is a
// read-modify-persist cycle over the whole collection under a single writer
// lock; the in-memory state only advances after the persistence layer has
// accepted the new snapshot.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/templatehash/platform/internal/apperr"
	"github.com/templatehash/platform/internal/hash"
	"github.com/templatehash/platform/internal/template"
)

// Persistence is the durable snapshot API backing a Store. Save must be
// atomic: a crash mid-write may not leave a partial collection behind.
// A missing prior snapshot is not an error; Load returns an empty slice.
type Persistence interface {
	Load() ([]template.Template, error)
	Save([]template.Template) error
}

// Store manages the template collection.
type Store struct {
	mu        sync.RWMutex
	persist   Persistence
	templates []template.Template
	nextID    int
}

// Open loads the collection from persistence and returns a ready store.
func Open(p Persistence) (*Store, error) {
	templates, err := p.Load()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodePersistence, "loading template collection")
	}

	nextID := 1
	for _, t := range templates {
		if t.ID >= nextID {
			nextID = t.ID + 1
		}
	}
	slog.Info("template store opened", "templates", len(templates), "next_id", nextID)
	return &Store{persist: p, templates: templates, nextID: nextID}, nil
}

// CreateParams holds the inputs for a new template.
type CreateParams struct {
	Name               string
	Hash               hash.Fingerprint
	ReferenceImagePath string

	// Optional crop rectangle in the reference image's coordinate space.
	Crop *template.Rect
	// Reference image dimensions, 0 when unknown. Ratios are snapshotted
	// only when both a crop and positive dimensions are supplied.
	RefWidth  int
	RefHeight int
}

// Create adds a new template. Fails with DUPLICATE_NAME without mutating the
// store if the name is taken. IDs advance monotonically and are never reused,
// even after deletions, so external references stay stable.
func (s *Store) Create(params CreateParams) (template.Template, error) {
	if params.Name == "" {
		return template.Template{}, apperr.New(apperr.CodeInvalidArgument, "template name is required")
	}
	if err := params.Hash.Validate(); err != nil {
		return template.Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.templates {
		if t.Name == params.Name {
			return template.Template{}, apperr.Newf(apperr.CodeDuplicateName,
				"a template named %q already exists", params.Name)
		}
	}

	tmpl := template.Template{
		ID:                 s.nextID,
		Name:               params.Name,
		Hash:               params.Hash,
		ReferenceImagePath: params.ReferenceImagePath,
		CreatedAt:          time.Now().UTC(),
		RefWidth:           params.RefWidth,
		RefHeight:          params.RefHeight,
		Crop:               template.NewCrop(params.Crop, params.RefWidth, params.RefHeight),
	}

	next := append(s.snapshotLocked(), tmpl)
	if err := s.persist.Save(next); err != nil {
		return template.Template{}, apperr.Wrap(err, apperr.CodePersistence, "saving template collection")
	}
	s.templates = next
	s.nextID++

	slog.Info("template created", "id", tmpl.ID, "name", tmpl.Name)
	return tmpl, nil
}

// GetByID returns the template with the given id, or false.
func (s *Store) GetByID(id int) (template.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.templates {
		if t.ID == id {
			return t, true
		}
	}
	return template.Template{}, false
}

// GetByName returns the template with the exact (case-sensitive) name, or false.
func (s *Store) GetByName(name string) (template.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.templates {
		if t.Name == name {
			return t, true
		}
	}
	return template.Template{}, false
}

// List returns all templates in creation order.
func (s *Store) List() []template.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Count returns the number of stored templates.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// UpdateMetadata changes a template's name and/or reference image path.
// Fingerprint, crop and usage fields are immutable after creation.
func (s *Store) UpdateMetadata(id int, name, referenceImagePath string) (template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.templates {
		if t.ID == id {
			idx = i
		} else if name != "" && t.Name == name {
			return template.Template{}, apperr.Newf(apperr.CodeDuplicateName,
				"a template named %q already exists", name)
		}
	}
	if idx < 0 {
		return template.Template{}, apperr.Newf(apperr.CodeNotFound, "template %d not found", id)
	}

	next := s.snapshotLocked()
	if name != "" {
		next[idx].Name = name
	}
	if referenceImagePath != "" {
		next[idx].ReferenceImagePath = referenceImagePath
	}
	now := time.Now().UTC()
	next[idx].UpdatedAt = &now

	if err := s.persist.Save(next); err != nil {
		return template.Template{}, apperr.Wrap(err, apperr.CodePersistence, "saving template collection")
	}
	s.templates = next

	slog.Info("template updated", "id", id)
	return next[idx], nil
}

// Delete removes a template. Returns false (and leaves the store untouched)
// when the id is unknown; remaining ids are never renumbered.
func (s *Store) Delete(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]template.Template, 0, len(s.templates))
	found := false
	for _, t := range s.templates {
		if t.ID == id {
			found = true
			continue
		}
		next = append(next, t)
	}
	if !found {
		return false, nil
	}

	if err := s.persist.Save(next); err != nil {
		return false, apperr.Wrap(err, apperr.CodePersistence, "saving template collection")
	}
	s.templates = next

	slog.Info("template deleted", "id", id)
	return true, nil
}

// RecordUsage increments a template's usage count by exactly one and
// persists. Called by the matching engine once per successful match.
func (s *Store) RecordUsage(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.templates {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperr.Newf(apperr.CodeNotFound, "template %d not found", id)
	}

	next := s.snapshotLocked()
	next[idx].UsageCount++

	if err := s.persist.Save(next); err != nil {
		return apperr.Wrap(err, apperr.CodePersistence, "saving template collection")
	}
	s.templates = next
	return nil
}

// snapshotLocked copies the collection; callers hold at least a read lock.
func (s *Store) snapshotLocked() []template.Template {
	out := make([]template.Template, len(s.templates))
	copy(out, s.templates)
	return out
}
