// Package match implements fingerprint nearest-neighbor search over the
// template store.
package match

import (
	"log/slog"

	"github.com/templatehash/platform/internal/hash"
	"github.com/templatehash/platform/internal/template"
)

// TemplateSource is the store surface the engine needs.
type TemplateSource interface {
	List() []template.Template
	RecordUsage(id int) error
}

// Match is a successful lookup result.
type Match struct {
	Template template.Template
	Distance int
}

// Skipped records a stored template that could not be compared against the
// query. One malformed record must not abort the whole search, so these are
// collected and reported alongside the result.
type Skipped struct {
	TemplateID int
	Name       string
	Err        error
}

// Engine scans the store for the nearest template fingerprint.
type Engine struct {
	source TemplateSource
}

// NewEngine creates a matching engine over the given store.
func NewEngine(source TemplateSource) *Engine {
	return &Engine{source: source}
}

// FindBestMatch returns the stored template with the globally minimum
// Hamming distance to the query, provided that distance is strictly below
// the threshold. Ties go to the template encountered first in store order
// (earliest creation). A successful match increments the winner's usage
// count exactly once; no match returns nil without error.
func (e *Engine) FindBestMatch(query hash.Fingerprint, threshold int) (*Match, []Skipped, error) {
	var (
		best     *Match
		skipped  []Skipped
		bestDist = threshold
	)

	for _, t := range e.source.List() {
		d, err := hash.Distance(query, t.Hash)
		if err != nil {
			slog.Warn("skipping template during match scan",
				"id", t.ID, "name", t.Name, "error", err)
			skipped = append(skipped, Skipped{TemplateID: t.ID, Name: t.Name, Err: err})
			continue
		}
		// Strictly below both the threshold and the running best: the first
		// of equally distant candidates wins.
		if d < bestDist {
			bestDist = d
			tmpl := t
			best = &Match{Template: tmpl, Distance: d}
		}
	}

	if best == nil {
		return nil, skipped, nil
	}

	if err := e.source.RecordUsage(best.Template.ID); err != nil {
		return nil, skipped, err
	}
	best.Template.UsageCount++

	slog.Info("template matched",
		"id", best.Template.ID, "name", best.Template.Name, "distance", best.Distance)
	return best, skipped, nil
}

// Score converts a distance to the cosmetic 0-100 similarity score. Display
// only, never consulted by matching decisions.
func Score(distance int) int {
	s := 100 - distance*5
	if s < 0 {
		return 0
	}
	return s
}

// Confidence buckets a distance into a coarse display label.
func Confidence(distance int) string {
	switch {
	case distance <= 2:
		return "high"
	case distance <= 5:
		return "medium"
	default:
		return "low"
	}
}
