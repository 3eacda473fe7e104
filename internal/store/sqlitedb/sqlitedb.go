// Package sqlitedb persists the template collection in an embedded SQLite
// database (modernc.org/sqlite, no cgo). It implements the same snapshot
// contract as the JSON file backend: Save replaces the whole collection in a
// single transaction, Load returns it in storage order.
package sqlitedb

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/templatehash/platform/internal/hash"
	"github.com/templatehash/platform/internal/template"
)

const schema = `
create table if not exists templates (
    position integer not null,
    id integer primary key,
    name text not null unique,
    hash text not null,
    reference_image_path text not null,
    created_at text not null,
    updated_at text,
    usage_count integer not null default 0,
    image_width integer,
    image_height integer,
    crop_x integer,
    crop_y integer,
    crop_w integer,
    crop_h integer,
    crop_x_ratio real,
    crop_y_ratio real,
    crop_w_ratio real,
    crop_h_ratio real
)`

// Persistence is a SQLite-backed store.Persistence implementation.
type Persistence struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Persistence, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// The store serializes writes itself; a single connection avoids
	// SQLITE_BUSY on concurrent reads during a write.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating templates table: %w", err)
	}
	return &Persistence{db: db}, nil
}

// Close releases the database handle.
func (p *Persistence) Close() error { return p.db.Close() }

// Load reads the collection in storage order.
func (p *Persistence) Load() ([]template.Template, error) {
	rows, err := p.db.Query(`
		select id, name, hash, reference_image_path, created_at, updated_at, usage_count,
		       image_width, image_height,
		       crop_x, crop_y, crop_w, crop_h,
		       crop_x_ratio, crop_y_ratio, crop_w_ratio, crop_h_ratio
		from templates order by position`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var templates []template.Template
	for rows.Next() {
		var (
			t          template.Template
			hashStr    string
			createdAt  string
			updatedAt  sql.NullString
			imgW, imgH sql.NullInt64
			cx, cy     sql.NullInt64
			cw, ch     sql.NullInt64
			rx, ry     sql.NullFloat64
			rw, rh     sql.NullFloat64
		)
		if err := rows.Scan(&t.ID, &t.Name, &hashStr, &t.ReferenceImagePath,
			&createdAt, &updatedAt, &t.UsageCount,
			&imgW, &imgH, &cx, &cy, &cw, &ch, &rx, &ry, &rw, &rh); err != nil {
			return nil, fmt.Errorf("scanning template row: %w", err)
		}

		t.Hash = hash.Fingerprint(hashStr)
		t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
		}
		if updatedAt.Valid {
			parsed, err := time.Parse(time.RFC3339Nano, updatedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt.String, err)
			}
			t.UpdatedAt = &parsed
		}
		if imgW.Valid {
			t.RefWidth = int(imgW.Int64)
		}
		if imgH.Valid {
			t.RefHeight = int(imgH.Int64)
		}

		if cx.Valid && cy.Valid && cw.Valid && ch.Valid {
			t.Crop = template.Crop{
				Kind: template.CropAbsolute,
				Rect: template.Rect{X: int(cx.Int64), Y: int(cy.Int64), W: int(cw.Int64), H: int(ch.Int64)},
			}
			if rx.Valid && ry.Valid && rw.Valid && rh.Valid {
				t.Crop.Kind = template.CropWithRatios
				t.Crop.XRatio = rx.Float64
				t.Crop.YRatio = ry.Float64
				t.Crop.WRatio = rw.Float64
				t.Crop.HRatio = rh.Float64
			}
		}

		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating template rows: %w", err)
	}
	if templates == nil {
		templates = []template.Template{}
	}
	return templates, nil
}

// Save replaces the whole collection in one transaction.
func (p *Persistence) Save(templates []template.Template) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`delete from templates`); err != nil {
		return fmt.Errorf("clearing templates: %w", err)
	}

	stmt, err := tx.Prepare(`
		insert into templates (position, id, name, hash, reference_image_path,
		                       created_at, updated_at, usage_count,
		                       image_width, image_height,
		                       crop_x, crop_y, crop_w, crop_h,
		                       crop_x_ratio, crop_y_ratio, crop_w_ratio, crop_h_ratio)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range templates {
		var updatedAt any
		if t.UpdatedAt != nil {
			updatedAt = t.UpdatedAt.Format(time.RFC3339Nano)
		}
		imgW := nullableInt(t.RefWidth)
		imgH := nullableInt(t.RefHeight)

		var cx, cy, cw, ch, rx, ry, rw, rh any
		if t.Crop.Kind != template.NoCrop {
			cx, cy, cw, ch = t.Crop.Rect.X, t.Crop.Rect.Y, t.Crop.Rect.W, t.Crop.Rect.H
		}
		if t.Crop.Kind == template.CropWithRatios {
			rx, ry, rw, rh = t.Crop.XRatio, t.Crop.YRatio, t.Crop.WRatio, t.Crop.HRatio
		}

		if _, err := stmt.Exec(i, t.ID, t.Name, string(t.Hash), t.ReferenceImagePath,
			t.CreatedAt.Format(time.RFC3339Nano), updatedAt, t.UsageCount,
			imgW, imgH, cx, cy, cw, ch, rx, ry, rw, rh); err != nil {
			return fmt.Errorf("inserting template %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// nullableInt maps the 0 "unknown" sentinel to SQL NULL.
func nullableInt(v int) any {
	if v <= 0 {
		return nil
	}
	return v
}
