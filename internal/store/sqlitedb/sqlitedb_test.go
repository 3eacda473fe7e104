package sqlitedb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/templatehash/platform/internal/template"
)

func openTestDB(t *testing.T) *Persistence {
	t.Helper()
	p, err := Open(filepath.Join(t.TempDir(), "templates.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestLoadEmptyDatabase(t *testing.T) {
	p := openTestDB(t)

	templates, err := p.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(templates) != 0 {
		t.Errorf("expected empty collection, got %d", len(templates))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := openTestDB(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	updated := now.Add(time.Hour)
	in := []template.Template{
		{
			ID: 1, Name: "plain", Hash: "a1b2c3d4e5f60718",
			ReferenceImagePath: "data/uploads/plain.png",
			CreatedAt:          now, UpdatedAt: &updated, UsageCount: 9,
		},
		{
			ID: 4, Name: "cropped", Hash: "ffffffffffffffff",
			CreatedAt: now, RefWidth: 200, RefHeight: 200,
			Crop: template.NewCrop(&template.Rect{X: 10, Y: 20, W: 100, H: 50}, 200, 200),
		},
		{
			ID: 5, Name: "absolute-only", Hash: "0f0f0f0f0f0f0f0f",
			CreatedAt: now,
			Crop:      template.NewCrop(&template.Rect{X: 1, Y: 2, W: 3, H: 4}, 0, 0),
		},
	}
	if err := p.Save(in); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	out, err := p.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("loaded %d templates, want 3", len(out))
	}

	if out[0].Name != "plain" || out[0].UsageCount != 9 {
		t.Errorf("first template = %+v", out[0])
	}
	if out[0].UpdatedAt == nil || !out[0].UpdatedAt.Equal(updated) {
		t.Errorf("updated_at lost: %v", out[0].UpdatedAt)
	}
	if out[1].Crop.Kind != template.CropWithRatios || out[1].Crop.WRatio != 0.5 {
		t.Errorf("cropped template = %+v", out[1].Crop)
	}
	if out[2].Crop.Kind != template.CropAbsolute {
		t.Errorf("absolute-only crop kind = %v", out[2].Crop.Kind)
	}
	if out[2].UpdatedAt != nil {
		t.Errorf("unexpected updated_at: %v", out[2].UpdatedAt)
	}
}

func TestSaveReplacesSnapshot(t *testing.T) {
	p := openTestDB(t)

	now := time.Now().UTC()
	if err := p.Save([]template.Template{
		{ID: 1, Name: "a", Hash: "00", CreatedAt: now},
		{ID: 2, Name: "b", Hash: "00", CreatedAt: now},
	}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := p.Save([]template.Template{
		{ID: 2, Name: "b", Hash: "00", CreatedAt: now},
	}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	out, err := p.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(out) != 1 || out[0].ID != 2 {
		t.Errorf("snapshot = %+v, want only id 2", out)
	}
}

func TestLoadPreservesStorageOrder(t *testing.T) {
	p := openTestDB(t)

	now := time.Now().UTC()
	// Storage order intentionally differs from id order.
	in := []template.Template{
		{ID: 3, Name: "third", Hash: "00", CreatedAt: now},
		{ID: 1, Name: "first", Hash: "00", CreatedAt: now},
	}
	if err := p.Save(in); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	out, err := p.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if out[0].ID != 3 || out[1].ID != 1 {
		t.Errorf("order = %d,%d, want 3,1", out[0].ID, out[1].ID)
	}
}
