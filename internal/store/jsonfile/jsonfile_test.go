package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/templatehash/platform/internal/template"
)

func TestLoadMissingFileYieldsEmpty(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "data", "templates.json"))

	templates, err := p.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(templates) != 0 {
		t.Errorf("expected empty collection, got %d templates", len(templates))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	p := New(path)

	now := time.Now().UTC().Truncate(time.Second)
	in := []template.Template{
		{
			ID: 1, Name: "plain", Hash: "a1b2c3d4e5f60718",
			ReferenceImagePath: "data/uploads/plain.png",
			CreatedAt:          now, UsageCount: 3,
		},
		{
			ID: 2, Name: "cropped", Hash: "ffffffffffffffff",
			CreatedAt: now, RefWidth: 200, RefHeight: 200,
			Crop: template.NewCrop(&template.Rect{X: 10, Y: 20, W: 100, H: 50}, 200, 200),
		},
	}
	if err := p.Save(in); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	out, err := p.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("loaded %d templates, want 2", len(out))
	}
	if out[0].Name != "plain" || out[0].UsageCount != 3 {
		t.Errorf("first template = %+v", out[0])
	}
	if out[1].Crop.Kind != template.CropWithRatios {
		t.Errorf("crop kind = %v, want CropWithRatios", out[1].Crop.Kind)
	}
	if out[1].Crop.XRatio != 0.05 {
		t.Errorf("x ratio = %v, want 0.05", out[1].Crop.XRatio)
	}
}

func TestSaveWritesEnvelope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	p := New(path)
	if err := p.Save([]template.Template{{ID: 1, Name: "a", Hash: "00"}}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("file is not valid JSON: %v", err)
	}
	if _, ok := doc["templates"]; !ok {
		t.Error(`file should use the {"templates": [...]} envelope`)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p := New(filepath.Join(dir, "templates.json"))
	if err := p.Save(nil); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".templates-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	p := New(path)

	if err := p.Save([]template.Template{{ID: 1, Name: "a", Hash: "00"}}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := p.Save([]template.Template{}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	out, err := p.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty collection after overwrite, got %d", len(out))
	}
}
