package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/templatehash/platform/internal/apperr"
	"github.com/templatehash/platform/internal/hash"
)

// encodePNG renders a horizontal gradient so the DCT hash has structure.
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / w)
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode error: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyze(t *testing.T) {
	data := encodePNG(t, 120, 80)

	info, err := Analyze(data)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if info.Width != 120 || info.Height != 80 {
		t.Errorf("dimensions = %dx%d, want 120x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format = %q, want png", info.Format)
	}
	if len(info.Fingerprint) != 16 {
		t.Errorf("fingerprint = %q, want 16 hex chars", info.Fingerprint)
	}
	if err := info.Fingerprint.Validate(); err != nil {
		t.Errorf("fingerprint not valid hex: %v", err)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	data := encodePNG(t, 64, 64)

	a, err := Analyze(data)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	b, err := Analyze(data)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if a.Fingerprint != b.Fingerprint {
		t.Errorf("fingerprints differ for identical input: %q vs %q", a.Fingerprint, b.Fingerprint)
	}

	d, err := hash.Distance(a.Fingerprint, b.Fingerprint)
	if err != nil || d != 0 {
		t.Errorf("self distance = %d, %v, want 0, nil", d, err)
	}
}

func TestAnalyzeUnreadable(t *testing.T) {
	_, err := Analyze([]byte("not an image"))
	if !apperr.IsCode(err, apperr.CodeUnreadableImage) {
		t.Errorf("error = %v, want UNREADABLE_IMAGE", err)
	}

	_, err = Analyze(nil)
	if !apperr.IsCode(err, apperr.CodeUnreadableImage) {
		t.Errorf("error for empty input = %v, want UNREADABLE_IMAGE", err)
	}
}

func TestDimensions(t *testing.T) {
	data := encodePNG(t, 33, 47)

	w, h, err := Dimensions(data)
	if err != nil {
		t.Fatalf("Dimensions error: %v", err)
	}
	if w != 33 || h != 47 {
		t.Errorf("dimensions = %dx%d, want 33x47", w, h)
	}
}
