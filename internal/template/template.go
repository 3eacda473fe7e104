// Package template defines the stored template entity and its crop geometry.
package template

import (
	"time"

	"github.com/templatehash/platform/internal/hash"
)

// CropKind tags the crop variant carried by a template.
type CropKind int

const (
	// NoCrop means the template carries no crop descriptor.
	NoCrop CropKind = iota
	// CropAbsolute means pixel coordinates only, frozen in the reference
	// image's coordinate space. Pre-ratio templates stay in this mode.
	CropAbsolute
	// CropWithRatios means pixel coordinates plus ratios snapshotted at
	// creation from the reference image's dimensions.
	CropWithRatios
)

// Rect is a crop rectangle in pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// Crop is the tagged crop descriptor of a template. Ratio fields are only
// meaningful when Kind is CropWithRatios; they are a frozen snapshot of
// coordinate/reference-dimension computed once at creation.
type Crop struct {
	Kind   CropKind
	Rect   Rect
	XRatio float64
	YRatio float64
	WRatio float64
	HRatio float64
}

// Template is a stored reference fingerprint with metadata and optional crop.
type Template struct {
	ID                 int
	Name               string
	Hash               hash.Fingerprint
	ReferenceImagePath string
	CreatedAt          time.Time
	UpdatedAt          *time.Time
	UsageCount         int

	// Reference image dimensions at creation, 0 when unknown.
	RefWidth  int
	RefHeight int

	Crop Crop
}

// NewCrop builds the crop descriptor for a new template. Ratios are computed
// only when a complete rectangle and positive reference dimensions are
// available; otherwise the crop stays absolute-only (or absent).
func NewCrop(rect *Rect, refWidth, refHeight int) Crop {
	if rect == nil {
		return Crop{Kind: NoCrop}
	}
	c := Crop{Kind: CropAbsolute, Rect: *rect}
	if refWidth > 0 && refHeight > 0 {
		c.Kind = CropWithRatios
		c.XRatio = float64(rect.X) / float64(refWidth)
		c.YRatio = float64(rect.Y) / float64(refHeight)
		c.WRatio = float64(rect.W) / float64(refWidth)
		c.HRatio = float64(rect.H) / float64(refHeight)
	}
	return c
}
