package template

import (
	"time"

	"github.com/templatehash/platform/internal/hash"
)

// Record is the flat wire form of a Template, matching the deployed
// templates.json layout and the HTTP API: optional crop, dimension and ratio
// fields are pointers that serialize only when present. A crop is treated as
// complete only when all four absolute fields are set; ratio fields are
// honored only as a complete set of four.
type Record struct {
	ID                 int        `json:"id"`
	Name               string     `json:"name"`
	Hash               string     `json:"hash"`
	ReferenceImagePath string     `json:"reference_image_path"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
	UsageCount         int        `json:"usage_count"`

	CropX *int `json:"crop_x,omitempty"`
	CropY *int `json:"crop_y,omitempty"`
	CropW *int `json:"crop_w,omitempty"`
	CropH *int `json:"crop_h,omitempty"`

	ImageWidth  *int `json:"image_width,omitempty"`
	ImageHeight *int `json:"image_height,omitempty"`

	CropXRatio *float64 `json:"crop_x_ratio,omitempty"`
	CropYRatio *float64 `json:"crop_y_ratio,omitempty"`
	CropWRatio *float64 `json:"crop_w_ratio,omitempty"`
	CropHRatio *float64 `json:"crop_h_ratio,omitempty"`
}

// ToRecord flattens a Template into its wire form.
func ToRecord(t Template) Record {
	r := Record{
		ID:                 t.ID,
		Name:               t.Name,
		Hash:               string(t.Hash),
		ReferenceImagePath: t.ReferenceImagePath,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		UsageCount:         t.UsageCount,
	}
	if t.RefWidth > 0 {
		r.ImageWidth = intPtr(t.RefWidth)
	}
	if t.RefHeight > 0 {
		r.ImageHeight = intPtr(t.RefHeight)
	}
	if t.Crop.Kind == NoCrop {
		return r
	}
	r.CropX = intPtr(t.Crop.Rect.X)
	r.CropY = intPtr(t.Crop.Rect.Y)
	r.CropW = intPtr(t.Crop.Rect.W)
	r.CropH = intPtr(t.Crop.Rect.H)
	if t.Crop.Kind == CropWithRatios {
		r.CropXRatio = floatPtr(t.Crop.XRatio)
		r.CropYRatio = floatPtr(t.Crop.YRatio)
		r.CropWRatio = floatPtr(t.Crop.WRatio)
		r.CropHRatio = floatPtr(t.Crop.HRatio)
	}
	return r
}

// Template reconstructs the tagged domain form. Incomplete crop field sets
// degrade: a partial rectangle is dropped, a partial ratio set falls back to
// absolute-only.
func (r Record) Template() Template {
	t := Template{
		ID:                 r.ID,
		Name:               r.Name,
		Hash:               hash.Fingerprint(r.Hash),
		ReferenceImagePath: r.ReferenceImagePath,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		UsageCount:         r.UsageCount,
	}
	if r.ImageWidth != nil {
		t.RefWidth = *r.ImageWidth
	}
	if r.ImageHeight != nil {
		t.RefHeight = *r.ImageHeight
	}

	if r.CropX == nil || r.CropY == nil || r.CropW == nil || r.CropH == nil {
		t.Crop = Crop{Kind: NoCrop}
		return t
	}
	t.Crop = Crop{
		Kind: CropAbsolute,
		Rect: Rect{X: *r.CropX, Y: *r.CropY, W: *r.CropW, H: *r.CropH},
	}
	if r.CropXRatio != nil && r.CropYRatio != nil && r.CropWRatio != nil && r.CropHRatio != nil {
		t.Crop.Kind = CropWithRatios
		t.Crop.XRatio = *r.CropXRatio
		t.Crop.YRatio = *r.CropYRatio
		t.Crop.WRatio = *r.CropWRatio
		t.Crop.HRatio = *r.CropHRatio
	}
	return t
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
