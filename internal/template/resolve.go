package template

import "math"

// CropMode tags how a crop rectangle was produced for a target image.
type CropMode string

const (
	// ModeRatioBased scales the stored ratios to the target dimensions.
	// The only resolution-independent mode.
	ModeRatioBased CropMode = "ratio_based"
	// ModeAbsolute returns the stored pixel coordinates verbatim. Kept for
	// templates created before ratio tracking; geometrically wrong when the
	// target differs from the reference size, but changing it would silently
	// alter deployed templates. Frozen compatibility contract.
	ModeAbsolute CropMode = "absolute_coordinates"
	// ModeNoCrop means the template has no crop data.
	ModeNoCrop CropMode = "no_crop_data"
)

// CropResult is a resolved crop rectangle for a specific target image.
type CropResult struct {
	Mode CropMode
	Rect Rect
}

// ResolveCrop produces the crop rectangle to apply to an image of the given
// dimensions. Ratio scaling rounds half away from zero (math.Round): the
// result feeds pixel cropping, so the rule is fixed here rather than left to
// callers.
func ResolveCrop(t Template, targetWidth, targetHeight int) CropResult {
	switch t.Crop.Kind {
	case CropWithRatios:
		return CropResult{
			Mode: ModeRatioBased,
			Rect: Rect{
				X: int(math.Round(t.Crop.XRatio * float64(targetWidth))),
				Y: int(math.Round(t.Crop.YRatio * float64(targetHeight))),
				W: int(math.Round(t.Crop.WRatio * float64(targetWidth))),
				H: int(math.Round(t.Crop.HRatio * float64(targetHeight))),
			},
		}
	case CropAbsolute:
		return CropResult{Mode: ModeAbsolute, Rect: t.Crop.Rect}
	default:
		return CropResult{Mode: ModeNoCrop}
	}
}
