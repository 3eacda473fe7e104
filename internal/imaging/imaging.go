// Package imaging produces perceptual fingerprints from raw image bytes.
// It wraps corona10/goimagehash's 64-bit DCT perception hash and renders it
// as the 16-character hex form the rest of the system stores and compares.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/templatehash/platform/internal/apperr"
	"github.com/templatehash/platform/internal/hash"
)

// Info describes a decoded image: its fingerprint, pixel dimensions and the
// detected encoding format.
type Info struct {
	Fingerprint hash.Fingerprint
	Width       int
	Height      int
	Format      string
}

// Analyze decodes image bytes and computes the perceptual fingerprint.
// Corrupt or unsupported input fails with UNREADABLE_IMAGE.
func Analyze(data []byte) (Info, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Info{}, apperr.Wrap(err, apperr.CodeUnreadableImage, "decoding image")
	}

	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Info{}, apperr.Wrap(err, apperr.CodeUnreadableImage, "computing perceptual hash")
	}

	bounds := img.Bounds()
	return Info{
		Fingerprint: hash.Fingerprint(fmt.Sprintf("%016x", h.GetHash())),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Format:      format,
	}, nil
}

// Fingerprint computes only the perceptual fingerprint of image bytes.
func Fingerprint(data []byte) (hash.Fingerprint, error) {
	info, err := Analyze(data)
	if err != nil {
		return "", err
	}
	return info.Fingerprint, nil
}

// Dimensions returns only the pixel dimensions of image bytes.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, apperr.Wrap(err, apperr.CodeUnreadableImage, "reading image dimensions")
	}
	return cfg.Width, cfg.Height, nil
}
