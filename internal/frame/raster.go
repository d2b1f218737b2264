// Package frame implements the image normalization and slot-fitting pipeline:
// color-space normalization to sRGB, aspect-preserving fitting of photos into
// template slots, and alpha-aware composition onto the template.
package frame

import "image"

// DefaultDPI is the print resolution stamped on every composed output.
const DefaultDPI = 300

// Raster is a decoded image plus the container metadata the pipeline cares
// about. Every pipeline step returns a new Raster; the template accumulator
// inside Compose is the only image mutated in place.
type Raster struct {
	Img image.Image

	// Channels is 3 (RGB) or 4 (RGBA) after normalization, 0 for a raw
	// decode. Normalized rasters are always backed by *image.NRGBA; a
	// 3-channel result simply carries a fully opaque alpha plane.
	Channels int

	// ICC holds the embedded color profile bytes, if any.
	ICC []byte

	// DPI is the horizontal/vertical resolution. Zero means the container
	// declared none.
	DPI [2]int

	// HasAlpha reports container-level transparency (an alpha channel or a
	// designated transparent color such as a PNG tRNS entry).
	HasAlpha bool
}

// Slot is a fixed rectangle within a template, in template pixel coordinates.
type Slot struct {
	X int
	Y int
	W int
	H int
}

// Bounds returns the slot rectangle as an image.Rectangle.
func (s Slot) Bounds() image.Rectangle {
	return image.Rect(s.X, s.Y, s.X+s.W, s.Y+s.H)
}
