// Package codec decodes uploaded byte streams into pipeline rasters, with
// the container metadata (ICC profile, DPI, transparency) the pipeline needs,
// and encodes final rasters as maximum-fidelity PNG.
package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoding

	"github.com/youruser/framegen/internal/frame"
)

// ErrUndecodable marks uploads that are not a decodable image format.
var ErrUndecodable = errors.New("codec: not a decodable image")

// Decode turns raw upload bytes into a Raster. Pixel decoding covers
// PNG/JPEG/GIF/TIFF/BMP/WebP; ICC, DPI and transparency metadata are scanned
// from the PNG and JPEG containers (other formats carry none of interest
// here).
func Decode(data []byte) (frame.Raster, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return frame.Raster{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return frame.Raster{}, fmt.Errorf("%w: zero-area image", ErrUndecodable)
	}

	meta := scanMetadata(data)
	return frame.Raster{
		Img:      img,
		ICC:      meta.icc,
		DPI:      meta.dpi,
		HasAlpha: meta.transparency,
	}, nil
}
