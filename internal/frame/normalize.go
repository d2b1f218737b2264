package frame

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/youruser/framegen/internal/srgb"
)

// Normalize converts a raw decoded raster into the canonical sRGB
// representation used by the rest of the pipeline. It is total: a malformed
// or unsupported color profile falls back to a plain RGBA conversion instead
// of failing the request, at the cost of untransformed colors.
func Normalize(r Raster) Raster {
	img := r.Img

	alphaCarrying := carriesAlpha(img)
	wantAlpha := alphaCarrying || r.HasAlpha

	// Grayscale, palette and other special encodings are flattened to an
	// RGB-class layout before any profile handling.
	if !isRGBClass(img) {
		img = flattenToRGB(img)
	}

	out := Raster{ICC: nil, DPI: r.DPI, HasAlpha: wantAlpha, Channels: 4}
	if out.DPI[0] <= 0 || out.DPI[1] <= 0 {
		out.DPI = [2]int{DefaultDPI, DefaultDPI}
	}

	if len(r.ICC) > 0 {
		converted, err := srgb.Convert(img, r.ICC)
		if err != nil {
			// Silent recovery: proceed with untransformed colors.
			log.Debug().Err(err).Msg("profile conversion failed, using plain conversion")
			out.Img = imaging.Clone(img)
			return out
		}
		if !wantAlpha {
			forceOpaque(converted)
			out.Channels = 3
			out.HasAlpha = false
		}
		out.Img = converted
		return out
	}

	out.Img = imaging.Clone(img)
	return out
}

// isRGBClass reports whether the decoded layout is already a 3- or 4-channel
// color layout. YCbCr counts as 3-channel color: it is what a baseline JPEG
// decodes to.
func isRGBClass(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64,
		*image.YCbCr, *image.NYCbCrA:
		return true
	}
	return false
}

// carriesAlpha reports whether the pixel layout itself has an alpha channel.
func carriesAlpha(img image.Image) bool {
	switch v := img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64, *image.NYCbCrA:
		return true
	case *image.Paletted:
		for _, entry := range v.Palette {
			if _, _, _, a := entry.RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}

// flattenToRGB discards grayscale/palette/CMYK encodings, producing an opaque
// RGB-class raster. Palette transparency is intentionally dropped here; the
// caller re-expands to 4 channels afterwards when the source declared any.
func flattenToRGB(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	forceOpaque(out)
	return out
}

func forceOpaque(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}
