package frame

import (
	"image"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
)

// Unsharp mask parameters, fixed to the values tuned for print output.
const (
	unsharpSigma     = 1.0
	unsharpAmount    = 1.5
	unsharpThreshold = 3.0 / 255.0
	// A mild extra pass compensating for resampling softness, roughly a
	// 1.3x sharpness boost.
	boostSigma = 0.3
)

// FitOptions controls the slot-fitting transform.
type FitOptions struct {
	// Sharpen applies a fixed-strength unsharp mask after resizing.
	Sharpen bool
	// Upscale enlarges sources smaller than the target before fitting.
	Upscale bool
	// DPI is stamped on the result unconditionally; <=0 means DefaultDPI.
	DPI int
}

// Fit resizes and center-crops r so the result has exactly (targetW, targetH)
// dimensions while preserving the source aspect ratio. Both the source and
// the target must have positive dimensions; that is the caller's contract.
func Fit(r Raster, targetW, targetH int, opts FitOptions) Raster {
	img := imaging.Clone(r.Img)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	// Enlarge too-small sources so the aspect fit never stretches.
	if opts.Upscale && (w < targetW || h < targetH) {
		scale := max(float64(targetW)/float64(w), float64(targetH)/float64(h))
		if scale > 1 {
			img = imaging.Resize(img, int(float64(w)*scale), int(float64(h)*scale), imaging.CatmullRom)
			w, h = img.Bounds().Dx(), img.Bounds().Dy()
		}
	}

	// Aspect-preserving fit size: the shorter dimension matches the target
	// exactly, the longer one overflows and is cropped off below.
	srcRatio := float64(w) / float64(h)
	targetRatio := float64(targetW) / float64(targetH)

	var fitW, fitH int
	if srcRatio > targetRatio {
		fitH = targetH
		fitW = int(float64(targetH) * srcRatio)
	} else {
		fitW = targetW
		fitH = int(float64(targetW) / srcRatio)
	}
	// Truncation must never leave the crop short of material.
	if fitW < targetW {
		fitW = targetW
	}
	if fitH < targetH {
		fitH = targetH
	}

	// Large reductions go through an intermediate size capped at twice the
	// final one; a single huge Lanczos reduction aliases.
	if w > fitW*2 || h > fitH*2 {
		img = imaging.Resize(img, min(w, fitW*2), min(h, fitH*2), imaging.Lanczos)
	}

	img = imaging.Resize(img, fitW, fitH, imaging.Lanczos)

	if opts.Sharpen {
		img = sharpen(img)
	}

	left := (fitW - targetW) / 2
	top := (fitH - targetH) / 2
	img = imaging.Crop(img, image.Rect(left, top, left+targetW, top+targetH))

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	return Raster{
		Img:      img,
		Channels: r.Channels,
		DPI:      [2]int{dpi, dpi},
		HasAlpha: r.HasAlpha,
	}
}

func sharpen(img *image.NRGBA) *image.NRGBA {
	g := gift.New(gift.UnsharpMask(unsharpSigma, unsharpAmount, unsharpThreshold))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return imaging.Sharpen(dst, boostSigma)
}
