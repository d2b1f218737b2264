package frame

import (
	"fmt"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ComposeOptions carries the per-deployment composition switches.
type ComposeOptions struct {
	// Sharpen enables the unsharp pass on each fitted photo.
	Sharpen bool
}

// Compose normalizes the template, then for each slot with a supplied photo
// runs normalize, fit and alpha-aware paste, in slot-table order. Slots whose
// photo is nil keep the template's own artwork. A failure on any slot aborts
// the whole composition; no partially filled template is ever returned.
func Compose(template Raster, slots []Slot, photos []*Raster, opts ComposeOptions) (Raster, error) {
	tpl := Normalize(template)

	// The one intentionally mutable buffer: slots are painted into it
	// sequentially and it is never aliased during the loop.
	canvas := imaging.Clone(tpl.Img)

	for i, slot := range slots {
		if i >= len(photos) || photos[i] == nil {
			continue
		}
		photo := *photos[i]
		b := photo.Img.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			return Raster{}, fmt.Errorf("photo %d has zero area", i+1)
		}

		fitted := Fit(Normalize(photo), slot.W, slot.H, FitOptions{
			Sharpen: opts.Sharpen,
			Upscale: true,
			DPI:     DefaultDPI,
		})

		// Alpha-aware overwrite: opaque pixels replace, partially
		// transparent ones blend, slots stay template-sized.
		src := fitted.Img
		draw.Draw(canvas, slot.Bounds(), src, src.Bounds().Min, draw.Over)
	}

	return Raster{
		Img:      canvas,
		Channels: 4,
		DPI:      [2]int{DefaultDPI, DefaultDPI},
		HasAlpha: tpl.HasAlpha,
	}, nil
}
