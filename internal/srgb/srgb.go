// Package srgb converts pixel data from an embedded ICC profile to the sRGB
// color space, using relative colorimetric intent. It handles matrix-shaper
// RGB profiles and monochrome profiles; everything else returns
// ErrUnsupportedProfile so callers can degrade to a plain conversion.
package srgb

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"seehuhn.de/go/icc"
)

// ErrUnsupportedProfile marks profiles this package cannot transform
// (LUT-based, CMYK, device-link and similar).
var ErrUnsupportedProfile = errors.New("srgb: unsupported profile")

// Matrix-shaper colorants are D50-relative; adapt to the sRGB D65 white with
// the Bradford transform before applying the XYZ -> linear sRGB matrix.
var d50ToD65 = [3][3]float64{
	{0.9555766, -0.0230393, 0.0631636},
	{-0.0282895, 1.0099416, 0.0210077},
	{0.0122982, -0.0204830, 1.3299098},
}

var xyzToLinearSRGB = [3][3]float64{
	{3.2404542, -1.5371385, -0.4985314},
	{-0.9692660, 1.8760108, 0.0415560},
	{0.0556434, -0.2040259, 1.0572252},
}

// Convert transforms img from the given ICC profile to sRGB. The alpha
// channel, when present, passes through untouched. The returned image is
// always a fresh *image.NRGBA.
func Convert(img image.Image, profile []byte) (*image.NRGBA, error) {
	p, err := icc.Decode(profile)
	if err != nil {
		return nil, fmt.Errorf("srgb: decoding profile: %w", err)
	}

	switch p.ColorSpace {
	case icc.RGBSpace:
		return convertRGB(img, profile)
	case icc.GraySpace:
		return convertGray(img, profile)
	default:
		return nil, fmt.Errorf("%w: color space %v", ErrUnsupportedProfile, p.ColorSpace)
	}
}

func convertRGB(img image.Image, profile []byte) (*image.NRGBA, error) {
	tags, err := parseTagTable(profile)
	if err != nil {
		return nil, fmt.Errorf("srgb: %w", err)
	}

	var colorants [3][3]float64 // columns are r/g/b colorant XYZ vectors
	for i, name := range []string{"rXYZ", "gXYZ", "bXYZ"} {
		data, ok := tags[sig4(name)]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s tag", ErrUnsupportedProfile, name)
		}
		v, err := parseXYZ(data)
		if err != nil {
			return nil, fmt.Errorf("srgb: %s: %w", name, err)
		}
		colorants[0][i] = v[0]
		colorants[1][i] = v[1]
		colorants[2][i] = v[2]
	}

	var curves [3]curve
	for i, name := range []string{"rTRC", "gTRC", "bTRC"} {
		data, ok := tags[sig4(name)]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s tag", ErrUnsupportedProfile, name)
		}
		c, err := parseCurve(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedProfile, name, err)
		}
		curves[i] = c
	}

	// device -> D50 XYZ -> D65 XYZ -> linear sRGB, folded into one matrix.
	m := matMul(xyzToLinearSRGB, matMul(d50ToD65, colorants))

	// 256-entry linearization LUT per channel.
	var lin [3][256]float64
	for c := 0; c < 3; c++ {
		for v := 0; v < 256; v++ {
			lin[c][v] = curves[c](float64(v) / 255.0)
		}
	}

	src := imaging.Clone(img)
	out := image.NewNRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		r := lin[0][src.Pix[i]]
		g := lin[1][src.Pix[i+1]]
		b := lin[2][src.Pix[i+2]]

		lr := m[0][0]*r + m[0][1]*g + m[0][2]*b
		lg := m[1][0]*r + m[1][1]*g + m[1][2]*b
		lb := m[2][0]*r + m[2][1]*g + m[2][2]*b

		out.Pix[i] = encode(lr)
		out.Pix[i+1] = encode(lg)
		out.Pix[i+2] = encode(lb)
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out, nil
}

func convertGray(img image.Image, profile []byte) (*image.NRGBA, error) {
	tags, err := parseTagTable(profile)
	if err != nil {
		return nil, fmt.Errorf("srgb: %w", err)
	}
	data, ok := tags[sig4("kTRC")]
	if !ok {
		return nil, fmt.Errorf("%w: missing kTRC tag", ErrUnsupportedProfile)
	}
	trc, err := parseCurve(data)
	if err != nil {
		return nil, fmt.Errorf("%w: kTRC: %v", ErrUnsupportedProfile, err)
	}

	var lut [256]uint8
	for v := 0; v < 256; v++ {
		lut[v] = encode(trc(float64(v) / 255.0))
	}

	src := imaging.Clone(img)
	out := image.NewNRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		// A neutral gray stays neutral under relative colorimetric.
		v := lut[src.Pix[i]]
		out.Pix[i] = v
		out.Pix[i+1] = v
		out.Pix[i+2] = v
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out, nil
}

// encode applies the sRGB transfer function to a linear value and quantizes.
func encode(lin float64) uint8 {
	if lin <= 0 {
		return 0
	}
	if lin >= 1 {
		return 255
	}
	var v float64
	if lin <= 0.0031308 {
		v = 12.92 * lin
	} else {
		v = 1.055*math.Pow(lin, 1/2.4) - 0.055
	}
	return uint8(math.Round(v * 255))
}

func matMul(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}
