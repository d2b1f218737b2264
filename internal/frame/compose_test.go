package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testBlue = color.NRGBA{B: 255, A: 255}
	testRed  = color.NRGBA{R: 255, A: 255}
)

func TestComposeFillsSuppliedSlotOnly(t *testing.T) {
	template := solidRaster(600, 800, testBlue)
	slots := []Slot{
		{X: 17, Y: 17, W: 266, H: 178},
		{X: 17, Y: 214, W: 266, H: 178},
		{X: 17, Y: 410, W: 266, H: 178},
		{X: 17, Y: 604, W: 266, H: 178},
	}
	photo := solidRaster(100, 100, testRed)
	photos := []*Raster{&photo, nil, nil, nil}

	out, err := Compose(template, slots, photos, ComposeOptions{})
	require.NoError(t, err)

	img := out.Img.(*image.NRGBA)
	require.Equal(t, 600, img.Bounds().Dx())
	require.Equal(t, 800, img.Bounds().Dy())
	assert.Equal(t, [2]int{DefaultDPI, DefaultDPI}, out.DPI)

	// Every pixel of slot 1 is the upscaled red photo.
	for _, pt := range []image.Point{{17, 17}, {282, 17}, {150, 100}, {17, 194}, {282, 194}} {
		c := img.NRGBAAt(pt.X, pt.Y)
		assert.InDelta(t, 255, int(c.R), 1, "inside slot at %v", pt)
		assert.InDelta(t, 0, int(c.B), 1, "inside slot at %v", pt)
	}

	// Everything outside slot 1, including the empty slots, stays template
	// blue.
	for _, pt := range []image.Point{{0, 0}, {16, 16}, {283, 17}, {17, 195}, {150, 300}, {599, 799}, {150, 650}} {
		c := img.NRGBAAt(pt.X, pt.Y)
		assert.Equal(t, testBlue, c, "outside slot at %v", pt)
	}
}

func TestComposeOpaquePhotoReplacesSlotExactly(t *testing.T) {
	template := solidRaster(300, 300, testBlue)
	slots := []Slot{{X: 50, Y: 60, W: 100, H: 80}}
	photo := solidRaster(100, 80, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	out, err := Compose(template, slots, []*Raster{&photo}, ComposeOptions{})
	require.NoError(t, err)

	img := out.Img.(*image.NRGBA)
	// Exact size match means no resampling at all; pixels carry over
	// unchanged.
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, img.NRGBAAt(50, 60))
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, img.NRGBAAt(149, 139))
	assert.Equal(t, testBlue, img.NRGBAAt(150, 140))
}

func TestComposeBlendsSemiTransparentPhoto(t *testing.T) {
	template := solidRaster(200, 200, color.NRGBA{B: 255, A: 255})
	slots := []Slot{{X: 0, Y: 0, W: 100, H: 100}}
	// 50% translucent red over blue should land in between.
	photo := solidRaster(100, 100, color.NRGBA{R: 255, A: 128})
	photo.HasAlpha = true

	out, err := Compose(template, slots, []*Raster{&photo}, ComposeOptions{})
	require.NoError(t, err)

	c := out.Img.(*image.NRGBA).NRGBAAt(50, 50)
	assert.InDelta(t, 128, int(c.R), 3)
	assert.InDelta(t, 127, int(c.B), 3)
	assert.Equal(t, uint8(255), c.A)
}

func TestComposeNoPhotosLeavesTemplateUntouched(t *testing.T) {
	template := solidRaster(100, 100, testBlue)
	slots := []Slot{{X: 10, Y: 10, W: 50, H: 50}}

	out, err := Compose(template, slots, []*Raster{nil}, ComposeOptions{})
	require.NoError(t, err)

	img := out.Img.(*image.NRGBA)
	for _, pt := range []image.Point{{0, 0}, {30, 30}, {99, 99}} {
		assert.Equal(t, testBlue, img.NRGBAAt(pt.X, pt.Y))
	}
}

func TestComposeShortPhotoListIsSafe(t *testing.T) {
	template := solidRaster(100, 100, testBlue)
	slots := []Slot{{X: 0, Y: 0, W: 10, H: 10}, {X: 20, Y: 20, W: 10, H: 10}}
	photo := solidRaster(10, 10, testRed)

	_, err := Compose(template, slots, []*Raster{&photo}, ComposeOptions{})
	assert.NoError(t, err)
}

func TestComposeRejectsZeroAreaPhoto(t *testing.T) {
	template := solidRaster(100, 100, testBlue)
	slots := []Slot{{X: 0, Y: 0, W: 10, H: 10}}
	empty := Raster{Img: image.NewNRGBA(image.Rect(0, 0, 0, 0))}

	_, err := Compose(template, slots, []*Raster{&empty}, ComposeOptions{})
	assert.Error(t, err)
}

func TestComposeDoesNotMutateTemplateRaster(t *testing.T) {
	tpl := imaging.New(100, 100, testBlue)
	template := Raster{Img: tpl, Channels: 4}
	slots := []Slot{{X: 0, Y: 0, W: 50, H: 50}}
	photo := solidRaster(50, 50, testRed)

	_, err := Compose(template, slots, []*Raster{&photo}, ComposeOptions{})
	require.NoError(t, err)

	// The caller's template image must be untouched; composition works on
	// its own accumulator.
	assert.Equal(t, testBlue, tpl.NRGBAAt(10, 10))
}
