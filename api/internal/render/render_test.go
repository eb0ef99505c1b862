package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-crop/api/internal/crop"
)

// testImage: левая половина красная, правая синяя.
func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.NRGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func isRed(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return r > 0x8000 && b < 0x8000
}

func TestApplyCrop(t *testing.T) {
	out := Apply(testImage(100, 50), crop.Rect{X: 10, Y: 5, Width: 30, Height: 20, ScaleX: 1, ScaleY: 1})
	assert.Equal(t, 30, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())
	assert.True(t, isRed(out.At(0, 0)))
}

func TestApplyClampsToBounds(t *testing.T) {
	out := Apply(testImage(100, 50), crop.Rect{X: 90, Y: 40, Width: 30, Height: 20, ScaleX: 1, ScaleY: 1})
	assert.Equal(t, 30, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())
	// сдвинут влево до x=70 — синяя часть
	assert.False(t, isRed(out.At(0, 0)))
}

func TestApplyRotateAndFlip(t *testing.T) {
	img := testImage(100, 50)

	rot := Apply(img, crop.Rect{Width: 100, Height: 50, Rotate: 90, ScaleX: 1, ScaleY: 1})
	assert.Equal(t, 50, rot.Bounds().Dx())
	assert.Equal(t, 100, rot.Bounds().Dy())
	// по часовой: левая (красная) половина уходит наверх
	assert.True(t, isRed(rot.At(0, 0)))
	assert.False(t, isRed(rot.At(0, 99)))

	flipped := Apply(img, crop.Rect{Width: 100, Height: 50, ScaleX: -1, ScaleY: 1})
	assert.False(t, isRed(flipped.At(0, 0)))
	assert.True(t, isRed(flipped.At(99, 0)))
}

func TestPreviewFullSize(t *testing.T) {
	var src bytes.Buffer
	require.NoError(t, png.Encode(&src, testImage(100, 50)))

	out, err := Preview(bytes.NewReader(src.Bytes()), &crop.Rect{X: 0, Y: 0, Width: 40, Height: 40, ScaleX: 1, ScaleY: 1}, 0, 0)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 40, cfg.Width)

	_, err = Preview(bytes.NewReader([]byte("junk")), nil, 0, 0)
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	out := Thumbnail(testImage(400, 200), 100)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())
}

func TestPreviewShrinks(t *testing.T) {
	var src bytes.Buffer
	require.NoError(t, png.Encode(&src, testImage(400, 200)))

	out, err := Preview(bytes.NewReader(src.Bytes()), nil, 100, 80)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}
