// Package render applies a confirmed crop to the source image.
package render

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"

	"photo-crop/api/internal/crop"
)

// Apply вырезает r (в пикселях исходника, с поправкой на границы),
// поворачивает по часовой стрелке на r.Rotate и отражает по ScaleX/ScaleY.
func Apply(img image.Image, r crop.Rect) image.Image {
	b := img.Bounds()
	r = crop.Clamp(r, b.Dx(), b.Dy())
	x0 := b.Min.X + int(math.Round(r.X))
	y0 := b.Min.Y + int(math.Round(r.Y))
	w, h := int(math.Round(r.Width)), int(math.Round(r.Height))

	out := image.Image(img)
	if w > 0 && h > 0 {
		out = imaging.Crop(img, image.Rect(x0, y0, x0+w, y0+h))
	}

	// imaging крутит против часовой стрелки
	switch crop.NormalizeRotate(r.Rotate) {
	case 90:
		out = imaging.Rotate270(out)
	case 180:
		out = imaging.Rotate180(out)
	case 270:
		out = imaging.Rotate90(out)
	}
	if r.ScaleX < 0 {
		out = imaging.FlipH(out)
	}
	if r.ScaleY < 0 {
		out = imaging.FlipV(out)
	}
	return out
}

// Preview декодирует исходник (с учётом EXIF-ориентации), применяет кадр,
// ужимает до maxSide по большей стороне (0 — без ужатия) и кодирует в JPEG.
func Preview(src io.Reader, r *crop.Rect, maxSide, quality int) ([]byte, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("render: decode: %w", err)
	}
	if r != nil {
		img = Apply(img, *r)
	}
	if maxSide > 0 {
		img = Thumbnail(img, maxSide)
	}
	if quality <= 0 {
		quality = 90
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("render: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail уменьшает картинку так, чтобы она влезла в size×size.
func Thumbnail(img image.Image, size int) image.Image {
	return imaging.Fit(img, size, size, imaging.Lanczos)
}
