// Package cropbox is a headless crop box: it keeps the frame inside the
// image, locks the aspect ratio and tracks rotation and mirroring. It stands
// in for the interactive widget when there is no browser to host one.
package cropbox

import (
	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/session"
)

type Box struct {
	imgW, imgH int
	ratio      float64

	rect      crop.Rect
	destroyed bool
}

// Factory implements session.WidgetFactory.
type Factory struct{}

func (Factory) NewWidget(img session.Image, opts session.WidgetOptions) session.Widget {
	return New(img.Width, img.Height, opts)
}

func New(imgW, imgH int, opts session.WidgetOptions) *Box {
	b := &Box{imgW: imgW, imgH: imgH, ratio: opts.AspectRatio}
	if opts.Initial != nil {
		b.SetData(*opts.Initial)
	} else {
		b.Reset()
	}
	return b
}

func (b *Box) Data() crop.Rect {
	return b.rect.Round()
}

// SetData применяет геометрию, сохраняя поворот/зеркало из r.
// Соотношение сторон фиксируется по ширине.
func (b *Box) SetData(r crop.Rect) {
	if r.Width <= 0 || r.Height <= 0 {
		r.Width, r.Height = b.rect.Width, b.rect.Height
	}
	if b.ratio > 0 {
		r.Height = r.Width / b.ratio
		if b.imgH > 0 && r.Height > float64(b.imgH) {
			r.Height = float64(b.imgH)
			r.Width = r.Height * b.ratio
		}
	}
	if b.imgW > 0 && b.imgH > 0 {
		r = crop.Clamp(r, b.imgW, b.imgH)
	}
	r.Rotate = crop.NormalizeRotate(r.Rotate)
	r.ScaleX = unit(r.ScaleX)
	r.ScaleY = unit(r.ScaleY)
	b.rect = r
}

// Reset — кадрирование по умолчанию: максимальная центральная область.
func (b *Box) Reset() {
	b.rect = crop.CenterFrame(b.imgW, b.imgH, b.ratio)
}

func (b *Box) Rotate(deg int) {
	b.rect.Rotate = crop.NormalizeRotate(b.rect.Rotate + deg)
}

func (b *Box) ScaleX(v float64) {
	b.rect.ScaleX = unit(v)
}

func (b *Box) Destroy() {
	b.destroyed = true
}

func (b *Box) Destroyed() bool { return b.destroyed }

// unit сводит масштаб к ±1; 0 и NaN считаются "без зеркала".
func unit(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
