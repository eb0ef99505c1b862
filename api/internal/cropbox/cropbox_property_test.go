package cropbox

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/session"
)

func TestRotateFourTimesRestores(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("4 поворота на 90° возвращают исходный угол", prop.ForAll(
		func(start int) bool {
			b := New(800, 600, session.WidgetOptions{AspectRatio: 0.76})
			b.SetData(crop.Rect{Width: 300, Rotate: start})
			before := b.Data().Rotate
			for range 4 {
				b.Rotate(90)
			}
			return b.Data().Rotate == before
		},
		gen.IntRange(-720, 720),
	))

	properties.TestingRun(t)
}

func TestFlipTwiceRestores(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("двойное отражение возвращает знак", prop.ForAll(
		func(sx float64) bool {
			b := New(800, 600, session.WidgetOptions{})
			b.ScaleX(sx)
			before := b.Data().ScaleX
			b.ScaleX(-b.Data().ScaleX)
			b.ScaleX(-b.Data().ScaleX)
			return b.Data().ScaleX == before
		},
		gen.Float64Range(-2, 2),
	))

	properties.TestingRun(t)
}

func TestSetDataStaysInsideImage(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("кадр не выходит за изображение и держит пропорцию", prop.ForAll(
		func(x, y, w float64) bool {
			const imgW, imgH, ratio = 1600, 1200, 0.76
			b := New(imgW, imgH, session.WidgetOptions{AspectRatio: ratio})
			b.SetData(crop.Rect{X: x, Y: y, Width: w, Height: 1})
			d := b.rect
			inside := d.X >= 0 && d.Y >= 0 &&
				d.X+d.Width <= imgW+1e-6 && d.Y+d.Height <= imgH+1e-6
			return inside && math.Abs(d.Width/d.Height-ratio) < 1e-6
		},
		gen.Float64Range(-500, 2000),
		gen.Float64Range(-500, 2000),
		gen.Float64Range(1, 3000),
	))

	properties.TestingRun(t)
}
