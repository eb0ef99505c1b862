package crop

import "sort"

// Соотношения сторон форматов печати (ширина / высота).
var formatRatios = map[string]float64{
	"polaroid_standard": 0.76,  // 7.6 / 10
	"polaroid_wide":     0.85,  // шире стандартного
	"instax":            0.628, // 5.4 / 8.6
	"classic":           0.667, // 10 / 15
}

var formatLabels = map[string]string{
	"polaroid_standard": "Полароид стандарт",
	"polaroid_wide":     "Полароид широкий",
	"instax":            "Инстакс",
	"classic":           "Классика",
}

// DefaultRatio используется, когда формат неизвестен (полароид стандарт).
const DefaultRatio = 0.76

func FormatRatio(format string) (float64, bool) {
	r, ok := formatRatios[format]
	return r, ok
}

func FormatLabel(format string) string {
	return formatLabels[format]
}

// Formats — известные ключи форматов в алфавитном порядке.
func Formats() []string {
	out := make([]string, 0, len(formatRatios))
	for k := range formatRatios {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Ratio returns the photo's resolved aspect ratio, 0 meaning free-form.
func (p Photo) Ratio() float64 {
	if p.AspectRatio != nil {
		return *p.AspectRatio
	}
	return 0
}

// CenterFrame вычисляет максимальную область с заданным соотношением,
// отцентрированную в изображении. ratio <= 0 — вся картинка.
func CenterFrame(imgW, imgH int, ratio float64) Rect {
	w, h := FrameSize(imgW, imgH, ratio)
	return Rect{
		X:      float64((imgW - w) / 2),
		Y:      float64((imgH - h) / 2),
		Width:  float64(w),
		Height: float64(h),
		ScaleX: 1,
		ScaleY: 1,
	}
}

// FrameSize — размер области кропа с сохранением соотношения сторон.
func FrameSize(imgW, imgH int, ratio float64) (int, int) {
	if imgW <= 0 || imgH <= 0 {
		return 0, 0
	}
	if ratio <= 0 {
		return imgW, imgH
	}
	imgRatio := float64(imgW) / float64(imgH)
	if imgRatio > ratio {
		// изображение шире — ограничиваем по высоте
		return int(float64(imgH) * ratio), imgH
	}
	return imgW, int(float64(imgW) / ratio)
}

// Clamp сдвигает область внутрь изображения, не меняя её размер
// (если она помещается).
func Clamp(r Rect, imgW, imgH int) Rect {
	if r.Width > float64(imgW) {
		r.Width = float64(imgW)
	}
	if r.Height > float64(imgH) {
		r.Height = float64(imgH)
	}
	r.X = clamp(r.X, 0, float64(imgW)-r.Width)
	r.Y = clamp(r.Y, 0, float64(imgH)-r.Height)
	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
