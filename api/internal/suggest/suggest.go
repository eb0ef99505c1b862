// Package suggest computes an automatic crop for a photo: around the faces
// when there are any, around the main subject otherwise, and centered as the
// last resort.
package suggest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"photo-crop/api/internal/crop"
)

const (
	confidenceCenter   = 0.5
	confidenceSaliency = 0.7
	confidenceOneFace  = 0.95
)

// Result — предложенный кадр и число найденных лиц.
type Result struct {
	Suggestion crop.Suggestion
	FacesFound int
}

type Suggester interface {
	Suggest(ctx context.Context, img []byte, ratio float64) (Result, error)
}

// Box — прямоугольник лица в пикселях.
type Box struct {
	X, Y, W, H int
}

// Center — кадр по центру; нужны только размеры изображения.
type Center struct{}

func (Center) Suggest(_ context.Context, img []byte, ratio float64) (Result, error) {
	w, h, err := Dimensions(img)
	if err != nil {
		return Result{}, err
	}
	return CenterCrop(w, h, ratio), nil
}

func Dimensions(img []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func ratioOrDefault(ratio float64) float64 {
	if ratio <= 0 {
		return crop.DefaultRatio
	}
	return ratio
}

func CenterCrop(imgW, imgH int, ratio float64) Result {
	return Result{Suggestion: crop.Suggestion{
		Rect:       crop.CenterFrame(imgW, imgH, ratioOrDefault(ratio)),
		Confidence: confidenceCenter,
		Method:     crop.MethodCenter,
	}}
}

// FaceCrop центрирует кадр на общей рамке всех лиц. Одно лицо — высокая
// уверенность; иначе она зависит от доли лиц, попавших в кадр.
func FaceCrop(imgW, imgH int, ratio float64, faces []Box) Result {
	if len(faces) == 0 {
		return CenterCrop(imgW, imgH, ratio)
	}
	minX, minY := faces[0].X, faces[0].Y
	maxX, maxY := faces[0].X+faces[0].W, faces[0].Y+faces[0].H
	for _, f := range faces[1:] {
		minX = min(minX, f.X)
		minY = min(minY, f.Y)
		maxX = max(maxX, f.X+f.W)
		maxY = max(maxY, f.Y+f.H)
	}

	r := frameAround(imgW, imgH, ratio, (minX+maxX)/2, (minY+maxY)/2)

	conf := confidenceOneFace
	if len(faces) > 1 {
		in := 0
		for _, f := range faces {
			cx, cy := float64(f.X+f.W/2), float64(f.Y+f.H/2)
			if cx >= r.X && cx <= r.X+r.Width && cy >= r.Y && cy <= r.Y+r.Height {
				in++
			}
		}
		conf = 0.1 + 0.9*float64(in)/float64(len(faces))
	}
	return Result{
		Suggestion: crop.Suggestion{Rect: r, Confidence: conf, Method: crop.MethodFace},
		FacesFound: len(faces),
	}
}

// PointCrop центрирует кадр на главном объекте.
func PointCrop(imgW, imgH int, ratio float64, x, y int) Result {
	return Result{Suggestion: crop.Suggestion{
		Rect:       frameAround(imgW, imgH, ratio, x, y),
		Confidence: confidenceSaliency,
		Method:     crop.MethodSaliency,
	}}
}

func frameAround(imgW, imgH int, ratio float64, cx, cy int) crop.Rect {
	w, h := crop.FrameSize(imgW, imgH, ratioOrDefault(ratio))
	x := max(0, min(cx-w/2, imgW-w))
	y := max(0, min(cy-h/2, imgH-h))
	return crop.Rect{
		X: float64(x), Y: float64(y),
		Width: float64(w), Height: float64(h),
		ScaleX: 1, ScaleY: 1,
	}
}

// Fallback пробует Primary и при ошибке откатывается на Secondary.
type Fallback struct {
	Primary   Suggester
	Secondary Suggester
	Logger    *slog.Logger
}

func (f Fallback) Suggest(ctx context.Context, img []byte, ratio float64) (Result, error) {
	if f.Primary != nil {
		res, err := f.Primary.Suggest(ctx, img, ratio)
		if err == nil {
			return res, nil
		}
		lg := f.Logger
		if lg == nil {
			lg = slog.Default()
		}
		lg.Warn("suggest: primary failed, falling back", "err", err)
	}
	return f.Secondary.Suggest(ctx, img, ratio)
}
