package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"photo-crop/api/internal/util"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini находит лица и главный объект с помощью модели Gemini.
type Gemini struct {
	APIKey string
	Model  string
	// Limiter ограничивает частоту запросов к API; nil — без ограничений.
	Limiter *rate.Limiter
}

// DefaultGeminiRPS — бесплатный тариф позволяет ~10 запросов в минуту.
const DefaultGeminiRPS = rate.Limit(10.0 / 60)

func NewGemini(apiKey, model string) *Gemini {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		APIKey:  strings.TrimSpace(apiKey),
		Model:   model,
		Limiter: rate.NewLimiter(DefaultGeminiRPS, 3),
	}
}

const systemPrompt = `Ты — модуль разметки фотографий для печати. Найди на фото лица людей и главный объект.
Координаты нормированы к 0..1000 относительно размеров изображения.
Верни строго JSON:
{"faces":[{"box_2d":[ymin,xmin,ymax,xmax]}],"subject":{"point":[y,x]}}
Если лиц нет — "faces": []. Если главного объекта нет — "subject": null. Никакого текста вне JSON.`

// Detection — ответ модели в нормированных координатах.
type Detection struct {
	Faces []struct {
		Box2D []float64 `json:"box_2d"`
	} `json:"faces"`
	Subject *struct {
		Point []float64 `json:"point"`
	} `json:"subject"`
}

func (g *Gemini) Suggest(ctx context.Context, img []byte, ratio float64) (Result, error) {
	w, h, err := Dimensions(img)
	if err != nil {
		return Result{}, err
	}
	det, err := g.detect(ctx, img)
	if err != nil {
		return Result{}, err
	}
	return FromDetection(w, h, ratio, det), nil
}

func (g *Gemini) detect(ctx context.Context, img []byte) (Detection, error) {
	if g.APIKey == "" {
		return Detection{}, errors.New("GEMINI_API_KEY is empty")
	}
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return Detection{}, fmt.Errorf("gemini rate limit: %w", err)
		}
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return Detection{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	if m == nil {
		return Detection{}, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	parts := []genai.Part{
		genai.Text("Ответ строго JSON. Без комментариев."),
		&genai.Blob{MIMEType: util.PickMIME("", img), Data: img},
	}

	// Ретраи на случай 5xx/транзиентных сбоёв
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return Detection{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return Detection{}, fmt.Errorf("gemini detect: empty response")
		}
		return ParseDetection(txt)
	}
	return Detection{}, lastErr
}

func ParseDetection(txt string) (Detection, error) {
	var det Detection
	if err := json.Unmarshal([]byte(util.StripCodeFences(txt)), &det); err != nil {
		return Detection{}, fmt.Errorf("gemini detect: bad JSON: %w", err)
	}
	return det, nil
}

// FromDetection переводит нормированную разметку в пиксели и строит кадр:
// лица, затем главный объект, затем центр.
func FromDetection(imgW, imgH int, ratio float64, det Detection) Result {
	var faces []Box
	for _, f := range det.Faces {
		if len(f.Box2D) != 4 {
			continue
		}
		ymin, xmin := denorm(f.Box2D[0], imgH), denorm(f.Box2D[1], imgW)
		ymax, xmax := denorm(f.Box2D[2], imgH), denorm(f.Box2D[3], imgW)
		if xmax <= xmin || ymax <= ymin {
			continue
		}
		faces = append(faces, Box{X: xmin, Y: ymin, W: xmax - xmin, H: ymax - ymin})
	}
	if len(faces) > 0 {
		return FaceCrop(imgW, imgH, ratio, faces)
	}
	if det.Subject != nil && len(det.Subject.Point) == 2 {
		return PointCrop(imgW, imgH, ratio, denorm(det.Subject.Point[1], imgW), denorm(det.Subject.Point[0], imgH))
	}
	return CenterCrop(imgW, imgH, ratio)
}

func denorm(v float64, size int) int {
	v = max(0, min(v, 1000))
	return int(v * float64(size) / 1000)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
