package crop

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Method — способ, которым получено предложение кадра.
type Method string

const (
	MethodCenter   Method = "center"
	MethodFace     Method = "face"
	MethodSaliency Method = "saliency"
)

// Rect — область кадра в пикселях исходного изображения.
// Rotate кратен 90, ScaleX/ScaleY = ±1 (зеркало).
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Rotate int     `json:"rotate"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
}

// UnmarshalJSON fills missing scale factors with 1 so that a stored
// {x,y,width,height} means "not mirrored".
func (r *Rect) UnmarshalJSON(b []byte) error {
	type plain Rect
	p := plain{ScaleX: 1, ScaleY: 1}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Rect(p)
	return nil
}

// Round округляет геометрию так же, как виджет отдаёт данные "rounded".
func (r Rect) Round() Rect {
	r.X = math.Round(r.X)
	r.Y = math.Round(r.Y)
	r.Width = math.Round(r.Width)
	r.Height = math.Round(r.Height)
	return r
}

// NormalizeRotate приводит угол к [0, 360).
func NormalizeRotate(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

type Suggestion struct {
	Rect       Rect    `json:"rect"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
}

// Photo is immutable once a session has loaded it.
type Photo struct {
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	Label       string      `json:"label,omitempty"`
	Format      string      `json:"format,omitempty"`
	AspectRatio *float64    `json:"aspect_ratio,omitempty"`
	Suggestion  *Suggestion `json:"suggestion,omitempty"`
	FacesFound  int         `json:"faces_found,omitempty"`
}

// SuggestedRect returns the suggestion's rectangle, if any.
func (p Photo) SuggestedRect() (Rect, bool) {
	if p.Suggestion == nil {
		return Rect{}, false
	}
	return p.Suggestion.Rect, true
}

// ID из JSON может прийти числом (из БД) или строкой (демо/launch payload).
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// Int64 returns the numeric form of the id, if it has one.
func (f FlexID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(f), 10, 64)
	return n, err == nil
}
