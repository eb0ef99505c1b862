package crop

import (
	"encoding/json"
	"strings"
)

// WirePhoto — форма фото в ответе /photos/{order_id} и в launch payload.
// Один и тот же декодер обслуживает обе формы (с aspect_ratio и с ключом формата).
type WirePhoto struct {
	ID          FlexID          `json:"id"`
	URL         string          `json:"url"`
	Label       string          `json:"label,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	Format      string          `json:"format,omitempty"`
	ProductID   FlexID          `json:"product_id,omitempty"`
	AspectRatio *float64        `json:"aspect_ratio,omitempty"`
	AutoCrop    *WireAutoCrop   `json:"auto_crop,omitempty"`
	Confidence  *float64        `json:"confidence,omitempty"`
	Method      Method          `json:"method,omitempty"`
	FacesFound  int             `json:"faces_found,omitempty"`
	CropData    json.RawMessage `json:"crop_data,omitempty"`
	// CropConfirmed — кадр подтверждён пользователем и лежит в CropData.
	CropConfirmed bool `json:"crop_confirmed"`
}

type WireAutoCrop struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	Confidence *float64 `json:"confidence,omitempty"`
	FacesFound *int     `json:"faces_found,omitempty"`
	Method     Method   `json:"method,omitempty"`
}

// WireOrder — ответ GET /photos/{order_id}.
type WireOrder struct {
	OrderID     FlexID      `json:"order_id"`
	OrderNumber string      `json:"order_number,omitempty"`
	Photos      []WirePhoto `json:"photos"`
}

// ToPhoto переводит проводную форму в Photo; соотношение сторон
// разрешается здесь один раз.
func (w WirePhoto) ToPhoto() Photo {
	p := Photo{
		ID:         string(w.ID),
		URL:        w.URL,
		Label:      w.Label,
		Format:     w.Format,
		FacesFound: w.FacesFound,
	}
	if p.Label == "" {
		p.Label = w.ProductName
	}
	if p.Format == "" {
		p.Format = string(w.ProductID)
	}
	if w.AspectRatio != nil && *w.AspectRatio > 0 {
		r := *w.AspectRatio
		p.AspectRatio = &r
	} else if r, ok := FormatRatio(p.Format); ok {
		p.AspectRatio = &r
	}
	if p.Label == "" {
		p.Label = FormatLabel(p.Format)
	}

	if ac := w.AutoCrop; ac != nil && ac.Width > 0 && ac.Height > 0 {
		s := &Suggestion{
			Rect:       Rect{X: ac.X, Y: ac.Y, Width: ac.Width, Height: ac.Height, ScaleX: 1, ScaleY: 1},
			Confidence: 0.5,
			Method:     MethodCenter,
		}
		switch {
		case ac.Confidence != nil:
			s.Confidence = *ac.Confidence
		case w.Confidence != nil:
			s.Confidence = *w.Confidence
		}
		switch {
		case ac.Method != "":
			s.Method = ac.Method
		case w.Method != "":
			s.Method = w.Method
		}
		if ac.FacesFound != nil && p.FacesFound == 0 {
			p.FacesFound = *ac.FacesFound
		}
		p.Suggestion = s
	}
	return p
}

// FromPhoto — обратное преобразование для отдачи клиенту.
func FromPhoto(p Photo) WirePhoto {
	w := WirePhoto{
		ID:          FlexID(p.ID),
		URL:         p.URL,
		Label:       p.Label,
		Format:      p.Format,
		AspectRatio: p.AspectRatio,
		FacesFound:  p.FacesFound,
	}
	if s := p.Suggestion; s != nil {
		conf := s.Confidence
		faces := p.FacesFound
		w.AutoCrop = &WireAutoCrop{
			X: s.Rect.X, Y: s.Rect.Y, Width: s.Rect.Width, Height: s.Rect.Height,
			Confidence: &conf, FacesFound: &faces, Method: s.Method,
		}
		w.Confidence = &conf
		w.Method = s.Method
	}
	return w
}

// DecodePhotos разбирает список фото; пустые URL отбрасываются.
func DecodePhotos(list []WirePhoto) []Photo {
	out := make([]Photo, 0, len(list))
	for _, w := range list {
		if strings.TrimSpace(w.URL) == "" {
			continue
		}
		out = append(out, w.ToPhoto())
	}
	return out
}
