package session

import (
	"encoding/json"

	"photo-crop/api/internal/crop"
)

// Payload — результат сессии: для каждого фото сохранённый кадр,
// иначе предложенный, иначе null.
type Payload struct {
	OrderID crop.FlexID    `json:"order_id,omitempty"`
	UserID  int64          `json:"user_id,omitempty"`
	Photos  []PayloadPhoto `json:"photos"`
}

type PayloadPhoto struct {
	ID   crop.FlexID `json:"id"`
	Crop *crop.Rect  `json:"crop"`
}

func (p Payload) JSON() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func buildPayload(orderID string, userID int64, photos []crop.Photo, overrides map[string]crop.Rect) Payload {
	out := Payload{
		OrderID: crop.FlexID(orderID),
		UserID:  userID,
		Photos:  make([]PayloadPhoto, 0, len(photos)),
	}
	for _, p := range photos {
		pp := PayloadPhoto{ID: crop.FlexID(p.ID)}
		if r, ok := overrides[p.ID]; ok {
			r := r
			pp.Crop = &r
		} else if r, ok := p.SuggestedRect(); ok {
			pp.Crop = &r
		}
		out.Photos = append(out.Photos, pp)
	}
	return out
}
