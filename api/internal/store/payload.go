package store

import "photo-crop/api/internal/session"

// UpdatesFromPayload выбирает из результата сессии ненулевые кадры с числовыми id.
func UpdatesFromPayload(p session.Payload) []CropUpdate {
	var out []CropUpdate
	for _, ph := range p.Photos {
		if ph.Crop == nil {
			continue
		}
		id, ok := ph.ID.Int64()
		if !ok {
			continue
		}
		out = append(out, CropUpdate{PhotoID: id, Crop: *ph.Crop})
	}
	return out
}
