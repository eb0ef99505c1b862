package bridge

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"

	"photo-crop/api/internal/crop"
)

// Launch — начальные данные, которые хост передаёт при открытии мини-приложения.
type Launch struct {
	OrderID string
	Photos  []crop.Photo
}

// DecodeLaunch разбирает base64(JSON) из параметра запуска.
// Битые данные не ошибка: возвращается пустой Launch.
func DecodeLaunch(raw string) Launch {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Launch{}
	}
	b, err := decodeBase64(raw)
	if err != nil {
		slog.Debug("launch payload: bad base64", "err", err)
		return Launch{}
	}
	var w crop.WireOrder
	if err := json.Unmarshal(b, &w); err != nil {
		slog.Debug("launch payload: bad json", "err", err)
		return Launch{}
	}
	return Launch{
		OrderID: string(w.OrderID),
		Photos:  crop.DecodePhotos(w.Photos),
	}
}

// EncodeLaunch — обратная операция (бот кладёт список фото в ссылку запуска).
func EncodeLaunch(orderID string, photos []crop.Photo) (string, error) {
	w := crop.WireOrder{OrderID: crop.FlexID(orderID)}
	for _, p := range photos {
		w.Photos = append(w.Photos, crop.FromPhoto(p))
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// принимаем и стандартный, и URL-safe алфавит, с паддингом и без
func decodeBase64(s string) ([]byte, error) {
	encs := []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding,
		base64.RawStdEncoding, base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encs {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
