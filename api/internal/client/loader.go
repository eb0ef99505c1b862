package client

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"photo-crop/api/internal/session"
)

const maxImageBytes = 25 << 20

// ImageLoader скачивает картинку и читает её размеры.
type ImageLoader struct {
	HTTP *http.Client
}

func NewImageLoader() *ImageLoader {
	return &ImageLoader{HTTP: httpClient()}
}

func (l *ImageLoader) Load(ctx context.Context, url string) (session.Image, error) {
	b, err := l.Fetch(ctx, url)
	if err != nil {
		return session.Image{}, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return session.Image{}, fmt.Errorf("decode %s: %w", url, err)
	}
	return session.Image{URL: url, Width: cfg.Width, Height: cfg.Height}, nil
}

// Fetch возвращает байты картинки.
func (l *ImageLoader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}
