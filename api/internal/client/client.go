package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/session"
)

// StatusError — ответ API с неуспешным кодом; текст тела становится сообщением.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Client ходит в API заказов: GET {base}/photos/{order_id}, POST {base}/crop/save.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:    httpClient(),
	}
}

func (c *Client) FetchOrder(ctx context.Context, orderID string) (session.Order, error) {
	u := c.BaseURL + "/photos/" + url.PathEscape(orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return session.Order{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return session.Order{}, fmt.Errorf("fetch order %s: %w", orderID, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return session.Order{}, fmt.Errorf("fetch order %s: %w", orderID, err)
	}

	var w crop.WireOrder
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return session.Order{}, fmt.Errorf("fetch order %s: bad json: %w", orderID, err)
	}

	photos := crop.DecodePhotos(w.Photos)
	for i := range photos {
		photos[i].URL = ResolveURL(c.BaseURL, photos[i].URL)
	}
	return session.Order{
		ID:     string(w.OrderID),
		Number: w.OrderNumber,
		Photos: photos,
	}, nil
}

func (c *Client) SaveCrops(ctx context.Context, p session.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/crop/save", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("save crops: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("save crops: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ResolveURL делает адрес абсолютным, приписывая base к относительному пути.
func ResolveURL(base, u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return u
	}
	if pu, err := url.Parse(u); err == nil && pu.IsAbs() {
		return u
	}
	if strings.HasPrefix(u, "//") {
		return u
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(u, "/")
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
