package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/session"
)

func TestResolveURL(t *testing.T) {
	base := "http://host:8080/api"
	tests := []struct {
		in, want string
	}{
		{"/photo-proxy/abc", "http://host:8080/api/photo-proxy/abc"},
		{"photo-proxy/abc", "http://host:8080/api/photo-proxy/abc"},
		{"https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"//cdn.example.com/a.jpg", "//cdn.example.com/a.jpg"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveURL(base, tt.in), tt.in)
	}
}

func TestFetchOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/photos/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"order_id": 42,
			"order_number": "PH-0042",
			"photos": [
				{"id": 1, "url": "/photo-proxy/f1", "product_id": "classic",
				 "auto_crop": {"x": 1, "y": 2, "width": 667, "height": 1000}, "confidence": 0.95, "method": "face", "faces_found": 1},
				{"id": 2, "url": "https://cdn/2.jpg"}
			]}`)
	}))
	defer srv.Close()

	c := New(srv.URL + "/api/")
	order, err := c.FetchOrder(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", order.ID)
	assert.Equal(t, "PH-0042", order.Number)
	require.Len(t, order.Photos, 2)
	assert.Equal(t, srv.URL+"/api/photo-proxy/f1", order.Photos[0].URL)
	assert.Equal(t, "https://cdn/2.jpg", order.Photos[1].URL)
	require.NotNil(t, order.Photos[0].Suggestion)
	assert.Equal(t, crop.MethodFace, order.Photos[0].Suggestion.Method)
	assert.Equal(t, 0.667, order.Photos[0].Ratio())
}

func TestFetchOrderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Order not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchOrder(context.Background(), "1")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "Order not found", se.Body)
}

func TestSaveCrops(t *testing.T) {
	var got session.Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/crop/save", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"status":"ok","saved":1}`)
	}))
	defer srv.Close()

	rect := crop.Rect{X: 1, Y: 2, Width: 3, Height: 4, ScaleX: 1, ScaleY: 1}
	p := session.Payload{
		OrderID: "42",
		UserID:  7,
		Photos:  []session.PayloadPhoto{{ID: "1", Crop: &rect}, {ID: "2"}},
	}
	require.NoError(t, New(srv.URL+"/api").SaveCrops(context.Background(), p))
	assert.Equal(t, p, got)
}

func TestSaveCropsFailureCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "No photos data provided", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL).SaveCrops(context.Background(), session.Payload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No photos data provided")
}

func TestImageLoader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30))))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	l := NewImageLoader()
	img, err := l.Load(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, 40, img.Width)
	assert.Equal(t, 30, img.Height)

	_, err = l.Load(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}
