package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/metrics"
	"photo-crop/api/internal/render"
	"photo-crop/api/internal/session"
	"photo-crop/api/internal/store"
	"photo-crop/api/internal/util"
)

const (
	photoCacheControl = "public, max-age=86400"
	maxPreviewSide    = 4096
)

// ProxyPath — адрес фото относительно базы API; клиент дописывает базу сам.
func ProxyPath(fileID string) string {
	return "/photo-proxy/" + url.PathEscape(fileID)
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// WirePhoto переводит строку БД в форму ответа /photos/{order_id}.
func WirePhoto(p store.PhotoRow) crop.WirePhoto {
	w := crop.WirePhoto{
		ID:        crop.FlexID(strconv.FormatInt(p.ID, 10)),
		URL:       ProxyPath(p.TelegramFileID),
		Format:    p.Format,
		ProductID: crop.FlexID(p.Format),
		AutoCrop:  p.AutoCrop,
	}
	w.ProductName = crop.FormatLabel(p.Format)
	if r, ok := crop.FormatRatio(p.Format); ok {
		w.AspectRatio = &r
	}
	if ac := p.AutoCrop; ac != nil {
		w.Confidence = ac.Confidence
		w.Method = ac.Method
		if ac.FacesFound != nil {
			w.FacesFound = *ac.FacesFound
		}
	}
	if p.CropData != nil {
		if b, err := json.Marshal(p.CropData); err == nil {
			w.CropData = b
		}
	}
	w.CropConfirmed = p.CropConfirmed
	return w
}

func (s *Server) handleOrderPhotos(c echo.Context) error {
	orderID, err := parseID(c, "order_id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}
	if err != nil {
		return err
	}
	rows, err := s.orders.Photos(ctx, orderID)
	if err != nil {
		return err
	}

	out := crop.WireOrder{
		OrderID:     crop.FlexID(strconv.FormatInt(order.ID, 10)),
		OrderNumber: order.OrderNumber,
		Photos:      make([]crop.WirePhoto, 0, len(rows)),
	}
	for _, p := range rows {
		out.Photos = append(out.Photos, WirePhoto(p))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSaveCrops(c echo.Context) error {
	var p session.Payload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON")
	}
	if p.OrderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No order_id provided")
	}
	if len(p.Photos) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No photos data provided")
	}
	orderID, ok := p.OrderID.Int64()
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}

	ctx := c.Request().Context()
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}
	if err != nil {
		return err
	}

	saved, err := s.orders.SaveCrops(ctx, orderID, store.UpdatesFromPayload(p))
	if err != nil {
		return err
	}
	metrics.CropsSavedTotal.WithLabelValues("api").Add(float64(saved))
	s.log.Info("crops saved", "order_id", orderID, "saved", saved, "user_id", p.UserID)

	if s.notifier != nil {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := s.notifier.CropsSaved(nctx, order, saved); err != nil {
			metrics.TelegramNotifyErrors.Inc()
			s.log.Warn("notify user failed", "order_id", orderID, "err", err)
		}
		cancel()
	}

	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "saved": saved})
}

func (s *Server) fetchFile(ctx context.Context, fileID string) ([]byte, error) {
	return s.cache.Fetch(ctx, fileID, func(ctx context.Context) ([]byte, error) {
		return s.files.FileBytes(ctx, fileID)
	})
}

func (s *Server) handlePhotoProxy(c echo.Context) error {
	fileID := c.Param("file_id")
	if fileID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file_id is required")
	}
	data, err := s.fetchFile(c.Request().Context(), fileID)
	if err != nil {
		s.log.Warn("photo proxy failed", "file_id", fileID, "err", err)
		return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
	}
	etag := `"` + util.SHA256Hex(data)[:32] + `"`
	h := c.Response().Header()
	h.Set("Cache-Control", photoCacheControl)
	h.Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, util.PickMIME("", data), data)
}

// handlePreview рисует фото с подтверждённым кадром (или авто-кадром).
// ?max=N ограничивает большую сторону.
func (s *Server) handlePreview(c echo.Context) error {
	orderID, err := parseID(c, "order_id")
	if err != nil {
		return err
	}
	photoID, err := parseID(c, "photo_id")
	if err != nil {
		return err
	}
	maxSide := 0
	if v := c.QueryParam("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPreviewSide {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid max")
		}
		maxSide = n
	}

	ctx := c.Request().Context()
	p, err := s.orders.Photo(ctx, orderID, photoID)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
	}
	if err != nil {
		return err
	}
	data, err := s.fetchFile(ctx, p.TelegramFileID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "photo source unavailable")
	}

	out, err := render.Preview(bytes.NewReader(data), EffectiveCrop(p), maxSide, 85)
	if err != nil {
		// битые байты не должны жить в кэше
		if ierr := s.cache.Invalidate(ctx, p.TelegramFileID); ierr != nil {
			s.log.Warn("cache invalidate failed", "file_id", p.TelegramFileID, "err", ierr)
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.Blob(http.StatusOK, "image/jpeg", out)
}

// EffectiveCrop — подтверждённый кадр, иначе авто-кадр, иначе nil.
func EffectiveCrop(p store.PhotoRow) *crop.Rect {
	if p.CropData != nil {
		r := *p.CropData
		return &r
	}
	if ac := p.AutoCrop; ac != nil && ac.Width > 0 && ac.Height > 0 {
		return &crop.Rect{X: ac.X, Y: ac.Y, Width: ac.Width, Height: ac.Height, ScaleX: 1, ScaleY: 1}
	}
	return nil
}
