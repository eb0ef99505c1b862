package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleHealthz(c echo.Context) error {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "db: not ok\n"+err.Error())
		}
	}
	return c.String(http.StatusOK, "ok")
}
