package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photo-crop/api/internal/metrics"
)

func (s *Server) registerRoutes() {
	origins := s.allowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	s.echo.Use(s.requestLogger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(requestMetrics())
	// мини-приложение живёт на другом домене (GitHub Pages и т.п.)
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.GET("/healthz", s.handleHealthz)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.GET("/photos/:order_id", s.handleOrderPhotos)
	api.GET("/photos/:order_id/:photo_id/preview", s.handlePreview)
	api.POST("/crop/save", s.handleSaveCrops)
	api.GET("/photo-proxy/:file_id", s.handlePhotoProxy)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			s.log.Info("Request", attrs...)
			return nil
		},
	})
}

func requestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			metrics.HTTPRequestsTotal.WithLabelValues(route, c.Request().Method, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
