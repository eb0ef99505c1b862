// Package httpserver serves the crop mini app API: order photo listing,
// crop saving, a cached Telegram photo proxy and rendered previews.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"photo-crop/api/internal/cache"
	"photo-crop/api/internal/store"
)

type orderStore interface {
	Get(ctx context.Context, id int64) (store.Order, error)
	Photos(ctx context.Context, orderID int64) ([]store.PhotoRow, error)
	Photo(ctx context.Context, orderID, photoID int64) (store.PhotoRow, error)
	SaveCrops(ctx context.Context, orderID int64, crops []store.CropUpdate) (int, error)
}

// FileSource отдаёт байты файла Telegram по file_id.
type FileSource interface {
	FileBytes(ctx context.Context, fileID string) ([]byte, error)
}

// Notifier сообщает пользователю, что кадры сохранены.
type Notifier interface {
	CropsSaved(ctx context.Context, order store.Order, saved int) error
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Orders   orderStore
	Files    FileSource
	Cache    *cache.PhotoCache
	Notifier Notifier // nil — не уведомляем
	DB       pinger
	Logger   *slog.Logger

	AllowOrigins []string
}

type Server struct {
	echo     *echo.Echo
	orders   orderStore
	files    FileSource
	cache    *cache.PhotoCache
	notifier Notifier
	db       pinger
	log      *slog.Logger

	allowOrigins []string
	startTime    time.Time
}

func New(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	lg := d.Logger
	if lg == nil {
		lg = slog.Default()
	}
	pc := d.Cache
	if pc == nil {
		pc = cache.NewPhotoCache(nil, 0)
	}
	s := &Server{
		echo:         e,
		orders:       d.Orders,
		files:        d.Files,
		cache:        pc,
		notifier:     d.Notifier,
		db:           d.DB,
		log:          lg,
		allowOrigins: d.AllowOrigins,
		startTime:    time.Now(),
	}
	s.registerRoutes()
	return s
}

// Echo отдаёт роутер, чтобы повесить на него, например, вебхук бота.
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.echo.ServeHTTP(w, r) }

func (s *Server) Start(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
