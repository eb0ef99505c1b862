package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"photo-crop/api/internal/cache"
	"photo-crop/api/internal/config"
	"photo-crop/api/internal/httpserver"
	"photo-crop/api/internal/logging"
	"photo-crop/api/internal/store"
	"photo-crop/api/internal/suggest"
	"photo-crop/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	lg := logging.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Postgres ---
	dsn := cfg.DSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		fatal("sql.Open", err)
	}
	// connection pool tune (нагрузка до ~20 rps)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	{
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err != nil {
			fatal("db.Ping", err)
		}
		lg.Info("db connected", "dsn", config.SafeDSNSummary(dsn))
	}
	if err := store.Migrate(ctx, db); err != nil {
		fatal("migrate", err)
	}
	orders := store.NewOrderRepo(db)

	// --- Redis (необязателен) ---
	photoCache := cache.NewPhotoCache(nil, cfg.PhotoCacheTTL)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			fatal("redis", err)
		}
		defer rdb.Close()
		photoCache = cache.NewPhotoCache(rdb, cfg.PhotoCacheTTL)
		lg.Info("photo cache enabled", "ttl", cfg.PhotoCacheTTL)
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		fatal("telegram", err)
	}
	bot.Debug = false
	files := telegram.NewFiles(bot)

	var suggester suggest.Suggester = suggest.Center{}
	if cfg.GeminiAPIKey != "" {
		suggester = suggest.Fallback{
			Primary:   suggest.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel),
			Secondary: suggest.Center{},
			Logger:    lg,
		}
	}

	r := &telegram.Router{
		Bot:       bot,
		Orders:    orders,
		Files:     files,
		Suggester: suggester,
		Log:       lg,
		WebAppURL: cfg.WebAppURL,
		APIURL:    cfg.APIBase(),
	}

	srv := httpserver.New(httpserver.Deps{
		Orders:       orders,
		Files:        files,
		Cache:        photoCache,
		Notifier:     &telegram.Notifier{Bot: bot},
		DB:           db,
		Logger:       lg,
		AllowOrigins: cfg.AllowOrigins(),
	})

	addr := "0.0.0.0:" + cfg.Port
	g, gctx := errgroup.WithContext(ctx)

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		if err := registerWebhook(bot, srv.Echo(), r, webhookURL); err != nil {
			fatal("webhook", err)
		}
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			lg.Warn("delete webhook failed", "err", err)
		}
		g.Go(func() error {
			runPolling(gctx, bot, r.HandleUpdate)
			return nil
		})
	}

	g.Go(func() error {
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}
	_ = db.Close()
}

func fatal(what string, err error) {
	slog.Error(what+" failed", "error", err)
	os.Exit(1)
}

// ---------------- Modes -----------------

func registerWebhook(bot *tgbotapi.BotAPI, e *echo.Echo, r *telegram.Router, baseURL string) error {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	e.POST(path, echo.WrapHandler(telegram.WebhookHandler(r.HandleUpdate)))
	slog.Info("webhook registered", "path", path)
	return nil
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return 2 * time.Second
		}
	}
	return 1 * time.Second
}

func backoff(err error) time.Duration {
	const (
		baseDelay = 1 * time.Second
		maxDelay  = 15 * time.Second
	)
	return min(max(retryDelayFromError(err), baseDelay), maxDelay)
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(context.Context, telegram.Update)) {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("polling: context cancelled")
			return
		default:
		}

		updates, err := telegram.FetchUpdates(bot, offset, 30)
		if err != nil {
			d := backoff(err)
			slog.Warn("polling error", "err", err, "retry_in", d)
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(ctx, upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

func shortHash(s string) string {
	// лёгкий хэш для пути вебхука (не крипто, но стабильно для токена)
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	// 16-символный hex
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
