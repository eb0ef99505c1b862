package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP API
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Crops
var (
	CropsSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crops_saved_total",
			Help: "Confirmed crops saved, by channel (api/webapp)",
		},
		[]string{"channel"},
	)

	SuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_suggestions_total",
			Help: "Automatic crop suggestions by method",
		},
		[]string{"method"},
	)

	SuggestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crop_suggestion_duration_seconds",
			Help:    "Time spent computing a crop suggestion",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// Photo proxy cache
var (
	PhotoCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_cache_hits_total",
			Help: "Photo proxy requests served from Redis",
		},
	)

	PhotoCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_cache_misses_total",
			Help: "Photo proxy requests that went to Telegram",
		},
	)
)

// Redis
var (
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)
)

// Telegram
var (
	TelegramUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_total",
			Help: "Telegram updates handled, by kind",
		},
		[]string{"kind"},
	)

	TelegramNotifyErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_notify_errors_total",
			Help: "Failed user notifications after a crop save",
		},
	)
)
