package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotelmap", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hotelmap", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	Imports = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotelmap", Name: "imports_total", Help: "Supplier record imports by recommended action."},
		[]string{"action"}, // auto_map|manual_review|create_new|none
	)
	MatchScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hotelmap", Name: "match_score",
			Help:    "Best-candidate confidence score per imported record.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
	ReviewActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotelmap", Name: "review_actions_total", Help: "Reviewer adjudication actions."},
		[]string{"action"}, // confirm|reject|no_match|create_master
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hotelmap", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"},
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, Imports, MatchScores, ReviewActions, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveImport(action string) {
	Imports.WithLabelValues(action).Inc()
}

func ObserveMatchScore(score float64) {
	MatchScores.Observe(score)
}

func ObserveReviewAction(action string) {
	ReviewActions.WithLabelValues(action).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
