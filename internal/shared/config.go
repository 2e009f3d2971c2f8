package shared

import (
	"os"
	"strconv"
	"time"

	"hotelmap/internal/matching"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	Workers        int
	ImportRate     int // records/second for batch CLI imports, 0 = unlimited
	CandidateLimit int
	CandidateBBox  float64 // degrees, 0 disables
	ReviewTopN     int
	CacheTTL       time.Duration

	Matcher matching.Config
}

func Load() Config {
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotelmap?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		Workers:        atoi("IMPORT_WORKERS", 8),
		ImportRate:     atoi("IMPORT_RATE", 50),
		CandidateLimit: atoi("CANDIDATE_LIMIT", 1000),
		CandidateBBox:  atof("CANDIDATE_BBOX_DEGREES", 0),
		ReviewTopN:     atoi("REVIEW_TOP_N", 5),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
	}

	m := matching.DefaultConfig()
	m.Weights.Name = atof("MATCH_WEIGHT_NAME", m.Weights.Name)
	m.Weights.Distance = atof("MATCH_WEIGHT_DISTANCE", m.Weights.Distance)
	m.Weights.Address = atof("MATCH_WEIGHT_ADDRESS", m.Weights.Address)
	m.Weights.PostalCode = atof("MATCH_WEIGHT_POSTAL", m.Weights.PostalCode)
	m.Weights.Other = atof("MATCH_WEIGHT_OTHER", m.Weights.Other)
	m.Thresholds.AutoAccept = atof("MATCH_AUTO_ACCEPT", m.Thresholds.AutoAccept)
	m.Thresholds.ManualReviewMin = atof("MATCH_REVIEW_MIN", m.Thresholds.ManualReviewMin)
	m.Thresholds.Reject = atof("MATCH_REJECT", m.Thresholds.Reject)
	c.Matcher = m

	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func atof(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
