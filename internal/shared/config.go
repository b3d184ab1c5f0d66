package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	ViatorBase  string
	ViatorKey   string
	ViatorRPS   int
	Workers     int

	SearchCacheTTL  time.Duration
	SearchTimeout   time.Duration
	TaxonomyRefresh time.Duration

	// Fuzzy-resolution knobs.
	ResolveMinConfidence float64
	ResolveSampleLimit   int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/activities?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		ViatorBase:  env("VIATOR_BASE_URL", "https://api.viator.com"),
		ViatorKey:   env("VIATOR_API_KEY", ""),
		ViatorRPS:   atoi("VIATOR_RPS", 5),
		Workers:     atoi("SYNC_WORKERS", 8),

		SearchCacheTTL:  time.Duration(atoi("SEARCH_CACHE_TTL_SECONDS", 604800)) * time.Second, // 7 days
		SearchTimeout:   time.Duration(atoi("SEARCH_TIMEOUT_SECONDS", 45)) * time.Second,
		TaxonomyRefresh: time.Duration(atoi("TAXONOMY_REFRESH_HOURS", 168)) * time.Hour, // weekly

		ResolveMinConfidence: float64(atoi("RESOLVE_MIN_CONFIDENCE", 80)),
		ResolveSampleLimit:   atoi("RESOLVE_SAMPLE_LIMIT", 1000),
	}
	if c.ViatorKey == "" {
		log.Warn().Msg("VIATOR_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
