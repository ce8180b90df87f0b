package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type JobsCfg struct {
	Enabled   bool
	Topic     string
	Brokers   string
	GroupID   string
	DedupeLRU int
}

type Config struct {
	Addr               string
	LogLevel           string
	LogConsole         bool
	InputPath          string
	Containment        string
	SearchWorkers      int
	SegmentCacheSize   int
	MaxInputBytes      int64
	MaxPerimeter       int64
	RedisAddr          string
	ResultCacheEnabled bool
	ResultCacheTTL     time.Duration
	CacheOpTimeout     time.Duration
	Jobs               JobsCfg
	MetricsEnabled     bool
	MetricsAddr        string
	MetricsPath        string
}

// LoadDotEnv loads variables from the given .env files if they exist.
// Variables already set in the environment win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

func FromEnv() Config {
	workers := getint("SEARCH_WORKERS", 0)
	if workers < 0 {
		workers = 0
	}

	return Config{
		Addr:               getenv("ADDR", ":8090"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogConsole:         getbool("LOG_CONSOLE", false),
		InputPath:          getenv("RECT_INPUT", "inputs/9.txt"),
		Containment:        strings.ToLower(getenv("CONTAINMENT", "sides")),
		SearchWorkers:      workers,
		SegmentCacheSize:   getint("SEGMENT_CACHE_SIZE", 1<<16),
		MaxInputBytes:      int64(getint("MAX_INPUT_BYTES", 4<<20)),
		MaxPerimeter:       int64(getint("MAX_PERIMETER", 1<<22)),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		ResultCacheEnabled: getbool("RESULT_CACHE_ENABLED", false),
		ResultCacheTTL:     getduration("RESULT_CACHE_TTL", 24*time.Hour),
		CacheOpTimeout:     getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		Jobs: JobsCfg{
			Enabled:   getbool("JOBS_ENABLED", false),
			Topic:     getenv("KAFKA_TOPIC", "rect-solve-jobs"),
			Brokers:   getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID:   getenv("KAFKA_GROUP_ID", "rect-solver"),
			DedupeLRU: getint("JOBS_DEDUPE_SIZE", 4096),
		},
		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsAddr:    getenv("METRICS_ADDR", ":9090"),
		MetricsPath:    getenv("METRICS_PATH", "/metrics"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// SplitCSV splits "a, b,,c" into [a b c].
func SplitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
