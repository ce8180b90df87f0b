package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"ADDR", "CONTAINMENT", "SEARCH_WORKERS", "RESULT_CACHE_TTL", "JOBS_ENABLED"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Addr != ":8090" || cfg.Containment != "sides" || cfg.SearchWorkers != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ResultCacheTTL != 24*time.Hour || cfg.Jobs.Enabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnv_MaxPerimeter(t *testing.T) {
	cases := map[string]struct {
		val  string
		want int64
	}{
		"unset":   {"", 1 << 22},
		"set":     {"5000", 5000},
		"garbage": {"lots", 1 << 22},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("MAX_PERIMETER", tc.val)
			if got := FromEnv().MaxPerimeter; got != tc.want {
				t.Fatalf("MaxPerimeter=%d want %d", got, tc.want)
			}
		})
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CONTAINMENT", "Perimeter")
	t.Setenv("SEARCH_WORKERS", "-3")
	t.Setenv("RESULT_CACHE_ENABLED", "yes")
	t.Setenv("RESULT_CACHE_TTL", "90s")
	t.Setenv("JOBS_ENABLED", "1")
	t.Setenv("KAFKA_TOPIC", "jobs")
	t.Setenv("MAX_INPUT_BYTES", "not-a-number")

	cfg := FromEnv()
	if cfg.Containment != "perimeter" {
		t.Fatalf("containment=%q", cfg.Containment)
	}
	if cfg.SearchWorkers != 0 {
		t.Fatalf("negative workers not clamped: %d", cfg.SearchWorkers)
	}
	if !cfg.ResultCacheEnabled || cfg.ResultCacheTTL != 90*time.Second {
		t.Fatalf("cache cfg: %+v", cfg)
	}
	if !cfg.Jobs.Enabled || cfg.Jobs.Topic != "jobs" {
		t.Fatalf("jobs cfg: %+v", cfg.Jobs)
	}
	if cfg.MaxInputBytes != 4<<20 {
		t.Fatalf("bad int should fall back to default, got %d", cfg.MaxInputBytes)
	}
}

func TestLoadDotEnv_DoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RECT_DOTENV_A=from-file\nRECT_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RECT_DOTENV_A", "from-env")
	t.Setenv("RECT_DOTENV_B", "")
	_ = os.Unsetenv("RECT_DOTENV_B")

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("RECT_DOTENV_A"); got != "from-env" {
		t.Fatalf("A=%q want from-env", got)
	}
	if got := os.Getenv("RECT_DOTENV_B"); got != "from-file" {
		t.Fatalf("B=%q want from-file", got)
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a, b,,c ,")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("SplitCSV=%v", got)
	}
}
