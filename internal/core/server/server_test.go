package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/rect-search/internal/core/config"
	"github.com/mohammed-shakir/rect-search/internal/core/health"
	"github.com/mohammed-shakir/rect-search/internal/solver"
)

const sample = "7,1\n11,1\n11,7\n9,7\n9,5\n2,5\n2,3\n7,3\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{MaxInputBytes: 1 << 16}
	s := solver.New(solver.Config{}, logger, nil)
	ts := httptest.NewServer(NewRouter(cfg, logger, s, health.Checker{}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSolveEndToEnd(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		containment string
		want2       int64
	}{
		{"", 24},
		{"perimeter", 24},
	}
	for _, tc := range cases {
		resp, err := http.Post(ts.URL+"/solve?containment="+tc.containment, "text/plain", strings.NewReader(sample))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		var res solver.Result
		err = json.NewDecoder(resp.Body).Decode(&res)
		_ = resp.Body.Close()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.StatusCode != http.StatusOK || res.Answer1 != 50 || res.Answer2 != tc.want2 {
			t.Fatalf("status=%d res=%+v", resp.StatusCode, res)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("missing X-Request-ID")
		}
	}
}

func TestSolve_MalformedIs400(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/solve", "text/plain", strings.NewReader("0,0\n1,1\n0,1\n"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", resp.StatusCode)
	}
}

func TestProbesAndMethods(t *testing.T) {
	ts := newTestServer(t)
	for path, want := range map[string]int{"/healthz": 200, "/readyz": 200, "/metrics": 200, "/solve": 405} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("GET %s status=%d want %d", path, resp.StatusCode, want)
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, config.Config{Addr: "127.0.0.1:0"}, logger, solver.New(solver.Config{}, logger, nil), health.Checker{})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestContainments(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/containments")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var body struct {
		Available []string `json:"available"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(body.Available, ",") != "perimeter,sides" {
		t.Fatalf("available=%v", body.Available)
	}
}

func TestHTTPMetrics_UseRoutePattern(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/no/such/path"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)
	for _, want := range []string{
		`http_requests_total{method="GET",route="/healthz",status="200"}`,
		`http_requests_total{method="GET",route="unmatched",status="404"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in metrics", want)
		}
	}
}

func TestServe_ReturnsListenerError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_ = ln.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := serve(context.Background(), ln, http.NotFoundHandler(), logger); err == nil {
		t.Fatal("expected error from closed listener")
	}
}
