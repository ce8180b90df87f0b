// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// PartitionReporter is implemented by the job consumer; ready means a
// consumer group session holds at least one partition.
type PartitionReporter interface {
	Readiness() (ready bool, partitions []int32)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker reports readiness of the optional dependencies. Nil fields are
// skipped, so the zero Checker is always ready.
type Checker struct {
	Jobs    PartitionReporter
	Store   Pinger
	Timeout time.Duration
}

type report struct {
	Status     string            `json:"status"`
	Partitions []int32           `json:"partitions,omitempty"`
	Failed     map[string]string `json:"failed,omitempty"`
}

func (c Checker) check(ctx context.Context) report {
	rep := report{Status: "ready"}
	fail := func(dep, why string) {
		if rep.Failed == nil {
			rep.Failed = map[string]string{}
		}
		rep.Failed[dep] = why
		rep.Status = "not_ready"
	}

	if c.Jobs != nil {
		ok, parts := c.Jobs.Readiness()
		if ok {
			rep.Partitions = parts
		} else {
			fail("jobs", "no partitions assigned")
		}
	}
	if c.Store != nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = time.Second
		}
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := c.Store.Ping(pctx); err != nil {
			fail("store", err.Error())
		}
	}
	return rep
}

// Readiness answers 200 when every configured dependency is usable and
// 503 otherwise.
func (c Checker) Readiness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep := c.check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if rep.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(rep)
	}
}

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}
