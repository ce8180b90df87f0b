package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mohammed-shakir/rect-search/internal/core/config"
	"github.com/mohammed-shakir/rect-search/internal/solver"
)

// Solver answers one solve request.
type Solver interface {
	Solve(ctx context.Context, raw []byte, containment string) (solver.Result, error)
}

type errorBody struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome"`
}

// HandleSolve reads the "x,y" body and writes the solve result as JSON.
func HandleSolve(logger *slog.Logger, cfg config.Config, s Solver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		containment, err := ParseContainment(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err, "bad_request")
			return
		}

		body := io.Reader(r.Body)
		if cfg.MaxInputBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, cfg.MaxInputBytes)
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeError(w, http.StatusRequestEntityTooLarge, err, "too_large")
				return
			}
			writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err), "bad_request")
			return
		}

		res, err := s.Solve(r.Context(), raw, containment)
		if err != nil {
			outcome := solver.Outcome(err)
			status := http.StatusInternalServerError
			switch outcome {
			case "parse_error", "malformed":
				status = http.StatusBadRequest
			case "too_large":
				status = http.StatusRequestEntityTooLarge
			case "canceled":
				status = http.StatusServiceUnavailable
			}
			if status >= 500 {
				logger.ErrorContext(r.Context(), "solve failed", "err", err)
			} else {
				logger.DebugContext(r.Context(), "solve rejected", "outcome", outcome, "err", err)
			}
			writeError(w, status, err, outcome)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

// ParseContainment reads the optional containment query parameter.
func ParseContainment(r *http.Request) (string, error) {
	c := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("containment")))
	for _, ch := range c {
		if (ch < 'a' || ch > 'z') && ch != '-' && ch != '_' {
			return "", fmt.Errorf("invalid containment %q", c)
		}
	}
	return c, nil
}

func writeError(w http.ResponseWriter, status int, err error, outcome string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: err.Error(), Outcome: outcome})
}
