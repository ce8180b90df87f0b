// Package jobs defines the solve job messages read from Kafka and the
// result records written back to the store.
package jobs

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/rect-search/internal/solver"
)

type Job struct {
	Version     int        `json:"version"`
	ID          string     `json:"id"`
	TS          time.Time  `json:"ts"`
	Containment string     `json:"containment,omitempty"`
	Input       string     `json:"input,omitempty"`
	Points      [][2]int64 `json:"points,omitempty"`
}

func (j Job) Validate() error {
	if j.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	if strings.TrimSpace(j.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if j.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	hasInput := strings.TrimSpace(j.Input) != ""
	hasPoints := len(j.Points) > 0
	if hasInput == hasPoints {
		return fmt.Errorf("exactly one of input or points is required")
	}
	for i, p := range j.Points {
		if p[0] < 0 || p[1] < 0 {
			return fmt.Errorf("points[%d] has a negative coordinate", i)
		}
	}
	return nil
}

// Raw renders the job's polygon in the "x,y" per line input format.
func (j Job) Raw() []byte {
	if len(j.Points) == 0 {
		return []byte(j.Input)
	}
	var b bytes.Buffer
	for _, p := range j.Points {
		b.WriteString(strconv.FormatInt(p[0], 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(p[1], 10))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Record is stored under keys.JobKey(JobID) once a job is processed.
type Record struct {
	JobID    string         `json:"job_id"`
	Outcome  string         `json:"outcome"`
	Error    string         `json:"error,omitempty"`
	Result   *solver.Result `json:"result,omitempty"`
	SolvedAt time.Time      `json:"solved_at"`
}
