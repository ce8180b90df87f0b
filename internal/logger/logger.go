// Package logger builds the zerolog logger used by every binary and carries
// per-request fields through context.Context.
package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level       string
	Console     bool
	SampleN     int
	Containment string
	Component   string
}

// Fields are attached to every line logged with a context that carries them.
type Fields struct {
	RequestID   string
	JobID       string
	Component   string
	Containment string
}

type fieldsKey struct{}

// FieldsFrom returns the fields stored in ctx, or the zero value.
func FieldsFrom(ctx context.Context) Fields {
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

func with(ctx context.Context, set func(*Fields)) context.Context {
	f := FieldsFrom(ctx)
	set(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithRequestID stores id, generating one when id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewID()
	}
	return with(ctx, func(f *Fields) { f.RequestID = id })
}

func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return with(ctx, func(f *Fields) { f.JobID = id })
}

func WithContainment(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return with(ctx, func(f *Fields) { f.Containment = name })
}

func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return with(ctx, func(f *Fields) { f.Component = component })
}

func (f Fields) apply(c zerolog.Context) zerolog.Context {
	for _, kv := range [...]struct{ k, v string }{
		{"request_id", f.RequestID},
		{"job_id", f.JobID},
		{"containment", f.Containment},
		{"component", f.Component},
	} {
		if kv.v != "" {
			c = c.Str(kv.k, kv.v)
		}
	}
	return c
}

// NewID returns 16 random hex characters.
func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Build returns a logger writing JSON lines (or console output) to out,
// which defaults to stderr so stdout stays free for answers.
func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(out).Level(ParseLevel(cfg.Level))
	if cfg.SampleN > 1 {
		zl = zl.Sample(&zerolog.BasicSampler{N: uint32(min(int64(cfg.SampleN), math.MaxUint32))})
	}

	static := Fields{Component: cfg.Component, Containment: cfg.Containment}
	return static.apply(zl.With().Timestamp()).Logger()
}

// FromContext returns a child of parent carrying the fields in ctx. A nil
// parent logs nowhere.
func FromContext(ctx context.Context, parent *zerolog.Logger) *zerolog.Logger {
	base := zerolog.New(io.Discard)
	if parent != nil {
		base = *parent
	}
	l := FieldsFrom(ctx).apply(base.With()).Logger()
	return &l
}
