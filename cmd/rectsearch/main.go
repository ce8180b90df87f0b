package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/rect-search/internal/core/config"
	"github.com/mohammed-shakir/rect-search/internal/core/input"
	"github.com/mohammed-shakir/rect-search/internal/core/observability"
	"github.com/mohammed-shakir/rect-search/internal/logger"
	"github.com/mohammed-shakir/rect-search/internal/solver"
)

func main() {
	config.LoadDotEnv()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.FromEnv()

	fs := flag.NewFlagSet("rectsearch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("input", cfg.InputPath, "path to the polygon input file")
	containment := fs.String("containment", cfg.Containment, "containment check: sides or perimeter")
	workers := fs.Int("workers", cfg.SearchWorkers, "candidate generation workers (0 = GOMAXPROCS)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	zl := logger.Build(logger.Config{
		Level:       cfg.LogLevel,
		Console:     cfg.LogConsole,
		Containment: *containment,
		Component:   "cli",
	}, stderr)
	appLog := logger.NewSlog(&zl)
	observability.Init(nil, false)

	s := solver.New(solver.Config{
		Containment:      *containment,
		Workers:          *workers,
		SegmentCacheSize: cfg.SegmentCacheSize,
		MaxPerimeter:     cfg.MaxPerimeter,
	}, appLog, nil)

	b, err := input.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(stdout, "Failed with error: %v\n", err)
		return 1
	}
	res, err := s.SolveBoundary(ctx, b, *containment)
	if err != nil {
		fmt.Fprintf(stdout, "Failed with error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Answer 1 is: %d\n", res.Answer1)
	fmt.Fprintf(stdout, "Answer 2 is: %d\n", res.Answer2)
	return 0
}
