package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/rect-search/internal/cache/keys"
	"github.com/mohammed-shakir/rect-search/internal/cache/redisstore"
	"github.com/mohammed-shakir/rect-search/internal/core/config"
	"github.com/mohammed-shakir/rect-search/internal/jobs"
	"github.com/mohammed-shakir/rect-search/internal/jobs/publisher"
	"github.com/mohammed-shakir/rect-search/internal/logger"
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

	fs := flag.NewFlagSet("rectsearch-submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("input", cfg.InputPath, "path to the polygon input file")
	id := fs.String("id", "", "job id (random when empty)")
	containment := fs.String("containment", "", "containment check for the job")
	wait := fs.Duration("wait", 0, "poll redis for the result this long (0 = don't wait)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: cfg.LogConsole, Component: "submit"}, stderr)
	appLog := logger.NewSlog(&zl)

	raw, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}
	if *id == "" {
		*id = logger.NewID()
	}
	job := jobs.Job{Version: 1, ID: *id, TS: time.Now().UTC(), Containment: *containment, Input: string(raw)}

	pub, err := publisher.New(config.SplitCSV(cfg.Jobs.Brokers), cfg.Jobs.Topic, 1, appLog)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if err := pub.Publish(ctx, job); err != nil {
		_, _ = pub.Close()
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if failed, err := pub.Close(); err != nil || failed > 0 {
		fmt.Fprintf(stderr, "job %s not delivered (failed=%d err=%v)\n", job.ID, failed, err)
		return 1
	}
	fmt.Fprintf(stdout, "submitted job %s\n", job.ID)

	if *wait <= 0 {
		return 0
	}
	rec, err := awaitRecord(ctx, cfg.RedisAddr, job.ID, *wait)
	if err != nil {
		fmt.Fprintf(stderr, "wait for job %s: %v\n", job.ID, err)
		return 1
	}
	return printRecord(stdout, rec)
}

func awaitRecord(ctx context.Context, addr, id string, wait time.Duration) (jobs.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	rc, err := redisstore.New(ctx, addr)
	if err != nil {
		return jobs.Record{}, err
	}
	defer func() { _ = rc.Close() }()

	key := keys.JobKey(id)
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	for {
		val, found, err := rc.Get(ctx, key)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return jobs.Record{}, err
		}
		if found {
			var rec jobs.Record
			if err := json.Unmarshal(val, &rec); err != nil {
				return jobs.Record{}, fmt.Errorf("decode record: %w", err)
			}
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return jobs.Record{}, ctx.Err()
		case <-tick.C:
		}
	}
}

func printRecord(w io.Writer, rec jobs.Record) int {
	if rec.Result == nil {
		fmt.Fprintf(w, "Failed with error: %s\n", rec.Error)
		return 1
	}
	fmt.Fprintf(w, "Answer 1 is: %d\n", rec.Result.Answer1)
	fmt.Fprintf(w, "Answer 2 is: %d\n", rec.Result.Answer2)
	return 0
}
