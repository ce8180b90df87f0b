// Package kafkaconsumer solves polygon jobs read from a Kafka topic and
// stores their results.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/rect-search/internal/cache"
	"github.com/mohammed-shakir/rect-search/internal/cache/keys"
	obs "github.com/mohammed-shakir/rect-search/internal/core/observability"
	"github.com/mohammed-shakir/rect-search/internal/jobs"
	mylog "github.com/mohammed-shakir/rect-search/internal/logger"
	"github.com/mohammed-shakir/rect-search/internal/solver"
)

type Solver interface {
	Solve(ctx context.Context, raw []byte, containment string) (solver.Result, error)
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	solver Solver
	store  cache.Interface
	dedupe *jobDedupe
	zlog   *zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	parts []int32
}

func New(cfg Config, logger *slog.Logger, s Solver, store cache.Interface, zl *zerolog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	base := mylog.WithComponent(context.Background(), "kafka_consumer")
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		solver: s,
		store:  store,
		dedupe: newJobDedupe(cfg.DedupeSize),
		zlog:   mylog.FromContext(base, zl),
		now:    time.Now,
	}
}

// consumes solve jobs from kafka until ctx is done
func (c *Consumer) Start(ctx context.Context) error {
	if c.solver == nil || c.store == nil {
		return errors.New("kafkaconsumer: missing dependencies (solver/store)")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := c.handler()

	c.logger.Info("kafka job consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka job consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				if ctx.Err() != nil {
					continue
				}
				obs.IncKafkaConsumerError("consume")
				c.zlog.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				time.Sleep(2 * time.Second)
			}
		}
	}
}

func (c *Consumer) handler() *groupHandler {
	return &groupHandler{
		process: c.ProcessOne,
		setup: func(claims map[string][]int32) {
			parts := slices.Clone(claims[c.cfg.Topic])
			slices.Sort(parts)
			c.mu.Lock()
			c.parts = parts
			c.mu.Unlock()
		},
		cleanup: func() {
			c.mu.Lock()
			c.parts = nil
			c.mu.Unlock()
		},
	}
}

// Readiness is true while the current session holds at least one partition.
func (c *Consumer) Readiness() (bool, []int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.parts) > 0, slices.Clone(c.parts)
}

// ProcessOne handles a single job message. Bad messages and failed solves
// are recorded and skipped; only a failed result write returns an error so
// the message is delivered again.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()
	zl := mylog.FromContext(ctx, c.zlog)

	var job jobs.Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		obs.IncKafkaConsumerError("decode")
		obs.IncJob("invalid")
		zl.Error().Err(err).
			Str("kind", "decode").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("kafka error")
		return nil
	}
	if err := job.Validate(); err != nil {
		obs.IncKafkaConsumerError("validate")
		obs.IncJob("invalid")
		zl.Warn().Err(err).
			Str("kind", "validate").
			Str("job_id", job.ID).
			Int64("offset", msg.Offset).
			Msg("kafka error")
		return nil
	}

	ctx = mylog.WithJobID(ctx, job.ID)
	ts := job.TS.UnixNano()
	if !c.dedupe.shouldProcess(job.ID, ts) {
		obs.IncJob("duplicate")
		c.logger.DebugContext(ctx, "job already stored (skipping)", "offset", msg.Offset)
		return nil
	}

	rec := jobs.Record{JobID: job.ID, SolvedAt: c.now().UTC()}
	res, err := c.solver.Solve(ctx, job.Raw(), job.Containment)
	rec.Outcome = solver.Outcome(err)
	if err != nil {
		rec.Error = err.Error()
		c.logger.WarnContext(ctx, "job solve failed", "outcome", rec.Outcome, "err", err)
	} else {
		rec.Result = &res
	}

	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := c.store.Set(ctx, keys.JobKey(job.ID), val, c.cfg.ResultTTL); err != nil {
		obs.IncKafkaConsumerError("store")
		zl.Error().Err(err).
			Str("kind", "store").
			Str("job_id", job.ID).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("kafka error")
		return fmt.Errorf("store job %q: %w", job.ID, err)
	}
	c.dedupe.markDone(job.ID, ts)

	obs.IncJob(rec.Outcome)
	ev := zl.Info().
		Str("event", "job").
		Str("job_id", job.ID).
		Str("outcome", rec.Outcome).
		Dur("elapsed", time.Since(start))
	if rec.Result != nil {
		ev = ev.Int64("answer1", rec.Result.Answer1).Int64("answer2", rec.Result.Answer2)
	}
	ev.Msg("job processed")
	return nil
}
