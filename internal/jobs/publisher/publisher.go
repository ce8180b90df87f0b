// Package publisher enqueues solve jobs on the Kafka jobs topic.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/rect-search/internal/jobs"
)

var ErrClosed = errors.New("publisher closed")

type Publisher struct {
	topic   string
	logger  *slog.Logger
	events  chan jobs.Job
	prod    sarama.AsyncProducer
	stopped chan struct{}
	errDone chan struct{}

	mu     sync.RWMutex
	closed bool
	failed int
}

func New(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("publisher: create async producer: %w", err)
	}
	return newWithProducer(prod, topic, queueSize, logger), nil
}

func newWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		logger:  logger,
		events:  make(chan jobs.Job, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for job := range p.events {
			b, err := json.Marshal(job)
			if err != nil {
				p.logger.Error("publisher: marshal error", "job_id", job.ID, "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(job.ID),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err == nil {
				continue
			}
			p.mu.Lock()
			p.failed++
			p.mu.Unlock()
			p.logger.Error("publisher: producer error", "err", err)
		}
	}()

	return p
}

// Publish validates job and queues it, blocking while the queue is full.
func (p *Publisher) Publish(ctx context.Context, job jobs.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.events <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish job %q: %w", job.ID, ctx.Err())
	}
}

// Close flushes queued jobs and returns the number the producer failed to deliver.
func (p *Publisher) Close() (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	<-p.stopped

	err := p.prod.Close()
	<-p.errDone

	p.mu.RLock()
	failed := p.failed
	p.mu.RUnlock()
	if err != nil {
		var perrs sarama.ProducerErrors
		if errors.As(err, &perrs) {
			return failed + len(perrs), nil
		}
		return failed, fmt.Errorf("publisher: close producer: %w", err)
	}
	return failed, nil
}
