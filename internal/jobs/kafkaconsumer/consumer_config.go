package kafkaconsumer

import (
	"time"

	"github.com/mohammed-shakir/rect-search/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	DedupeSize          int
	ResultTTL           time.Duration
}

func FromConfig(cfg config.Config) Config {
	return Config{
		Brokers:             config.SplitCSV(cfg.Jobs.Brokers),
		Topic:               cfg.Jobs.Topic,
		GroupID:             cfg.Jobs.GroupID,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		InitialOffsetOldest: true,
		DedupeSize:          cfg.Jobs.DedupeLRU,
		ResultTTL:           cfg.ResultCacheTTL,
	}
}
