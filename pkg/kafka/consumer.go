package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ErrConsumerClosed is returned by Poll once the consumer has been closed
var ErrConsumerClosed = errors.New("kafka consumer closed")

// ConsumerConfig holds consumer settings. An empty GroupID consumes every
// partition directly from the latest offset, so each process sees every record.
type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	Topics           []string
	ClientID         string
	SessionTimeout   time.Duration
	RebalanceTimeout time.Duration
	MaxRetries       int
	RetryInterval    time.Duration
}

// Consumer polls records from a set of topics
type Consumer struct {
	client  *kgo.Client
	grouped bool
}

// NewConsumer creates a consumer
func NewConsumer(ctx context.Context, cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("at least one topic is required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	if cfg.GroupID != "" {
		opts = append(opts, kgo.ConsumerGroup(cfg.GroupID), kgo.DisableAutoCommit())
		if cfg.SessionTimeout > 0 {
			opts = append(opts, kgo.SessionTimeout(cfg.SessionTimeout))
		}
		if cfg.RebalanceTimeout > 0 {
			opts = append(opts, kgo.RebalanceTimeout(cfg.RebalanceTimeout))
		}
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := ping(ctx, client, cfg.MaxRetries, cfg.RetryInterval); err != nil {
		client.Close()
		return nil, err
	}

	return &Consumer{client: client, grouped: cfg.GroupID != ""}, nil
}

// Poll blocks until records are available or ctx ends
func (c *Consumer) Poll(ctx context.Context) ([]*Record, error) {
	fetches := c.client.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, ErrConsumerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstErr error
	fetches.EachError(func(topic string, partition int32, err error) {
		if firstErr == nil {
			firstErr = fmt.Errorf("fetch %s[%d]: %w", topic, partition, err)
		}
	})

	var records []*Record
	fetches.EachRecord(func(rec *kgo.Record) {
		records = append(records, fromKgoRecord(rec))
	})

	if len(records) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return records, nil
}

// CommitRecords commits offsets for records. Without a group it is a no-op.
func (c *Consumer) CommitRecords(ctx context.Context, records []*Record) error {
	if !c.grouped || len(records) == 0 {
		return nil
	}
	raw := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		if r.raw != nil {
			raw = append(raw, r.raw)
		}
	}
	return c.client.CommitRecords(ctx, raw...)
}

// Close leaves the group and closes the client
func (c *Consumer) Close() {
	c.client.Close()
}
