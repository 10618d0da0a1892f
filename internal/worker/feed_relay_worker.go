package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/feed"
	"github.com/prohmpiriya/sport-slots-booker/pkg/kafka"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
	"github.com/prohmpiriya/sport-slots-booker/pkg/retry"
)

// RecordSource is the subset of kafka.Consumer the relay needs
type RecordSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
}

// FeedRelayWorkerConfig holds configuration for the feed relay worker
type FeedRelayWorkerConfig struct {
	// Backoff bounds the wait between failed polls
	Backoff *retry.Config
}

// FeedRelayWorker consumes slot events from Kafka and republishes them to the
// local feed hub
type FeedRelayWorker struct {
	config *FeedRelayWorkerConfig
	source RecordSource
	hub    *feed.Hub
	log    *logger.Logger
}

// NewFeedRelayWorker creates a new feed relay worker
func NewFeedRelayWorker(cfg *FeedRelayWorkerConfig, source RecordSource, hub *feed.Hub, log *logger.Logger) *FeedRelayWorker {
	if cfg == nil {
		cfg = &FeedRelayWorkerConfig{}
	}
	if cfg.Backoff == nil {
		cfg.Backoff = &retry.Config{
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     10 * time.Second,
			Multiplier:      2,
			JitterFactor:    0.1,
		}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FeedRelayWorker{config: cfg, source: source, hub: hub, log: log}
}

// Start polls until ctx is cancelled or the source is closed
func (w *FeedRelayWorker) Start(ctx context.Context) {
	w.log.Info("Feed relay worker started")
	failures := 0

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Feed relay worker stopped")
			return
		default:
		}

		records, err := w.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, kafka.ErrConsumerClosed) {
				w.log.Info("Feed relay worker stopped")
				return
			}
			wait := retry.Backoff(w.config.Backoff, failures)
			failures++
			w.log.Error("Failed to poll slot events",
				zap.Error(err),
				zap.Int("consecutive_failures", failures),
				zap.Duration("backoff", wait),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		failures = 0

		if len(records) == 0 {
			continue
		}

		w.processRecords(records)

		if err := w.source.CommitRecords(ctx, records); err != nil {
			w.log.Error("Failed to commit offsets", zap.Error(err))
		}
	}
}

// processRecords relays a batch, skipping records that do not decode
func (w *FeedRelayWorker) processRecords(records []*kafka.Record) {
	for _, record := range records {
		if err := w.processRecord(record); err != nil {
			w.log.Warn("Skipping slot event",
				zap.String("topic", record.Topic),
				zap.Int64("offset", record.Offset),
				zap.Error(err),
			)
		}
	}
}

func (w *FeedRelayWorker) processRecord(record *kafka.Record) error {
	var event domain.SlotEvent
	if err := json.Unmarshal(record.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal slot event: %w", err)
	}
	if event.VenueID == "" || event.SportID == "" {
		return fmt.Errorf("slot event %s has no venue or sport", event.ID)
	}

	w.hub.Publish(event)
	return nil
}
