// Package analytics ships search events to Kafka without slowing down the
// request path. Track never blocks: events are buffered and published in
// batches by a background loop, and dropped when the buffer is full.
package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Publisher is implemented by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Options struct {
	BufferSize     int
	BatchSize      int
	FlushInterval  time.Duration
	PublishTimeout time.Duration
}

type Collector struct {
	publisher Publisher
	eventCh   chan SearchEvent
	opts      Options
	logger    *slog.Logger
	done      chan struct{}
	dropped   atomic.Int64
	published atomic.Int64
}

func NewCollector(publisher Publisher, opts Options) *Collector {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan SearchEvent, opts.BufferSize),
		opts:      opts,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It exits once Close is called or ctx
// ends, flushing whatever is still buffered.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.opts.BatchSize,
		"flush_interval", c.opts.FlushInterval,
	)
}

// Track queues an event. It never blocks.
func (c *Collector) Track(event SearchEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

// Stats returns how many events were published and dropped so far.
func (c *Collector) Stats() (published, dropped int64) {
	return c.published.Load(), c.dropped.Load()
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.opts.BatchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		c.publish(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				flush(context.Background())
				return
			}
			batch = append(batch, kafka.Event{Key: event.key(), Value: event})
			if len(batch) >= c.opts.BatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			c.drainRemaining(&batch)
			flush(context.Background())
			return
		}
	}
}

func (c *Collector) drainRemaining(batch *[]kafka.Event) {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			*batch = append(*batch, kafka.Event{Key: event.key(), Value: event})
		default:
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	err := resilience.WithTimeout(ctx, c.opts.PublishTimeout, "analytics-publish", func(ctx context.Context) error {
		return c.publisher.PublishBatch(ctx, batch)
	})
	if err != nil {
		c.dropped.Add(int64(len(batch)))
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
		return
	}
	c.published.Add(int64(len(batch)))
}
