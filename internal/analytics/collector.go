package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/qquiche/ir/pkg/kafka"
)

// Publisher is the subset of the Kafka producer the collector needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector fan-ins events from request handlers onto a buffered channel and
// publishes them from a single goroutine. Track never blocks; when the buffer
// is full the event is dropped and counted in the log.
type Collector struct {
	producer Publisher
	agg      *Aggregator
	eventCh  chan any
	done     chan struct{}
	logger   *slog.Logger

	// mu orders Track sends against Close; sending on a closed channel
	// panics, and callers may race a shutdown.
	mu     sync.RWMutex
	closed bool
}

// NewCollector wires the collector to a Kafka producer and an optional
// in-process aggregator. agg may be nil.
func NewCollector(producer Publisher, agg *Aggregator, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		agg:      agg,
		eventCh:  make(chan any, bufferSize),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "analytics-collector"),
	}
}

// Start launches the publishing goroutine. It runs until Close is called or
// ctx is cancelled, draining buffered events on the way out.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event. It is safe for concurrent use, never blocks, and
// drops the event after Close.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Warn("analytics event dropped (collector closed)")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the publisher to finish.
// Closing twice is a no-op.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event any) {
	if c.agg != nil {
		c.agg.Record(event)
	}
	err := c.producer.Publish(ctx, kafka.Event{Key: "query-analytics", Value: event})
	if err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
