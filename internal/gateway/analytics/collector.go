// Package analytics buffers findAddress query outcomes and ships them to
// Kafka fire-and-forget, so slow or unreachable brokers never add latency to
// a request.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/delacruz-dev/geoshard/pkg/kafka"
)

const (
	defaultBufferSize = 1024
	drainTimeout      = 5 * time.Second
)

// Collector accepts QueryEvents on a buffered channel and publishes them to
// Kafka from a single background goroutine. Track never blocks the caller:
// a full buffer drops the event and increments a dropped counter.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan QueryEvent
	logger   *slog.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	dropped int64
	closed  bool
}

// NewCollector starts the background publishing loop and returns a ready
// Collector.
func NewCollector(producer *kafka.Producer) *Collector {
	c := &Collector{
		producer: producer,
		eventCh:  make(chan QueryEvent, defaultBufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *Collector) run() {
	defer c.wg.Done()
	for event := range c.eventCh {
		c.publish(event)
	}
}

func (c *Collector) publish(event QueryEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.producer.Publish(ctx, kafka.Event{
		Key:   event.RequestID,
		Value: event,
	})
	if err != nil {
		c.logger.Warn("failed to publish query event", "type", event.Type, "error", err)
	}
}

// Track enqueues an event for publishing. It never blocks: if the buffer is
// full the event is dropped and counted.
func (c *Collector) Track(event QueryEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case c.eventCh <- event:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.logger.Warn("analytics buffer full, dropping event", "type", event.Type)
	}
}

// Dropped returns the number of events dropped due to a full buffer.
func (c *Collector) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close stops accepting new events, drains the buffer (up to drainTimeout),
// and closes the underlying Kafka producer.
func (c *Collector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.eventCh)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		c.logger.Warn("timed out draining analytics buffer")
	}

	return c.producer.Close()
}
