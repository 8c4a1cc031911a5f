package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollectorBatchesBySize(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, Options{BatchSize: 2, FlushInterval: time.Hour})
	c.Start(context.Background())

	c.Track(SearchEvent{Type: EventSearch, Query: "cat"})
	c.Track(SearchEvent{Type: EventSearch, Query: "dog"})
	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 5*time.Millisecond)

	c.Close()
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "cat", pub.batches[0][0].Key)
	ev := pub.batches[0][0].Value.(SearchEvent)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, Options{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	c.Start(context.Background())
	defer c.Close()

	c.Track(SearchEvent{Type: EventZeroResult, Query: "xyz"})
	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, Options{BatchSize: 100, FlushInterval: time.Hour})
	c.Start(context.Background())
	for i := 0; i < 5; i++ {
		c.Track(SearchEvent{Type: EventSearch, Query: "q"})
	}
	c.Close()
	assert.Equal(t, 5, pub.count())
	published, dropped := c.Stats()
	assert.Equal(t, int64(5), published)
	assert.Zero(t, dropped)
}

func TestTrackDropsWhenBufferFull(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, Options{BufferSize: 1})
	c.Track(SearchEvent{Query: "a"})
	c.Track(SearchEvent{Query: "b"})
	_, dropped := c.Stats()
	assert.Equal(t, int64(1), dropped)
}

func TestPublishFailureCountsDropped(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewCollector(pub, Options{BatchSize: 100, FlushInterval: time.Hour})
	c.Start(context.Background())
	c.Track(SearchEvent{Query: "a"})
	c.Close()
	published, dropped := c.Stats()
	assert.Zero(t, published)
	assert.Equal(t, int64(1), dropped)
}
