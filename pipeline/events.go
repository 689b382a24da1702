package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/Tutortoise/sentinel-detection-service/models"
)

// Event is a message emitted by the queue.
type Event interface {
	isEvent()
}

// DetectionEvent carries the result of one processed frame.
type DetectionEvent struct {
	Result models.DetectionResult
}

// StatsEvent carries throughput statistics for the last interval.
type StatsEvent struct {
	Stats models.Stats
}

func (DetectionEvent) isEvent() {}
func (StatsEvent) isEvent()     {}

const DefaultSubscriberBuffer = 16

// Broadcaster fans messages out to subscriber channels. A subscriber whose
// buffer is full misses the message rather than stalling the publisher.
type Broadcaster[T any] struct {
	mu          sync.Mutex
	subscribers map[int]chan T
	nextID      int
	dropped     atomic.Int64
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subscribers: make(map[int]chan T)}
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel.
func (b *Broadcaster[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan T, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster[T]) Publish(msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func (b *Broadcaster[T]) Dropped() int64 {
	return b.dropped.Load()
}
