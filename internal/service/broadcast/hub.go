package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
)

const (
	DefaultReplaySize = 50
	DefaultDepth      = 256
)

type Config struct {
	ReplaySize      int `mapstructure:"replay_size" json:"replay_size"`
	SubscriberDepth int `mapstructure:"subscriber_depth" json:"subscriber_depth"`
}

// Hub fans messages out to live subscribers. Publish never blocks: a
// subscriber whose queue is full loses its oldest buffered message.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	replay []T // ring, oldest at head once full
	head   int
	size   int
	depth  int
}

func NewHub[T any](cfg Config) *Hub[T] {
	if cfg.ReplaySize <= 0 {
		cfg.ReplaySize = DefaultReplaySize
	}
	if cfg.SubscriberDepth <= 0 {
		cfg.SubscriberDepth = DefaultDepth
	}
	return &Hub[T]{
		subs:   make(map[*Subscription[T]]struct{}),
		replay: make([]T, cfg.ReplaySize),
		depth:  cfg.SubscriberDepth,
	}
}

// Subscription is a live endpoint. Messages arrive on C in publish order.
type Subscription[T any] struct {
	hub     *Hub[T]
	ch      chan T
	once    sync.Once
	dropped atomic.Int64
}

func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped counts messages discarded because this subscriber fell behind.
func (s *Subscription[T]) Dropped() int64 {
	return s.dropped.Load()
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Subscribe registers a subscriber whose queue starts with the replay buffer.
// Registration and replay happen under the hub lock so no alert published
// concurrently is lost or duplicated between replay and live delivery.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	h.mu.Lock()
	defer h.mu.Unlock()

	replay := h.snapshotLocked()
	capacity := h.depth
	if len(replay) > capacity {
		capacity = len(replay)
	}
	sub := &Subscription[T]{
		hub: h,
		ch:  make(chan T, capacity),
	}
	for _, a := range replay {
		sub.ch <- a
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Publish records a in the replay buffer and delivers it to every subscriber.
func (h *Hub[T]) Publish(a T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.appendLocked(a)
	for sub := range h.subs {
		deliver(sub, a)
	}
}

// Notify lets an alert hub act as a monitor notifier.
func (h *Hub[T]) Notify(_ context.Context, a T) error {
	h.Publish(a)
	return nil
}

// Seed preloads the replay buffer, oldest first, without notifying anyone.
func (h *Hub[T]) Seed(alerts []T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range alerts {
		h.appendLocked(a)
	}
}

// Replay returns the buffered messages in publish order.
func (h *Hub[T]) Replay() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub[T]) appendLocked(a T) {
	capacity := len(h.replay)
	idx := (h.head + h.size) % capacity
	h.replay[idx] = a
	if h.size < capacity {
		h.size++
	} else {
		h.head = (h.head + 1) % capacity
	}
}

func (h *Hub[T]) snapshotLocked() []T {
	out := make([]T, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.replay[(h.head+i)%len(h.replay)]
	}
	return out
}

// deliver pushes a onto the subscriber queue, evicting the oldest entry when
// the queue is full. Only the hub sends on ch and it holds the lock, so the
// retry loop terminates once a slot is freed.
func deliver[T any](sub *Subscription[T], a T) {
	for {
		select {
		case sub.ch <- a:
			return
		default:
		}
		select {
		case <-sub.ch:
			sub.dropped.Add(1)
		default:
		}
	}
}
