// ABOUTME: De-duplicating toast center for transient error notifications
// ABOUTME: Suppresses repeats of the same message inside a rolling window

package toast

import (
	"container/list"
	"sync"
	"time"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/faults"
)

// DefaultWindow is how long a message suppresses identical repeats.
const DefaultWindow = 5 * time.Second

// DefaultMaxTracked bounds how many distinct messages are remembered.
const DefaultMaxTracked = 256

// Notifier delivers a toast that survived de-duplication.
type Notifier func(message string)

// seenEntry stores the timestamp and list element for a tracked message.
type seenEntry struct {
	timestamp time.Time
	element   *list.Element
}

// Center fans toasts out to a Notifier, dropping messages identical to one
// shown inside the window. Burst failures, a page of panels all hitting the
// same dead endpoint, collapse into a single notification. Tracking is
// size-limited with oldest-first eviction via a linked list, O(1) per toast.
type Center struct {
	mu      sync.Mutex
	seen    map[string]*seenEntry
	order   *list.List // tracked messages in insertion order, oldest at front
	window  time.Duration
	maxSize int
	notify  Notifier
	done    chan struct{}
	closed  bool
}

var _ faults.ToastSink = (*Center)(nil)

// Option configures a Center.
type Option func(*Center)

// WithWindow sets the suppression window.
func WithWindow(d time.Duration) Option {
	return func(c *Center) { c.window = d }
}

// WithMaxTracked sets how many distinct messages are remembered.
func WithMaxTracked(n int) Option {
	return func(c *Center) { c.maxSize = n }
}

// New creates a Center delivering to notify. A background goroutine
// periodically drops stale entries.
func New(notify Notifier, opts ...Option) *Center {
	c := &Center{
		seen:    make(map[string]*seenEntry),
		order:   list.New(),
		window:  DefaultWindow,
		maxSize: DefaultMaxTracked,
		notify:  notify,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.cleanup()
	return c
}

// Toast shows message unless an identical one was shown inside the window.
// Implements the fault controller's sink.
func (c *Center) Toast(message string) {
	if message == "" {
		return
	}

	c.mu.Lock()
	entry, ok := c.seen[message]
	if ok && time.Since(entry.timestamp) < c.window {
		c.mu.Unlock()
		return
	}
	c.markLocked(message)
	c.mu.Unlock()

	if c.notify != nil {
		c.notify(message)
	}
}

// Suppressed reports whether message would currently be dropped.
func (c *Center) Suppressed(message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.seen[message]
	return ok && time.Since(entry.timestamp) < c.window
}

// markLocked records message as shown. Must be called with mu held.
func (c *Center) markLocked(message string) {
	now := time.Now()

	if entry, exists := c.seen[message]; exists {
		entry.timestamp = now
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(message)
	c.seen[message] = &seenEntry{timestamp: now, element: elem}
}

// evictOldest removes the oldest tracked message. Must be called with mu held.
func (c *Center) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	message, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, message)
}

// cleanup periodically removes entries older than the window.
func (c *Center) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup removes all stale entries.
func (c *Center) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for message, entry := range c.seen {
		if now.Sub(entry.timestamp) > c.window {
			c.order.Remove(entry.element)
			delete(c.seen, message)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
