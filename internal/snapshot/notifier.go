package snapshot

import (
	"sync"
	"time"
)

// ReplacedEvent fires after a snapshot replace. It carries counts only; the
// snapshot itself is fetched from the store so late subscribers never see a
// stale payload.
type ReplacedEvent struct {
	Timestamp  time.Time
	FetchedAt  time.Time
	RoleCount  int
	GroupCount int
}

// Handler handles snapshot replace events.
type Handler func(event ReplacedEvent)

// Notifier fans snapshot replaces out to subscribers. Delivery is
// asynchronous; a full queue drops the event rather than blocking the
// replacing goroutine.
type Notifier struct {
	mu         sync.RWMutex
	handlers   []Handler
	eventQueue chan ReplacedEvent
	done       chan struct{}
	wg         sync.WaitGroup
	started    bool
}

// NewNotifier creates a notifier. Call Start to begin delivery.
func NewNotifier() *Notifier {
	return &Notifier{
		eventQueue: make(chan ReplacedEvent, 64),
		done:       make(chan struct{}),
	}
}

// Subscribe registers a handler for replace events.
func (n *Notifier) Subscribe(handler Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, handler)
}

// Publish queues an event for delivery, dropping it when the queue is full.
func (n *Notifier) Publish(event ReplacedEvent) {
	select {
	case n.eventQueue <- event:
	default:
	}
}

// PublishSync delivers an event to all handlers on the calling goroutine.
func (n *Notifier) PublishSync(event ReplacedEvent) {
	n.mu.RLock()
	handlers := make([]Handler, len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Start begins asynchronous delivery.
func (n *Notifier) Start() {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()

	n.wg.Add(1)
	go n.process()
}

// Stop drains pending events and stops delivery.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return
	}
	n.started = false
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) process() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			for {
				select {
				case event := <-n.eventQueue:
					n.PublishSync(event)
				default:
					return
				}
			}
		case event := <-n.eventQueue:
			n.PublishSync(event)
		}
	}
}
