package viewer

import (
	"sync"
	"time"
)

// A message carries a background result, or a deferred step, to the
// interactive goroutine. Each message checks its own generation tag when
// applied, so stale results are dropped without the sender having to know.
type message interface {
	apply(c *Controller)
}

// mailbox is an unbounded queue with a single consumer. Posting never
// blocks, so background goroutines can always deliver and run their
// cleanup.
type mailbox struct {
	mu    sync.Mutex
	q     []message
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) post(msg message) {
	m.mu.Lock()
	m.q = append(m.q, msg)
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() []message {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.q
	m.q = nil
	return q
}

// stepper coalesces requests for an animation step into at most one
// pending step message.
type stepper struct {
	post     func(message)
	interval time.Duration
	pending  bool
}

func (s *stepper) prod() {
	if s.pending {
		return
	}
	s.pending = true
	if s.interval <= 0 {
		s.post(stepMsg{})
		return
	}
	time.AfterFunc(s.interval, func() { s.post(stepMsg{}) })
}

type stepMsg struct{}

func (stepMsg) apply(c *Controller) {
	c.stepper.pending = false
	c.step()
}

// funcMsg runs an arbitrary function on the interactive goroutine.
type funcMsg func(c *Controller)

func (f funcMsg) apply(c *Controller) { f(c) }
