package task

import (
	"sync"
)

// Sequence runs functions one at a time, in submission order, on its own
// goroutine. Go never blocks.
type Sequence struct {
	name string

	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	wg     sync.WaitGroup
}

// NewSequence starts a sequence. The name is used only for diagnostics.
func NewSequence(name string) *Sequence {
	s := &Sequence{
		name: name,
		wake: make(chan struct{}, 1),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *Sequence) String() string { return s.name }

// Go queues fn. Functions queued after Close still run, each on its own
// goroutine, so that work carrying cleanup obligations is never dropped.
func (s *Sequence) Go(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		go fn()
		return
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sequence) loop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			<-s.wake
			continue
		}
		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()
		fn()
	}
}

// Close stops accepting work. Work already queued still runs. Close does
// not wait; use Wait for that.
func (s *Sequence) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until the sequence is closed and its queue has drained.
func (s *Sequence) Wait() {
	s.wg.Wait()
}
