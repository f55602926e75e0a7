// Package sync provides the locking wrapper used to serialize calls into a
// document engine.
//
// Lock ordering: the handle lock is innermost. Code holding it must never
// call back into the viewer or post messages that wait on the interactive
// sequence.
package sync

import "errors"

// ErrClosed is returned by WithLock once the handle has been closed.
var ErrClosed = errors.New("handle closed")

// Locker is a basic interface for types that can be locked/unlocked.
type Locker interface {
	Lock()
	Unlock()
}

// HandleLocker guards a resource that must be used by one caller at a time
// and that becomes unusable after Close.
type HandleLocker struct {
	locker Locker
	closed bool
}

// NewHandleLocker creates a new HandleLocker wrapping the given Locker.
func NewHandleLocker(l Locker) *HandleLocker {
	return &HandleLocker{locker: l}
}

// WithLock executes fn while holding the lock. The lock is released even
// if fn panics. After Close, fn is not called and ErrClosed is returned.
func (hl *HandleLocker) WithLock(fn func() error) error {
	hl.locker.Lock()
	defer hl.locker.Unlock()
	if hl.closed {
		return ErrClosed
	}
	return fn()
}

// Close runs fn under the lock and marks the handle closed. A second Close
// returns ErrClosed without calling fn.
func (hl *HandleLocker) Close(fn func() error) error {
	return hl.WithLock(func() error {
		hl.closed = true
		return fn()
	})
}
