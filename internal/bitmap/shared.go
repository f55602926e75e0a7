package bitmap

import (
	"context"
	"image"
	"sync"
)

// Shared is the single high-resolution buffer. It has one holder at a
// time: Acquire waits until the previous holder calls Release. The buffer
// is reused across holders and reallocated only when its size changes.
type Shared struct {
	sem chan struct{}

	mu   sync.Mutex
	w, h int
	bm   *Bitmap
}

// NewShared makes a shared buffer with no size.
func NewShared() *Shared {
	return &Shared{sem: make(chan struct{}, 1)}
}

// Resize sets the buffer size used from the next Acquire on.
func (s *Shared) Resize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w, s.h = w, h
}

// Acquire waits for the lease and returns the buffer. It fails only if
// ctx is done first or the buffer has no size, in which case the lease is
// not held.
func (s *Shared) Acquire(ctx context.Context) (*Bitmap, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	b, err := s.buffer()
	if err != nil {
		<-s.sem
		return nil, err
	}
	return b, nil
}

// Held returns the buffer to a caller that already holds the lease, sized
// to the current size.
func (s *Shared) Held() (*Bitmap, error) {
	return s.buffer()
}

func (s *Shared) buffer() (*Bitmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w <= 0 || s.h <= 0 {
		return nil, ErrNoSize
	}
	if s.bm == nil || s.bm.Bounds().Size() != image.Pt(s.w, s.h) {
		s.bm = newBitmap(s.w, s.h)
	}
	s.bm.Valid = image.Rectangle{}
	return s.bm, nil
}

// Release gives up the lease.
func (s *Shared) Release() {
	select {
	case <-s.sem:
	default:
		panic("bitmap: Release of unheld shared buffer")
	}
}

// IsHeld reports whether some holder has the lease.
func (s *Shared) IsHeld() bool {
	return len(s.sem) == 1
}
