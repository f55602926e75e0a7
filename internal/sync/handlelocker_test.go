package sync

import (
	"errors"
	"sync"
	"testing"
)

type mockLockable struct {
	mu        sync.Mutex
	lockCnt   int
	unlockCnt int
}

func (m *mockLockable) Lock() {
	m.mu.Lock()
	m.lockCnt++
}

func (m *mockLockable) Unlock() {
	m.unlockCnt++
	m.mu.Unlock()
}

func TestHandleLockerWithLock(t *testing.T) {
	m := &mockLockable{}
	hl := NewHandleLocker(m)

	called := false
	err := hl.WithLock(func() error {
		called = true
		if m.lockCnt != 1 || m.unlockCnt != 0 {
			t.Errorf("inside WithLock: lock/unlock counts %d/%d; want 1/0", m.lockCnt, m.unlockCnt)
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("WithLock: err %v called %v", err, called)
	}
	if m.lockCnt != 1 || m.unlockCnt != 1 {
		t.Errorf("lock/unlock counts %d/%d; want 1/1", m.lockCnt, m.unlockCnt)
	}
}

func TestHandleLockerPanicUnlocks(t *testing.T) {
	m := &mockLockable{}
	hl := NewHandleLocker(m)

	func() {
		defer func() { recover() }()
		hl.WithLock(func() error { panic("boom") })
	}()
	if m.unlockCnt != 1 {
		t.Errorf("unlock count %d after panic; want 1", m.unlockCnt)
	}
}

func TestHandleLockerClose(t *testing.T) {
	hl := NewHandleLocker(&mockLockable{})

	closes := 0
	if err := hl.Close(func() error { closes++; return nil }); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := hl.Close(func() error { closes++; return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close returned %v; want ErrClosed", err)
	}
	if closes != 1 {
		t.Errorf("close fn ran %d times; want 1", closes)
	}
	if err := hl.WithLock(func() error { t.Error("fn called after Close"); return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("WithLock after Close returned %v; want ErrClosed", err)
	}
}
