package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu       sync.Mutex
	now      time.Time
	sleepers []*sleeper
}

type sleeper struct {
	until time.Time
	ch    chan struct{}
}

// NewFake returns a fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep blocks until Advance moves the clock past now+d or ctx is done.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	f.mu.Lock()
	s := &sleeper{until: f.now.Add(d), ch: make(chan struct{})}
	f.sleepers = append(f.sleepers, s)
	f.mu.Unlock()

	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		f.remove(s)
		return ctx.Err()
	}
}

// Advance moves the clock forward and wakes every sleeper whose deadline passed.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
	pending := f.sleepers[:0]
	for _, s := range f.sleepers {
		if s.until.After(f.now) {
			pending = append(pending, s)
			continue
		}
		close(s.ch)
	}
	f.sleepers = pending
}

// Set moves the clock to t without waking sleepers scheduled after t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	d := t.Sub(f.now)
	f.mu.Unlock()
	f.Advance(d)
}

// Sleepers reports how many goroutines are blocked in Sleep.
func (f *Fake) Sleepers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sleepers)
}

// BlockUntil waits until at least n goroutines are blocked in Sleep or the
// timeout elapses. It reports whether the condition was reached.
func (f *Fake) BlockUntil(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f.Sleepers() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return f.Sleepers() >= n
}

func (f *Fake) remove(target *sleeper) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sleepers {
		if s == target {
			f.sleepers = append(f.sleepers[:i], f.sleepers[i+1:]...)
			return
		}
	}
}
