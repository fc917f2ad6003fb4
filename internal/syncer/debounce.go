package syncer

import (
	"sync"
	"time"
)

// debounceTask coalesces bursts of scheduled work into a single run after a
// quiet period. Each Schedule replaces the previous pending function, so only
// the newest one ever runs.
type debounceTask struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

func newDebounceTask(delay time.Duration) *debounceTask {
	return &debounceTask{delay: delay}
}

// Schedule arms (or re-arms) the task with fn.
func (t *debounceTask) Schedule(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.pending = fn
	t.timer = time.AfterFunc(t.delay, t.fire)
}

func (t *debounceTask) fire() {
	t.mu.Lock()
	fn := t.pending
	t.pending = nil
	t.timer = nil
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Flush runs any pending function immediately, cancelling its timer.
func (t *debounceTask) Flush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	fn := t.pending
	t.pending = nil
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop cancels any pending run without executing it.
func (t *debounceTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = nil
}
