package idle

import "sync"

// Scheduler defers work off the caller's call stack. Tasks run later, in
// submission order, on a single background worker; there is no timing
// guarantee beyond "not now".
type Scheduler struct {
	mu      sync.Mutex
	tasks   chan func()
	started bool
	closed  bool
}

// New creates an idle scheduler. The worker goroutine starts on first use.
func New() *Scheduler {
	return &Scheduler{
		tasks: make(chan func(), 64),
	}
}

// Run enqueues fn for deferred execution. If the queue is saturated the task
// runs on its own goroutine instead, so Run never blocks the caller.
func (s *Scheduler) Run(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		go fn()
		return
	}
	if !s.started {
		s.started = true
		go s.loop()
	}
	s.mu.Unlock()

	select {
	case s.tasks <- fn:
	default:
		go fn()
	}
}

// Close stops the worker after draining queued tasks. Tasks submitted after
// Close run on their own goroutines.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.tasks)
}

func (s *Scheduler) loop() {
	for fn := range s.tasks {
		fn()
	}
}
