// Package session implements the server's control plane: the single
// control loop, the per-client connection session with its resource
// registries, and the process-wide session directory.
package session

import (
	"sync"

	"go.uber.org/zap"
)

// Loop is the single logical control thread. Every mutation of session
// registries and desktop state runs as a task on the loop, so none of
// that code needs locking.
type Loop struct {
	tasks    chan func()
	deferred []func()
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
	logger   *zap.Logger
}

// NewLoop creates a stopped loop.
func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		tasks:  make(chan func(), 1024),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start runs the loop until Stop.
func (l *Loop) Start() {
	go l.run()
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case task := <-l.tasks:
			l.runTurn(task)
		case <-l.quit:
			// Drain tasks already queued so teardown work completes.
			for {
				select {
				case task := <-l.tasks:
					l.runTurn(task)
				default:
					return
				}
			}
		}
	}
}

// runTurn executes one task and then everything deferred during it.
// Deferred tasks may themselves defer; those run in the same idle
// point, after the current batch.
func (l *Loop) runTurn(task func()) {
	task()
	for len(l.deferred) > 0 {
		batch := l.deferred
		l.deferred = nil
		for _, deferred := range batch {
			deferred()
		}
	}
}

// Post schedules a task from any goroutine.
func (l *Loop) Post(task func()) {
	select {
	case l.tasks <- task:
	case <-l.quit:
	}
}

// PostDeferred schedules a task to run after the current turn. Must be
// called from the loop goroutine; this is the "deregister after current
// turn" primitive session teardown relies on.
func (l *Loop) PostDeferred(task func()) {
	l.deferred = append(l.deferred, task)
}

// Call posts a task and waits for it to complete. Used by surfaces
// outside the loop (HTTP handlers, tests) that need a consistent read.
func (l *Loop) Call(task func()) {
	doneCh := make(chan struct{})
	l.Post(func() {
		defer close(doneCh)
		task()
	})
	select {
	case <-doneCh:
	case <-l.done:
	}
}

// Stop shuts the loop down after draining queued tasks.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.quit) })
	<-l.done
}
