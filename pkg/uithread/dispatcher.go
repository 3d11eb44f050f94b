// Package uithread marshals calls onto the single goroutine that owns the
// prompt surface. The presentation layer is single-threaded-affine, so every
// call path that constructs, displays, or tears down a prompt goes through a
// Dispatcher.
package uithread

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrClosed is returned for calls made after Close.
var ErrClosed = errors.New("uithread: dispatcher closed")

// Dispatcher is a single-consumer task queue drained by the UI-owning
// goroutine. Invoke marshals a call and blocks until it completes; Post is
// fire-and-forget and returns once the call is enqueued.
type Dispatcher struct {
	tasks     chan func()
	closed    chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

// New creates a Dispatcher. Run must be called on the UI-owning goroutine
// before any Invoke call can complete.
func New(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		tasks:  make(chan func(), 16),
		closed: make(chan struct{}),
		log:    log,
	}
}

// Run drains the task queue on the calling goroutine until Close. Tasks
// already enqueued when Close is called are still executed before Run
// returns, so fire-and-forget teardown work is not lost.
func (d *Dispatcher) Run() {
	for {
		select {
		case fn := <-d.tasks:
			fn()
		case <-d.closed:
			for {
				select {
				case fn := <-d.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Invoke runs fn on the UI goroutine and blocks the caller until it
// completes. A panic inside fn is recovered and returned as an error; it
// never unwinds past the dispatch boundary. Must not be called from the UI
// goroutine itself — that would deadlock the queue.
func (d *Dispatcher) Invoke(fn func() error) error {
	errc := make(chan error, 1)
	task := func() {
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("ui task panic: %v", r)
				}
			}()
			err = fn()
		}()
		errc <- err
	}
	select {
	case d.tasks <- task:
	case <-d.closed:
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-d.closed:
		// Run drains remaining tasks on close, so the result may still
		// arrive; prefer it over a spurious ErrClosed.
		select {
		case err := <-errc:
			return err
		default:
			return ErrClosed
		}
	}
}

// Post enqueues fn on the UI goroutine without waiting for it to run.
// Panics are recovered and logged.
func (d *Dispatcher) Post(fn func()) error {
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("ui task panic", "panic", r)
			}
		}()
		fn()
	}
	select {
	case d.tasks <- task:
		return nil
	case <-d.closed:
		return ErrClosed
	}
}

// Close stops the dispatcher. Pending tasks are drained by Run before it
// returns. Close is idempotent.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.closed) })
}
