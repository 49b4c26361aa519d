// Package stream implements the real-time transaction pipeline: a single
// event loop that owns the connection state machine, the tick scheduler,
// the history buffer and the alert dispatcher.
package stream

import (
	"bytes"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoopClosed is returned when work is submitted to a closed loop
var ErrLoopClosed = errors.New("event loop closed")

// Loop runs submitted functions one at a time on a dedicated goroutine.
// Everything scheduled through a Loop observes a single-threaded world.
type Loop struct {
	queue     chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	goid      atomic.Uint64

	// owned by the loop goroutine
	tasks map[*Task]struct{}
}

// Task is a deferred function bound to a Loop. It runs at most once and
// never runs after Cancel.
type Task struct {
	loop     *Loop
	timer    *time.Timer
	fn       func()
	finished bool
}

// NewLoop starts a new event loop
func NewLoop() *Loop {
	l := &Loop{
		queue:   make(chan func(), 64),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		tasks:   make(map[*Task]struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	l.goid.Store(goroutineID())
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-l.done:
			for t := range l.tasks {
				t.Cancel()
			}
			return
		}
	}
}

// Post queues fn for execution on the loop. It reports false when the loop
// is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. Called from the loop
// goroutine itself (e.g. by a handler) it runs fn inline.
func (l *Loop) Do(fn func()) error {
	if l.onLoop() {
		fn()
		return nil
	}

	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.stopped:
		// the loop may have drained fn right before stopping
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// After schedules fn to run on the loop once d has elapsed. It must be
// called from the loop goroutine.
func (l *Loop) After(d time.Duration, fn func()) *Task {
	t := &Task{loop: l, fn: fn}
	l.tasks[t] = struct{}{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(t.fire)
	})
	return t
}

// Pending returns the number of live tasks. It must be called from the loop
// goroutine.
func (l *Loop) Pending() int {
	return len(l.tasks)
}

// Close stops the loop, canceling every live task. Queued work that has not
// started is dropped. Close is idempotent and waits for the loop to stop,
// unless it is called from the loop itself.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	if l.onLoop() {
		return
	}
	<-l.stopped
}

func (t *Task) fire() {
	if t.finished {
		return
	}
	t.finished = true
	delete(t.loop.tasks, t)
	t.fn()
}

// Cancel stops the task. It is idempotent and must be called from the loop
// goroutine.
func (t *Task) Cancel() {
	if t == nil || t.finished {
		return
	}
	t.finished = true
	t.timer.Stop()
	delete(t.loop.tasks, t)
}

func (l *Loop) onLoop() bool {
	id := l.goid.Load()
	return id != 0 && id == goroutineID()
}

// goroutineID parses the current goroutine id from its stack header,
// "goroutine 18 [running]:"
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(string(fields[1]), 10, 64)
	return id
}
