package queue

import "sync"

// Consumer executes commands in the order they are handed over. There
// is exactly one consumer per queue; it is the only goroutine that
// talks to the device.
type Consumer interface {
	Execute(cmd Command) error
}

// Queue is the FIFO command stream. Any goroutine may push; pushes of
// a batch are atomic with respect to other pushers, so the commands of
// one draw are never interleaved with another's.
type Queue struct {
	mu     sync.Mutex
	cmds   []Command
	closed bool

	// wake has capacity 1; a pending token means "commands may be
	// available" and coalesces any number of pushes.
	wake chan struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push appends cmds to the stream as one atomic batch and wakes the
// consumer. Pushing to a closed queue drops the batch.
func (q *Queue) Push(cmds ...Command) {
	if len(cmds) == 0 {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.cmds = append(q.cmds, cmds...)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len reports the number of pending commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

// Drain removes and returns all pending commands in submission order.
func (q *Queue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	cmds := q.cmds
	q.cmds = nil
	return cmds
}

// DrainTo drains the queue and feeds each command to c in order. It
// stops at the first error and returns it along with the number of
// commands executed; commands after the failing one are discarded.
func (q *Queue) DrainTo(c Consumer) (int, error) {
	cmds := q.Drain()
	for i, cmd := range cmds {
		if err := c.Execute(cmd); err != nil {
			return i, err
		}
	}
	return len(cmds), nil
}

// Wait blocks until commands may be available or stop is closed. It
// returns false once the queue is closed and empty, which is the
// consumer's signal to exit.
func (q *Queue) Wait(stop <-chan struct{}) bool {
	for {
		q.mu.Lock()
		n, closed := len(q.cmds), q.closed
		q.mu.Unlock()
		if n > 0 {
			return true
		}
		if closed {
			return false
		}
		select {
		case <-q.wake:
		case <-stop:
			return q.Len() > 0
		}
	}
}

// Close marks the queue closed. Pending commands remain drainable;
// further pushes are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
