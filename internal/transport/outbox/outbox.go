// Package outbox implements the per-connection outbound queue. Producers
// never block: a full queue marks the connection as too slow and stops it.
package outbox

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOverflow is returned by Run when a send found the queue full.
var ErrOverflow = errors.New("outbox overflow")

// WriteFunc writes one line to the underlying connection. The context carries
// the per-write deadline.
type WriteFunc func(ctx context.Context, line string) error

// Outbox is a bounded queue of lines drained by a single writer.
type Outbox struct {
	queue chan string
	done  chan struct{}

	once       sync.Once
	mu         sync.Mutex
	overflowed bool
}

// New returns an outbox holding at most size pending lines.
func New(size int) *Outbox {
	if size <= 0 {
		size = 1
	}
	return &Outbox{
		queue: make(chan string, size),
		done:  make(chan struct{}),
	}
}

// Send queues line without blocking. It returns false when the outbox is
// stopped or full; a full queue stops the outbox.
func (o *Outbox) Send(line string) bool {
	select {
	case <-o.done:
		return false
	default:
	}

	select {
	case o.queue <- line:
		return true
	case <-o.done:
		return false
	default:
		o.mu.Lock()
		o.overflowed = true
		o.mu.Unlock()
		o.stop()
		return false
	}
}

// Close stops accepting lines. Lines already queued are still written by Run.
func (o *Outbox) Close() {
	o.stop()
}

// Done is closed once the outbox stops accepting lines.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

// Len returns the number of queued lines.
func (o *Outbox) Len() int {
	return len(o.queue)
}

func (o *Outbox) stop() {
	o.once.Do(func() { close(o.done) })
}

func (o *Outbox) isOverflowed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.overflowed
}

// Run drains the queue through write until ctx is done, a write fails, or the
// outbox is stopped. Each write is bounded by timeout when it is positive.
// After Close the pending lines are flushed and Run returns nil; after an
// overflow it returns ErrOverflow without flushing.
func (o *Outbox) Run(ctx context.Context, timeout time.Duration, write WriteFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-o.queue:
			if err := o.writeOne(ctx, timeout, write, line); err != nil {
				return err
			}
		case <-o.done:
			if o.isOverflowed() {
				return ErrOverflow
			}
			return o.flush(ctx, timeout, write)
		}
	}
}

func (o *Outbox) flush(ctx context.Context, timeout time.Duration, write WriteFunc) error {
	for {
		select {
		case line := <-o.queue:
			if err := o.writeOne(ctx, timeout, write, line); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (o *Outbox) writeOne(ctx context.Context, timeout time.Duration, write WriteFunc, line string) error {
	if timeout <= 0 {
		return write(ctx, line)
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return write(wctx, line)
}
