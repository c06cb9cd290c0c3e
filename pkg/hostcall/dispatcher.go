package hostcall

import (
	"fmt"
	"log/slog"
	"sync"
)

const dispatcherLogPrefix = "hostcall:dispatcher"

const defaultQueueSize = 1024

// Dispatcher serializes outbound invocations on a single goroutine,
// preserving post order. It is the Go stand-in for the host UI thread:
// every boundary crossing back into the host goes through Post.
type Dispatcher struct {
	sender Sender
	queue  chan queued

	mu     sync.Mutex
	closed bool

	quit chan struct{}
	idle chan struct{}
}

type queued struct {
	inv   Invocation
	flush chan struct{}
}

// NewDispatcher starts a dispatcher delivering through sender.
func NewDispatcher(sender Sender) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		queue:  make(chan queued, defaultQueueSize),
		quit:   make(chan struct{}),
		idle:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Post enqueues an invocation. Invocations posted after Close, or while
// the queue is saturated, are dropped; the host tolerates missing late
// deliveries but never reordering.
func (d *Dispatcher) Post(inv Invocation) {
	d.enqueue(queued{inv: inv})
}

// Flush blocks until every invocation posted before it has been handed to
// the sender.
func (d *Dispatcher) Flush() {
	done := make(chan struct{})
	if !d.enqueue(queued{flush: done}) {
		return
	}
	<-done
}

// Close stops the dispatcher after draining queued invocations.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.quit)
	<-d.idle
}

func (d *Dispatcher) enqueue(q queued) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- q:
		return true
	default:
		slog.Warn(fmt.Sprintf("%s - queue full, dropping %s invocation", dispatcherLogPrefix, q.inv.Method))
		return false
	}
}

func (d *Dispatcher) run() {
	for {
		select {
		case q := <-d.queue:
			d.deliver(q)
		case <-d.quit:
			for {
				select {
				case q := <-d.queue:
					d.deliver(q)
				default:
					close(d.idle)
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(q queued) {
	if q.flush != nil {
		close(q.flush)
		return
	}
	if err := d.sender.Invoke(q.inv); err != nil {
		slog.Error(fmt.Sprintf("%s - %s delivery failed: %v", dispatcherLogPrefix, q.inv.Method, err))
	}
}
