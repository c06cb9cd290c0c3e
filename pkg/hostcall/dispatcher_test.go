package hostcall

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

const dispatcherTestPrefix = "hostcall:dispatcher_test"

// recorder captures delivered invocations and the goroutines delivering
// them.
type recorder struct {
	mu   sync.Mutex
	invs []Invocation
	err  error
}

func (r *recorder) Invoke(inv Invocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invs = append(r.invs, inv)
	return r.err
}

func (r *recorder) all() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Invocation(nil), r.invs...)
}

func TestDispatcher_DeliversInPostOrder(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec)
	defer d.Close()

	const n = 200
	for i := 0; i < n; i++ {
		d.Post(Invocation{Channel: "chan", Method: fmt.Sprintf("m%d", i)})
	}
	d.Flush()

	invs := rec.all()
	if len(invs) != n {
		t.Fatalf("%s - delivered %d invocations, want %d", dispatcherTestPrefix, len(invs), n)
	}
	for i, inv := range invs {
		if want := fmt.Sprintf("m%d", i); inv.Method != want {
			t.Fatalf("%s - invocation[%d].Method = %q, want %q", dispatcherTestPrefix, i, inv.Method, want)
		}
	}
}

func TestDispatcher_ConcurrentPostsSerialize(t *testing.T) {
	// The sender observes no interleaving: deliveries happen one at a
	// time on the dispatcher goroutine.
	var active, maxActive int
	var mu sync.Mutex
	sender := NewCallbackSender(func(inv Invocation) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	})
	d := NewDispatcher(sender)
	defer d.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				d.Post(Invocation{Method: "m"})
			}
		}()
	}
	wg.Wait()
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	if maxActive != 1 {
		t.Errorf("%s - max concurrent deliveries = %d, want 1", dispatcherTestPrefix, maxActive)
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec)

	for i := 0; i < 20; i++ {
		d.Post(Invocation{Method: "m"})
	}
	d.Close()

	if got := len(rec.all()); got != 20 {
		t.Errorf("%s - delivered %d invocations after close, want 20", dispatcherTestPrefix, got)
	}
}

func TestDispatcher_PostAfterCloseDropped(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec)
	d.Close()

	d.Post(Invocation{Method: "late"})
	if got := len(rec.all()); got != 0 {
		t.Errorf("%s - delivered %d invocations, want 0", dispatcherTestPrefix, got)
	}
}

func TestDispatcher_CloseIdempotent(t *testing.T) {
	d := NewDispatcher(&NoOpSender{})
	d.Close()
	d.Close()
}

func TestDispatcher_SenderErrorDoesNotStall(t *testing.T) {
	rec := &recorder{err: errors.New("publish failed")}
	d := NewDispatcher(rec)
	defer d.Close()

	d.Post(Invocation{Method: "a"})
	d.Post(Invocation{Method: "b"})
	d.Flush()

	if got := len(rec.all()); got != 2 {
		t.Errorf("%s - delivered %d invocations, want 2", dispatcherTestPrefix, got)
	}
}
