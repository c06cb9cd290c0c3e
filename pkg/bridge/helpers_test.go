package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/morezero/flagbridge/pkg/engine/enginetest"
	"github.com/morezero/flagbridge/pkg/hostcall"
	"github.com/morezero/flagbridge/pkg/wire"
)

// testBridge bundles a bridge with its fake engine and the captured
// outbound invocations.
type testBridge struct {
	b       *Bridge
	factory *enginetest.Factory
	disp    *hostcall.Dispatcher

	mu   sync.Mutex
	invs []hostcall.Invocation
}

func newTestBridge(t *testing.T) *testBridge {
	t.Helper()
	tb := &testBridge{factory: &enginetest.Factory{}}
	tb.disp = hostcall.NewDispatcher(hostcall.NewCallbackSender(func(inv hostcall.Invocation) error {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.invs = append(tb.invs, inv)
		return nil
	}))
	tb.b = New(tb.factory, tb.disp, nil)
	t.Cleanup(func() {
		tb.b.Close()
		tb.disp.Close()
	})
	return tb
}

// sent flushes the dispatcher and returns every captured invocation.
func (tb *testBridge) sent() []hostcall.Invocation {
	tb.disp.Flush()
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return append([]hostcall.Invocation(nil), tb.invs...)
}

// call runs op synchronously and returns its reply.
func call(t *testing.T, op func(*wire.Arguments, Reply), argMap map[string]any) *wire.Response {
	t.Helper()
	var resp *wire.Response
	op(wire.NewArguments(argMap), func(r *wire.Response) { resp = r })
	if resp == nil {
		t.Fatalf("bridge:helpers_test - operation did not reply")
	}
	return resp
}

// callAsync runs op and waits for a reply that may arrive from another
// goroutine.
func callAsync(t *testing.T, op func(*wire.Arguments, Reply), argMap map[string]any) *wire.Response {
	t.Helper()
	ch := make(chan *wire.Response, 1)
	op(wire.NewArguments(argMap), func(r *wire.Response) { ch <- r })
	select {
	case resp := <-ch:
		return resp
	case <-time.After(5 * time.Second):
		t.Fatalf("bridge:helpers_test - timed out waiting for reply")
		return nil
	}
}

// initClient initializes a client for sdkKey and returns it.
func (tb *testBridge) initClient(t *testing.T, sdkKey string) *enginetest.Client {
	t.Helper()
	resp := call(t, tb.b.Initialize, map[string]any{wire.KeySDKKey: sdkKey})
	if !resp.Success {
		t.Fatalf("bridge:helpers_test - initialize %s failed: %s", sdkKey, resp.Reason)
	}
	clients := tb.factory.Clients()
	for i := len(clients) - 1; i >= 0; i-- {
		if clients[i].ClientConfig().SDKKey == sdkKey {
			return clients[i]
		}
	}
	t.Fatalf("bridge:helpers_test - no client created for %s", sdkKey)
	return nil
}

// createContext creates a user context and returns its handle.
func (tb *testBridge) createContext(t *testing.T, sdkKey, userID string, attrs map[string]any) string {
	t.Helper()
	argMap := map[string]any{wire.KeySDKKey: sdkKey}
	if userID != "" {
		argMap[wire.KeyUserID] = userID
	}
	if attrs != nil {
		argMap[wire.KeyAttributes] = attrs
	}
	resp := call(t, tb.b.CreateUserContext, argMap)
	if !resp.Success {
		t.Fatalf("bridge:helpers_test - createUserContext failed: %s", resp.Reason)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("bridge:helpers_test - createUserContext result %T", resp.Result)
	}
	ucid, ok := result[wire.KeyUserContextID].(string)
	if !ok || ucid == "" {
		t.Fatalf("bridge:helpers_test - missing userContextId in %v", result)
	}
	return ucid
}

