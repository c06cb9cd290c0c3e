package dispatcher

import (
	"testing"
	"time"

	"github.com/morezero/flagbridge/pkg/bridge"
	"github.com/morezero/flagbridge/pkg/engine"
	"github.com/morezero/flagbridge/pkg/engine/enginetest"
	"github.com/morezero/flagbridge/pkg/hostcall"
	"github.com/morezero/flagbridge/pkg/wire"
)

const dispatcherTestPrefix = "dispatcher:dispatcher_test"

func newTestDispatcher(t *testing.T) (*Dispatcher, *enginetest.Factory) {
	t.Helper()
	factory := &enginetest.Factory{}
	hd := hostcall.NewDispatcher(&hostcall.NoOpSender{})
	b := bridge.New(factory, hd, nil)
	t.Cleanup(func() {
		b.Close()
		hd.Close()
	})
	return NewDispatcher(b), factory
}

func dispatch(t *testing.T, d *Dispatcher, method string, args map[string]any) *wire.Response {
	t.Helper()
	ch := make(chan *wire.Response, 1)
	d.Dispatch(method, args, func(r *wire.Response) { ch <- r })
	select {
	case resp := <-ch:
		return resp
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - %s did not reply", dispatcherTestPrefix, method)
		return nil
	}
}

func TestDispatch_UnknownMethod(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := dispatch(t, d, "teleport", map[string]any{})
	if resp.Success || resp.Reason != wire.ReasonMethodNotImplemented {
		t.Errorf("%s - resp = %+v, want notImplemented", dispatcherTestPrefix, resp)
	}
}

func TestDispatch_EveryMethodReplies(t *testing.T) {
	// Every routed method resolves its reply exactly once, even with
	// empty arguments.
	d, _ := newTestDispatcher(t)

	methods := []string{
		wire.MethodInitialize,
		wire.MethodClose,
		wire.MethodActivate,
		wire.MethodGetVariation,
		wire.MethodGetForcedVariation,
		wire.MethodSetForcedVariation,
		wire.MethodCreateUserContext,
		wire.MethodGetUserID,
		wire.MethodGetAttributes,
		wire.MethodSetAttributes,
		wire.MethodTrackEvent,
		wire.MethodDecide,
		wire.MethodDecideAsync,
		wire.MethodSetForcedDecision,
		wire.MethodGetForcedDecision,
		wire.MethodRemoveForcedDecision,
		wire.MethodRemoveAllForcedDecisions,
		wire.MethodGetOptimizelyConfig,
		wire.MethodAddNotificationListener,
		wire.MethodRemoveNotificationListener,
		wire.MethodClearAllNotificationListeners,
		wire.MethodClearNotificationListeners,
		wire.MethodGetQualifiedSegments,
		wire.MethodSetQualifiedSegments,
		wire.MethodIsQualifiedFor,
		wire.MethodGetVuid,
		wire.MethodSendOdpEvent,
		wire.MethodFetchQualifiedSegments,
	}
	for _, method := range methods {
		resp := dispatch(t, d, method, map[string]any{})
		if resp == nil {
			t.Fatalf("%s - %s returned nil response", dispatcherTestPrefix, method)
		}
		// With no sdkKey every operation fails, but never with
		// notImplemented: the route exists.
		if resp.Reason == wire.ReasonMethodNotImplemented {
			t.Errorf("%s - %s is not routed", dispatcherTestPrefix, method)
		}
	}
}

func TestDispatch_InitializeThenDecide(t *testing.T) {
	d, factory := newTestDispatcher(t)

	resp := dispatch(t, d, wire.MethodInitialize, map[string]any{wire.KeySDKKey: "sdk-1"})
	if !resp.Success {
		t.Fatalf("%s - initialize failed: %s", dispatcherTestPrefix, resp.Reason)
	}

	client := factory.Clients()[0]
	client.Decisions["flag"] = engine.Decision{FlagKey: "flag", VariationKey: "on", Enabled: true}

	resp = dispatch(t, d, wire.MethodCreateUserContext, map[string]any{
		wire.KeySDKKey: "sdk-1",
		wire.KeyUserID: "u1",
	})
	if !resp.Success {
		t.Fatalf("%s - createUserContext failed: %s", dispatcherTestPrefix, resp.Reason)
	}
	ucid := resp.Result.(map[string]any)[wire.KeyUserContextID].(string)

	resp = dispatch(t, d, wire.MethodDecide, map[string]any{
		wire.KeySDKKey:        "sdk-1",
		wire.KeyUserContextID: ucid,
		wire.KeyDecideKeys:    []any{"flag"},
	})
	if !resp.Success {
		t.Fatalf("%s - decide failed: %s", dispatcherTestPrefix, resp.Reason)
	}
	record := resp.Result.(map[string]any)["flag"].(map[string]any)
	if record[wire.KeyVariationKey] != "on" {
		t.Errorf("%s - decide record = %v", dispatcherTestPrefix, record)
	}
}

func TestDispatch_DecideAsyncSharesDecideRoute(t *testing.T) {
	d, factory := newTestDispatcher(t)
	dispatch(t, d, wire.MethodInitialize, map[string]any{wire.KeySDKKey: "sdk-1"})
	factory.Clients()[0].Decisions["flag"] = engine.Decision{FlagKey: "flag", VariationKey: "on"}

	resp := dispatch(t, d, wire.MethodCreateUserContext, map[string]any{wire.KeySDKKey: "sdk-1"})
	ucid := resp.Result.(map[string]any)[wire.KeyUserContextID].(string)

	resp = dispatch(t, d, wire.MethodDecideAsync, map[string]any{
		wire.KeySDKKey:        "sdk-1",
		wire.KeyUserContextID: ucid,
		wire.KeyDecideKeys:    []any{"flag"},
	})
	if !resp.Success {
		t.Fatalf("%s - decideAsync failed: %s", dispatcherTestPrefix, resp.Reason)
	}
	if _, ok := resp.Result.(map[string]any)["flag"]; !ok {
		t.Errorf("%s - decideAsync result = %v", dispatcherTestPrefix, resp.Result)
	}
}

func TestDispatch_ClearListenerSpellings(t *testing.T) {
	d, _ := newTestDispatcher(t)
	dispatch(t, d, wire.MethodInitialize, map[string]any{wire.KeySDKKey: "sdk-1"})

	for _, method := range []string{
		wire.MethodClearAllNotificationListeners,
		wire.MethodClearNotificationListeners,
	} {
		resp := dispatch(t, d, method, map[string]any{wire.KeySDKKey: "sdk-1"})
		if !resp.Success {
			t.Errorf("%s - %s failed: %s", dispatcherTestPrefix, method, resp.Reason)
		}
	}
}

func TestReplyOnce_SwallowsDuplicates(t *testing.T) {
	delivered := 0
	once := replyOnce("test", func(r *wire.Response) { delivered++ })

	once(wire.OK())
	once(wire.Fail("late"))
	once(wire.OK())

	if delivered != 1 {
		t.Errorf("%s - reply delivered %d times, want 1", dispatcherTestPrefix, delivered)
	}
}
