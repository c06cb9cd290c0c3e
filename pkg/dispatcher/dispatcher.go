package dispatcher

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/morezero/flagbridge/pkg/bridge"
	"github.com/morezero/flagbridge/pkg/wire"
)

const logPrefix = "dispatcher:dispatch"

// Dispatcher routes host method calls to bridge operations.
type Dispatcher struct {
	bridge *bridge.Bridge
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(b *bridge.Bridge) *Dispatcher {
	return &Dispatcher{bridge: b}
}

// Dispatch routes one call. The reply capability is guaranteed to be
// invoked exactly once, on every path, no matter what the operation or
// the engine does; late duplicates are swallowed and logged.
func (d *Dispatcher) Dispatch(method string, argMap map[string]any, reply bridge.Reply) {
	slog.Debug(fmt.Sprintf("%s - method=%s", logPrefix, method))

	args := wire.NewArguments(argMap)
	once := replyOnce(method, reply)

	switch method {
	case wire.MethodInitialize:
		d.bridge.Initialize(args, once)
	case wire.MethodClose:
		d.bridge.CloseClient(args, once)
	case wire.MethodActivate:
		d.bridge.Activate(args, once)
	case wire.MethodGetVariation:
		d.bridge.GetVariation(args, once)
	case wire.MethodGetForcedVariation:
		d.bridge.GetForcedVariation(args, once)
	case wire.MethodSetForcedVariation:
		d.bridge.SetForcedVariation(args, once)
	case wire.MethodCreateUserContext:
		d.bridge.CreateUserContext(args, once)
	case wire.MethodGetUserID:
		d.bridge.GetUserID(args, once)
	case wire.MethodGetAttributes:
		d.bridge.GetAttributes(args, once)
	case wire.MethodSetAttributes:
		d.bridge.SetAttributes(args, once)
	case wire.MethodTrackEvent:
		d.bridge.TrackEvent(args, once)
	case wire.MethodDecide, wire.MethodDecideAsync:
		d.bridge.Decide(args, once)
	case wire.MethodSetForcedDecision:
		d.bridge.SetForcedDecision(args, once)
	case wire.MethodGetForcedDecision:
		d.bridge.GetForcedDecision(args, once)
	case wire.MethodRemoveForcedDecision:
		d.bridge.RemoveForcedDecision(args, once)
	case wire.MethodRemoveAllForcedDecisions:
		d.bridge.RemoveAllForcedDecisions(args, once)
	case wire.MethodGetOptimizelyConfig:
		d.bridge.GetOptimizelyConfig(args, once)
	case wire.MethodAddNotificationListener:
		d.bridge.AddNotificationListener(args, once)
	case wire.MethodRemoveNotificationListener:
		d.bridge.RemoveNotificationListener(args, once)
	case wire.MethodClearAllNotificationListeners, wire.MethodClearNotificationListeners:
		// Older hosts send clearNotificationListeners; both spellings
		// share one operation.
		d.bridge.ClearNotificationListeners(args, once)
	case wire.MethodGetQualifiedSegments:
		d.bridge.GetQualifiedSegments(args, once)
	case wire.MethodSetQualifiedSegments:
		d.bridge.SetQualifiedSegments(args, once)
	case wire.MethodIsQualifiedFor:
		d.bridge.IsQualifiedFor(args, once)
	case wire.MethodGetVuid:
		d.bridge.GetVuid(args, once)
	case wire.MethodSendOdpEvent:
		d.bridge.SendOdpEvent(args, once)
	case wire.MethodFetchQualifiedSegments:
		d.bridge.FetchQualifiedSegments(args, once)
	default:
		once(wire.Fail(wire.ReasonMethodNotImplemented))
	}
}

// replyOnce wraps a reply capability so only the first invocation lands.
func replyOnce(method string, reply bridge.Reply) bridge.Reply {
	var once sync.Once
	return func(resp *wire.Response) {
		delivered := false
		once.Do(func() {
			delivered = true
			reply(resp)
		})
		if !delivered {
			slog.Error(fmt.Sprintf("%s - dropped duplicate reply for %s", logPrefix, method))
		}
	}
}
