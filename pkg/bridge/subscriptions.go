package bridge

import (
	"fmt"
	"log/slog"

	"github.com/morezero/flagbridge/pkg/commsutil"
	"github.com/morezero/flagbridge/pkg/engine"
	"github.com/morezero/flagbridge/pkg/hostcall"
	"github.com/morezero/flagbridge/pkg/wire"
)

const subsLogPrefix = "bridge:subscriptions"

// AddNotificationListener registers an engine handler for one
// notification kind. The caller supplies the external id used for
// removal and echoed on every delivery; ids are namespaced per SDK key.
// Re-registering an id replaces the prior handler.
func (b *Bridge) AddNotificationListener(args *wire.Arguments, reply Reply) {
	sdkKey, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	externalID, okID := args.NotificationID()
	kindToken, okKind := args.NotificationType()
	if !okID || !okKind {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}

	// Handler closures carry only primitives (sdkKey, externalID, kind)
	// and resolve bridge state per emission, so the registry never owns a
	// cycle through the engine.
	nc := c.NotificationCenter()
	kind := engine.NotificationType(kindToken)
	var handlerID int
	switch kind {
	case engine.NotificationDecision:
		handlerID = nc.AddDecisionHandler(func(n engine.DecisionNotification) {
			b.emit(sdkKey, externalID, kind, map[string]any{
				"type":         n.Type,
				"userId":       n.UserID,
				"attributes":   n.Attributes,
				"decisionInfo": n.DecisionInfo,
			})
		})
	case engine.NotificationActivate:
		handlerID = nc.AddActivateHandler(func(n engine.ActivateNotification) {
			b.emit(sdkKey, externalID, kind, map[string]any{
				"experiment": map[string]any{"id": n.ExperimentID, "key": n.ExperimentKey},
				"userId":     n.UserID,
				"attributes": n.Attributes,
				"variation":  map[string]any{"id": n.VariationID, "key": n.VariationKey},
			})
		})
	case engine.NotificationTrack:
		handlerID = nc.AddTrackHandler(func(n engine.TrackNotification) {
			b.emit(sdkKey, externalID, kind, map[string]any{
				"eventKey":   n.EventKey,
				"userId":     n.UserID,
				"attributes": n.Attributes,
				"eventTags":  n.EventTags,
			})
		})
	case engine.NotificationLogEvent:
		handlerID = nc.AddLogEventHandler(func(n engine.LogEventNotification) {
			var params map[string]any
			if err := commsutil.DecodePayload(n.Body, &params); err != nil {
				slog.Warn(fmt.Sprintf("%s - logEvent body decode: %v", subsLogPrefix, err))
			}
			b.emit(sdkKey, externalID, kind, map[string]any{
				"url":    n.URL,
				"params": params,
			})
		})
	case engine.NotificationConfigUpdate:
		handlerID = nc.AddConfigUpdateHandler(func() {
			b.emit(sdkKey, externalID, kind, map[string]any{
				"Config-update": map[string]any{},
			})
		})
	default:
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}

	b.mu.Lock()
	if prior, exists := b.subs[sdkKey][externalID]; exists {
		nc.Remove(prior.handlerID)
	}
	if b.subs[sdkKey] == nil {
		b.subs[sdkKey] = make(map[int]subscription)
	}
	b.subs[sdkKey][externalID] = subscription{kind: kind, handlerID: handlerID}
	b.mu.Unlock()

	reply(wire.OK())
}

// RemoveNotificationListener unregisters one subscription by external id.
// Unknown ids succeed silently.
func (b *Bridge) RemoveNotificationListener(args *wire.Arguments, reply Reply) {
	sdkKey, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	externalID, okID := args.NotificationID()
	if !okID {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}

	b.mu.Lock()
	sub, exists := b.subs[sdkKey][externalID]
	if exists {
		delete(b.subs[sdkKey], externalID)
	}
	b.mu.Unlock()

	if exists {
		c.NotificationCenter().Remove(sub.handlerID)
	}
	reply(wire.OK())
}

// ClearNotificationListeners unregisters subscriptions in bulk: every
// subscription under the SDK key when no kind is given, otherwise all
// engine handlers of that kind plus the supplied external ids from the
// index.
func (b *Bridge) ClearNotificationListeners(args *wire.Arguments, reply Reply) {
	sdkKey, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	kindToken, hasKind := args.NotificationType()

	nc := c.NotificationCenter()
	b.mu.Lock()
	if !hasKind {
		delete(b.subs, sdkKey)
	} else {
		callbackIDs, _ := args.CallbackIDs()
		for _, id := range callbackIDs {
			delete(b.subs[sdkKey], id)
		}
	}
	b.mu.Unlock()

	if !hasKind {
		nc.ClearAll()
	} else {
		nc.Clear(engine.NotificationType(kindToken))
	}
	reply(wire.OK())
}

// emit posts one notification envelope to the host on the UI dispatcher.
func (b *Bridge) emit(sdkKey string, externalID int, kind engine.NotificationType, payload map[string]any) {
	b.disp.Post(hostcall.Invocation{
		Channel: commsutil.SubjectCallback,
		Method:  commsutil.CallbackMethod(string(kind)),
		Args: map[string]any{
			wire.KeyNotificationID:   externalID,
			wire.KeySDKKey:           sdkKey,
			wire.KeyNotificationType: string(kind),
			wire.KeyPayload:          payload,
		},
	})
}
