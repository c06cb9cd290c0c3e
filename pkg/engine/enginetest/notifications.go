package enginetest

import (
	"sync"

	"github.com/morezero/flagbridge/pkg/engine"
)

type handler struct {
	id   int
	kind engine.NotificationType
	fn   any
}

// NotificationCenter is an in-memory notification center. Handler ids
// are assigned in registration order starting at 1, and emissions
// invoke handlers in registration order.
type NotificationCenter struct {
	mu       sync.Mutex
	nextID   int
	handlers []handler
}

func NewNotificationCenter() *NotificationCenter {
	return &NotificationCenter{nextID: 1}
}

func (nc *NotificationCenter) add(kind engine.NotificationType, fn any) int {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	id := nc.nextID
	nc.nextID++
	nc.handlers = append(nc.handlers, handler{id: id, kind: kind, fn: fn})
	return id
}

func (nc *NotificationCenter) AddDecisionHandler(fn func(engine.DecisionNotification)) int {
	return nc.add(engine.NotificationDecision, fn)
}

func (nc *NotificationCenter) AddActivateHandler(fn func(engine.ActivateNotification)) int {
	return nc.add(engine.NotificationActivate, fn)
}

func (nc *NotificationCenter) AddTrackHandler(fn func(engine.TrackNotification)) int {
	return nc.add(engine.NotificationTrack, fn)
}

func (nc *NotificationCenter) AddLogEventHandler(fn func(engine.LogEventNotification)) int {
	return nc.add(engine.NotificationLogEvent, fn)
}

func (nc *NotificationCenter) AddConfigUpdateHandler(fn func()) int {
	return nc.add(engine.NotificationConfigUpdate, fn)
}

func (nc *NotificationCenter) Remove(id int) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	for i, h := range nc.handlers {
		if h.id == id {
			nc.handlers = append(nc.handlers[:i], nc.handlers[i+1:]...)
			return
		}
	}
}

func (nc *NotificationCenter) Clear(t engine.NotificationType) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	kept := nc.handlers[:0]
	for _, h := range nc.handlers {
		if h.kind != t {
			kept = append(kept, h)
		}
	}
	nc.handlers = kept
}

func (nc *NotificationCenter) ClearAll() {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	nc.handlers = nil
}

// HandlerCount returns the number of registered handlers for a type.
func (nc *NotificationCenter) HandlerCount(t engine.NotificationType) int {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	n := 0
	for _, h := range nc.handlers {
		if h.kind == t {
			n++
		}
	}
	return n
}

func (nc *NotificationCenter) snapshot(kind engine.NotificationType) []handler {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	out := make([]handler, 0, len(nc.handlers))
	for _, h := range nc.handlers {
		if h.kind == kind {
			out = append(out, h)
		}
	}
	return out
}

// EmitDecision delivers a decision notification to registered handlers.
func (nc *NotificationCenter) EmitDecision(n engine.DecisionNotification) {
	for _, h := range nc.snapshot(engine.NotificationDecision) {
		h.fn.(func(engine.DecisionNotification))(n)
	}
}

// EmitActivate delivers an activate notification to registered handlers.
func (nc *NotificationCenter) EmitActivate(n engine.ActivateNotification) {
	for _, h := range nc.snapshot(engine.NotificationActivate) {
		h.fn.(func(engine.ActivateNotification))(n)
	}
}

// EmitTrack delivers a track notification to registered handlers.
func (nc *NotificationCenter) EmitTrack(n engine.TrackNotification) {
	for _, h := range nc.snapshot(engine.NotificationTrack) {
		h.fn.(func(engine.TrackNotification))(n)
	}
}

// EmitLogEvent delivers a log event notification to registered handlers.
func (nc *NotificationCenter) EmitLogEvent(n engine.LogEventNotification) {
	for _, h := range nc.snapshot(engine.NotificationLogEvent) {
		h.fn.(func(engine.LogEventNotification))(n)
	}
}

// EmitConfigUpdate delivers a project config update to registered handlers.
func (nc *NotificationCenter) EmitConfigUpdate() {
	for _, h := range nc.snapshot(engine.NotificationConfigUpdate) {
		h.fn.(func())()
	}
}
