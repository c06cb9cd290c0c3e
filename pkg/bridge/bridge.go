// Package bridge owns the state between the host boundary and the
// decision engine: the client registry, the user-context registry, and
// the notification-subscription index. One Bridge is constructed at
// attach and destroyed at detach; every operation receives it explicitly.
package bridge

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/morezero/flagbridge/pkg/engine"
	"github.com/morezero/flagbridge/pkg/hostcall"
	"github.com/morezero/flagbridge/pkg/wire"
)

const logPrefix = "bridge:bridge"

// Reply is the one-shot reply capability of an inbound call.
type Reply func(*wire.Response)

// subscription ties a caller-chosen external id to the engine-internal
// handler id, tagged by kind. External ids are namespaced per SDK key.
type subscription struct {
	kind      engine.NotificationType
	handlerID int
}

// Bridge holds every live client plus the state created with it.
//
// Inbound calls arrive serialized, but engine callbacks (ready
// notifications, async fetches) land on engine goroutines, so one coarse
// mutex covers the three registries.
type Bridge struct {
	factory engine.Factory
	disp    *hostcall.Dispatcher
	logSink engine.LogSink

	mu       sync.Mutex
	clients  map[string]engine.Client
	contexts map[string]map[string]engine.UserContext
	subs     map[string]map[int]subscription
}

// New creates an empty bridge. Outbound notifications are posted through
// disp; logSink (nil allowed) is handed to every client it initializes.
func New(factory engine.Factory, disp *hostcall.Dispatcher, logSink engine.LogSink) *Bridge {
	return &Bridge{
		factory:  factory,
		disp:     disp,
		logSink:  logSink,
		clients:  make(map[string]engine.Client),
		contexts: make(map[string]map[string]engine.UserContext),
		subs:     make(map[string]map[int]subscription),
	}
}

// Close tears down every client and drops all bridge state. Used at
// detach; individual clients go away through the close operation.
func (b *Bridge) Close() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[string]engine.Client)
	b.contexts = make(map[string]map[string]engine.UserContext)
	b.subs = make(map[string]map[int]subscription)
	b.mu.Unlock()

	for sdkKey, c := range clients {
		c.NotificationCenter().ClearAll()
		if err := c.Close(); err != nil {
			slog.Warn(fmt.Sprintf("%s - close %s: %v", logPrefix, sdkKey, err))
		}
	}
}

// ClientCount reports the number of live clients (health endpoint).
func (b *Bridge) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// client returns the live client for sdkKey, or nil.
func (b *Bridge) client(sdkKey string) engine.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clients[sdkKey]
}

// requireClient resolves the client for the call or replies with the
// appropriate failure. The sdkKey is returned for registry updates.
func (b *Bridge) requireClient(args *wire.Arguments, reply Reply) (string, engine.Client, bool) {
	sdkKey, ok := args.SDKKey()
	if !ok || sdkKey == "" {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return "", nil, false
	}
	c := b.client(sdkKey)
	if c == nil {
		reply(wire.Fail(wire.ReasonClientNotFound))
		return "", nil, false
	}
	return sdkKey, c, true
}

// requireContext resolves a user context by (sdkKey, userContextId) or
// replies with the appropriate failure.
func (b *Bridge) requireContext(args *wire.Arguments, reply Reply) (string, engine.UserContext, bool) {
	sdkKey, ok := args.SDKKey()
	if !ok || sdkKey == "" {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return "", nil, false
	}
	ucid, ok := args.UserContextID()
	if !ok || ucid == "" {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return "", nil, false
	}

	b.mu.Lock()
	uc := b.contexts[sdkKey][ucid]
	b.mu.Unlock()

	if uc == nil {
		reply(wire.Fail(wire.ReasonUserContextNotFound))
		return "", nil, false
	}
	return sdkKey, uc, true
}
