// Package hostcall delivers outbound method invocations to the host
// runtime. Every callback crossing the boundary (notifications, log
// records) is posted through a single Dispatcher goroutine, which stands
// in for the host platform's UI thread.
package hostcall

import (
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/flagbridge/pkg/commsutil"
)

const senderLogPrefix = "hostcall:sender"

// Invocation is one outbound host call: a method name with its argument
// map, addressed to a channel subject.
type Invocation struct {
	Channel string         `json:"-"`
	Method  string         `json:"method"`
	Args    map[string]any `json:"args"`
}

// Sender delivers one invocation to the host.
type Sender interface {
	Invoke(inv Invocation) error
}

// CommsSender publishes invocations as JSON envelopes on their channel
// subjects.
type CommsSender struct {
	nc *comms.Conn
}

// NewCommsSender creates a CommsSender on an existing connection.
func NewCommsSender(nc *comms.Conn) *CommsSender {
	return &CommsSender{nc: nc}
}

// Invoke publishes the invocation envelope.
func (s *CommsSender) Invoke(inv Invocation) error {
	data, err := commsutil.EncodePayload(inv)
	if err != nil {
		return fmt.Errorf("%s - failed to encode invocation: %w", senderLogPrefix, err)
	}
	if err := s.nc.Publish(inv.Channel, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", senderLogPrefix, inv.Channel, err))
		return err
	}
	return nil
}

// CallbackSender is a Sender that calls a callback function (for testing).
type CallbackSender struct {
	callback func(inv Invocation) error
}

// NewCallbackSender creates a new CallbackSender.
func NewCallbackSender(cb func(inv Invocation) error) *CallbackSender {
	return &CallbackSender{callback: cb}
}

// Invoke calls the callback.
func (s *CallbackSender) Invoke(inv Invocation) error {
	return s.callback(inv)
}

// NoOpSender is a Sender that discards invocations (for in-process usage
// without a host).
type NoOpSender struct{}

// Invoke is a no-op.
func (s *NoOpSender) Invoke(Invocation) error { return nil }
