// Package logrelay forwards engine log records to the host runtime on a
// dedicated logger channel.
package logrelay

import (
	"github.com/morezero/flagbridge/pkg/commsutil"
	"github.com/morezero/flagbridge/pkg/engine"
	"github.com/morezero/flagbridge/pkg/hostcall"
)

// Relay is an engine.LogSink posting {level, message} records to the UI
// dispatcher. Register one relay at attach time; it serves every client.
type Relay struct {
	disp    *hostcall.Dispatcher
	subject string
}

// Opts customizes a Relay.
type Opts struct {
	// Subject overrides the default logger channel.
	Subject string
}

// New creates a relay delivering through disp. A nil opts uses the
// default logger channel.
func New(disp *hostcall.Dispatcher, opts *Opts) *Relay {
	subject := commsutil.SubjectLogger
	if opts != nil && opts.Subject != "" {
		subject = opts.Subject
	}
	return &Relay{disp: disp, subject: subject}
}

// Log implements engine.LogSink. The level travels as its wire code
// (ERROR=1, WARNING=2, INFO=3, DEBUG=4).
func (r *Relay) Log(level engine.LogLevel, message string) {
	r.disp.Post(hostcall.Invocation{
		Channel: r.subject,
		Method:  commsutil.MethodLog,
		Args: map[string]any{
			"level":   int(level),
			"message": message,
		},
	})
}
