// Package server orchestrates all components: NATS client, bridge, dispatcher, HTTP health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/flagbridge/internal/config"
	"github.com/morezero/flagbridge/pkg/bridge"
	"github.com/morezero/flagbridge/pkg/commsutil"
	"github.com/morezero/flagbridge/pkg/dispatcher"
	"github.com/morezero/flagbridge/pkg/engine"
	"github.com/morezero/flagbridge/pkg/hostcall"
	"github.com/morezero/flagbridge/pkg/logrelay"
	"github.com/morezero/flagbridge/pkg/wire"
)

const logPrefix = "server:server"

// reasonRequestTimeout is the failure reason for method calls that the
// bridge did not answer within the configured request timeout.
const reasonRequestTimeout = "Request timed out."

// bridgeForServer is the bridge surface the HTTP handlers need.
type bridgeForServer interface {
	ClientCount() int
}

// Server is the flagbridge orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	httpServer *http.Server
	br         bridgeForServer
	core       *bridge.Bridge
	disp       *dispatcher.Dispatcher
	ui         *hostcall.Dispatcher
	started    time.Time
}

// New wires a server around an engine factory and an established NATS
// connection. The caller owns the connection.
func New(cfg *config.Config, factory engine.Factory, nc *comms.Conn) *Server {
	ui := hostcall.NewDispatcher(hostcall.NewCommsSender(nc))
	var relayOpts *logrelay.Opts
	if cfg.LoggerSubject != "" {
		relayOpts = &logrelay.Opts{Subject: cfg.LoggerSubject}
	}
	relay := logrelay.New(ui, relayOpts)
	br := bridge.New(factory, ui, relay)
	return &Server{
		cfg:     cfg,
		nc:      nc,
		br:      br,
		core:    br,
		disp:    dispatcher.NewDispatcher(br),
		ui:      ui,
		started: time.Now().UTC(),
	}
}

// RequestSubject returns the subject the server answers method calls on.
func (s *Server) RequestSubject() string {
	if s.cfg.RequestSubject != "" {
		return s.cfg.RequestSubject
	}
	return commsutil.SubjectRequest
}

// SubscribeRequests subscribes the method-call handler on the request
// subject. The caller unsubscribes during shutdown.
func (s *Server) SubscribeRequests() (*comms.Subscription, error) {
	return s.nc.Subscribe(s.RequestSubject(), s.handleRequest)
}

// handleRequest decodes one method call and replies with its response
// envelope.
func (s *Server) handleRequest(msg *comms.Msg) {
	var req dispatcher.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
		data, _ := json.Marshal(wire.Fail(wire.ReasonInvalidParameters))
		msg.Respond(data)
		return
	}

	respond := func(resp *wire.Response) {
		data, err := json.Marshal(resp)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to encode response: %v", logPrefix, err))
			return
		}
		msg.Respond(data)
	}
	s.disp.Dispatch(req.Method, req.Args, replyWithin(s.cfg.RequestTimeout, req.Method, respond))
}

// replyWithin wraps respond so the request is answered exactly once:
// by the dispatched operation, or with a timeout failure if the
// operation has not replied when timeout elapses. Async operations
// (initialize, fetchQualifiedSegments) wait on engine callbacks, so a
// wedged engine must not leave the host request hanging forever.
func replyWithin(timeout time.Duration, method string, respond func(*wire.Response)) func(*wire.Response) {
	var once sync.Once
	if timeout <= 0 {
		return func(resp *wire.Response) {
			once.Do(func() { respond(resp) })
		}
	}
	timer := time.AfterFunc(timeout, func() {
		once.Do(func() {
			slog.Warn(fmt.Sprintf("%s - %s did not reply within %s", logPrefix, method, timeout))
			respond(wire.Fail(reasonRequestTimeout))
		})
	})
	return func(resp *wire.Response) {
		timer.Stop()
		once.Do(func() { respond(resp) })
	}
}

// Shutdown flushes pending host calls and releases every client.
func (s *Server) Shutdown() {
	s.core.Close()
	s.ui.Close()
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run(factory engine.Factory) error {
	var logLevel slog.Level
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info(fmt.Sprintf("%s - Starting flagbridge", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))

	s := New(cfg, factory, nc)

	sub, err := s.SubscribeRequests()
	if err != nil {
		s.Shutdown()
		nc.Close()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, s.RequestSubject(), err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, s.RequestSubject()))

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = fmt.Sprintf(":%d", cfg.HTTPPort)
	}
	s.httpServer = &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Flagbridge is ready", logPrefix))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	sub.Unsubscribe()
	s.httpServer.Shutdown(ctx)
	s.Shutdown()
	nc.Drain()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// healthOutput is the /health response body.
type healthOutput struct {
	Status    string `json:"status"`
	Clients   int    `json:"clients"`
	Timestamp string `json:"timestamp"`
}

// handleHealth returns an HTTP handler reporting bridge liveness and the
// number of registered clients. The count crosses the bridge mutex, so
// it runs under the configured health-check deadline; a bridge that
// cannot answer in time reports unhealthy.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		counted := make(chan int, 1)
		go func() { counted <- s.br.ClientCount() }()

		w.Header().Set("Content-Type", "application/json")
		select {
		case n := <-counted:
			json.NewEncoder(w).Encode(healthOutput{
				Status:    "healthy",
				Clients:   n,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		case <-ctx.Done():
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(healthOutput{
				Status:    "unhealthy",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}

// homePageTemplate is the HTML for the bridge status page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Flagbridge</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2 { color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    table { border-collapse: collapse; width: 100%; max-width: 600px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; width: 180px; }
    section { margin-bottom: 2rem; }
  </style>
</head>
<body>
  <h1>Flagbridge</h1>
  <p class="meta">Feature-flag bridge status.</p>

  <section>
    <h2>Status</h2>
    <table>
      <tr><th>Registered clients</th><td><span class="stat">{{.Clients}}</span></td></tr>
      <tr><th>Request subject</th><td>{{.RequestSubject}}</td></tr>
      <tr><th>Started</th><td>{{.Started}}</td></tr>
    </table>
  </section>
</body>
</html>
`

// homeData is the data passed to the status page template.
type homeData struct {
	Clients        int
	RequestSubject string
	Started        string
}

// handleHome returns an HTTP handler for the bridge status page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		data := homeData{
			Clients:        s.br.ClientCount(),
			RequestSubject: s.RequestSubject(),
			Started:        s.started.Format(time.RFC3339),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
