package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/morezero/flagbridge/internal/config"
	"github.com/morezero/flagbridge/pkg/wire"
)

const serverTestPrefix = "server:server_test"

// mockBridge implements bridgeForServer for handler tests. A non-nil
// block makes ClientCount hang until the channel is closed.
type mockBridge struct {
	clients int
	block   chan struct{}
}

func (m *mockBridge) ClientCount() int {
	if m.block != nil {
		<-m.block
	}
	return m.clients
}

// testServer returns a Server with a mock bridge for HTTP handler tests.
func testServer(t *testing.T, br bridgeForServer) *Server {
	t.Helper()
	cfg := &config.Config{
		HealthCheckTimeout: 5 * time.Second,
	}
	return &Server{cfg: cfg, br: br, started: time.Now().UTC()}
}

func TestHealthHandler(t *testing.T) {
	s := testServer(t, &mockBridge{clients: 3})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth()(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("%s - status = %d, want 200", serverTestPrefix, w.Code)
	}
	var h healthOutput
	if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
		t.Fatalf("%s - decode: %v", serverTestPrefix, err)
	}
	if h.Status != "healthy" {
		t.Errorf("%s - status = %q, want healthy", serverTestPrefix, h.Status)
	}
	if h.Clients != 3 {
		t.Errorf("%s - clients = %d, want 3", serverTestPrefix, h.Clients)
	}
	if h.Timestamp == "" {
		t.Errorf("%s - timestamp missing", serverTestPrefix)
	}
}

func TestHandleHome_Success(t *testing.T) {
	s := testServer(t, &mockBridge{clients: 2})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.handleHome()(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("%s - status = %d, want 200", serverTestPrefix, w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Flagbridge") {
		t.Errorf("%s - home page missing title", serverTestPrefix)
	}
	if !strings.Contains(body, "Registered clients") {
		t.Errorf("%s - home page missing client stat", serverTestPrefix)
	}
}

func TestHandleHome_OnlyRoot(t *testing.T) {
	s := testServer(t, &mockBridge{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	s.handleHome()(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("%s - status = %d, want 404", serverTestPrefix, w.Code)
	}
}

func TestHealthHandler_BlockedBridgeReportsUnhealthy(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	s := testServer(t, &mockBridge{clients: 1, block: block})
	s.cfg.HealthCheckTimeout = 20 * time.Millisecond

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth()(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("%s - status = %d, want 503", serverTestPrefix, w.Code)
	}
	var h healthOutput
	if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
		t.Fatalf("%s - decode: %v", serverTestPrefix, err)
	}
	if h.Status != "unhealthy" {
		t.Errorf("%s - status = %q, want unhealthy", serverTestPrefix, h.Status)
	}
}

func TestReplyWithin_TimeoutAnswers(t *testing.T) {
	got := make(chan *wire.Response, 1)
	replyWithin(20*time.Millisecond, "decide", func(resp *wire.Response) { got <- resp })

	select {
	case resp := <-got:
		if resp.Success || resp.Reason != reasonRequestTimeout {
			t.Errorf("%s - resp = %+v, want timeout failure", serverTestPrefix, resp)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - timeout reply never arrived", serverTestPrefix)
	}
}

func TestReplyWithin_ReplyBeatsTimeout(t *testing.T) {
	var responses []*wire.Response
	reply := replyWithin(50*time.Millisecond, "decide", func(resp *wire.Response) {
		responses = append(responses, resp)
	})

	reply(wire.OK())
	time.Sleep(100 * time.Millisecond)

	if len(responses) != 1 {
		t.Fatalf("%s - %d responses, want 1", serverTestPrefix, len(responses))
	}
	if !responses[0].Success {
		t.Errorf("%s - resp = %+v, want success", serverTestPrefix, responses[0])
	}
}

func TestReplyWithin_LateReplyDropped(t *testing.T) {
	got := make(chan *wire.Response, 2)
	reply := replyWithin(10*time.Millisecond, "decide", func(resp *wire.Response) { got <- resp })

	<-got
	reply(wire.OK())

	select {
	case resp := <-got:
		t.Errorf("%s - late reply delivered: %+v", serverTestPrefix, resp)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReplyWithin_NoTimeoutStillRepliesOnce(t *testing.T) {
	var responses []*wire.Response
	reply := replyWithin(0, "decide", func(resp *wire.Response) {
		responses = append(responses, resp)
	})

	reply(wire.OK())
	reply(wire.Fail("late"))

	if len(responses) != 1 || !responses[0].Success {
		t.Errorf("%s - responses = %+v, want one success", serverTestPrefix, responses)
	}
}

func TestRequestSubject_Default(t *testing.T) {
	s := &Server{cfg: &config.Config{}}
	if got := s.RequestSubject(); got != "optimizely_flutter_sdk" {
		t.Errorf("%s - RequestSubject = %q", serverTestPrefix, got)
	}
}

func TestRequestSubject_Override(t *testing.T) {
	s := &Server{cfg: &config.Config{RequestSubject: "bridge.requests"}}
	if got := s.RequestSubject(); got != "bridge.requests" {
		t.Errorf("%s - RequestSubject = %q", serverTestPrefix, got)
	}
}
