// Package main is the entrypoint for the flagbridge server.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/morezero/flagbridge/internal/server"
	"github.com/morezero/flagbridge/pkg/engine/enginetest"
)

const usage = `Usage: flagbridge [command]
       flagbridge serve    Start the bridge (NATS request handler, HTTP health).

Commands:
  serve    (default) Start the flagbridge server with the in-memory engine.

The in-memory engine answers every method with scripted results and is
intended for protocol development against a live NATS. Production
deployments embed the server package with a real engine factory.

Environment: COMMS_URL (default nats://127.0.0.1:4222), SERVICE_NAME,
BRIDGE_REQUEST_SUBJECT, BRIDGE_LOGGER_SUBJECT, BRIDGE_REQUEST_TIMEOUT,
HTTP_PORT, LOG_LEVEL. See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(&enginetest.Factory{Async: true}); err != nil {
		log.Fatalf("flagbridge: %v", err)
	}
}
