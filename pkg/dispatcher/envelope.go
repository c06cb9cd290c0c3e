// Package dispatcher routes incoming host method calls to bridge
// operations.
package dispatcher

// Request is the JSON envelope for incoming host calls.
type Request struct {
	ID     string         `json:"id,omitempty"`
	Method string         `json:"method"`
	Args   map[string]any `json:"args"`
}
