package wire

// Stable reason strings returned in failure envelopes.
const (
	ReasonInvalidParameters      = "Invalid parameters provided."
	ReasonInvalidClient          = "Optimizely client is invalid."
	ReasonClientNotFound         = "Optimizely client not found."
	ReasonConfigNotFound         = "No optimizely config found."
	ReasonUserContextNotFound    = "User context not found."
	ReasonUserContextNotCreated  = "User context not created."
	ReasonQualifiedSegsNotFound  = "Qualified Segments not found."
	ReasonMethodNotImplemented   = "notImplemented"
)

// Response is the uniform envelope every reply carries. Boolean payloads
// are stored in Result, never in Success.
type Response struct {
	Success bool   `json:"success"`
	Result  any    `json:"result"`
	Reason  string `json:"reason"`
}

// OK builds a success envelope with no payload.
func OK() *Response {
	return &Response{Success: true}
}

// Result builds a success envelope carrying a payload.
func Result(payload any) *Response {
	return &Response{Success: true, Result: payload}
}

// Fail builds a failure envelope with a reason.
func Fail(reason string) *Response {
	return &Response{Success: false, Reason: reason}
}
