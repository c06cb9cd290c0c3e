package engine

// NotificationType identifies one kind of engine notification.
type NotificationType string

const (
	NotificationDecision     NotificationType = "decision"
	NotificationActivate     NotificationType = "activate"
	NotificationTrack        NotificationType = "track"
	NotificationLogEvent     NotificationType = "logEvent"
	NotificationConfigUpdate NotificationType = "projectConfigUpdate"
)

// DecideOption modifies flag evaluation.
type DecideOption int

const (
	DisableDecisionEvent DecideOption = iota
	EnabledFlagsOnly
	IgnoreUserProfileService
	IncludeReasons
	ExcludeVariables
)

// SegmentOption modifies qualified-segment fetches.
type SegmentOption int

const (
	IgnoreCache SegmentOption = iota
	ResetCache
)

// Decision is the engine's evaluation result for one flag key.
type Decision struct {
	VariationKey string
	Enabled      bool
	Variables    map[string]any
	RuleKey      string
	FlagKey      string
	UserID       string
	Attributes   map[string]any
	Reasons      []string
}

// DecisionNotification is published for every flag or experiment decision.
type DecisionNotification struct {
	Type         string
	UserID       string
	Attributes   map[string]any
	DecisionInfo map[string]any
}

// ActivateNotification is published when a legacy experiment activates.
type ActivateNotification struct {
	ExperimentID  string
	ExperimentKey string
	UserID        string
	Attributes    map[string]any
	VariationID   string
	VariationKey  string
}

// TrackNotification is published for every conversion event.
type TrackNotification struct {
	EventKey   string
	UserID     string
	Attributes map[string]any
	EventTags  map[string]any
}

// LogEventNotification is published when a batched event payload is
// dispatched. Body is the raw JSON request body.
type LogEventNotification struct {
	URL  string
	Body []byte
}
