// Package engine defines the narrow interfaces through which the bridge
// consumes a feature-flag decision engine. The engine itself (bucketing,
// rollouts, event batching, datafile polling) lives outside this module;
// the bridge only needs the surface below.
package engine

import "time"

// Factory creates engine clients. Create returns immediately; ready is
// invoked exactly once from an engine-owned goroutine when startup
// finishes, with a nil error iff the client is usable.
type Factory interface {
	Create(cfg ClientConfig, ready func(c Client, err error))
}

// Client is one initialized engine instance for a single SDK key, owning
// its event processor, notification center, and datafile worker.
type Client interface {
	// IsValid reports whether the engine holds a usable project config.
	IsValid() bool

	// Close flushes pending events and releases all client resources.
	Close() error

	// CreateUserContext builds a user context. userID may be nil for
	// engines that support anonymous contexts. Returns nil when the
	// engine cannot create a context.
	CreateUserContext(userID *string, attributes map[string]any) (UserContext, error)

	// Activate buckets the user into the experiment and sends an
	// impression event. Returns the assigned variation key.
	Activate(experimentKey, userID string, attributes map[string]any) (string, error)

	// GetVariation buckets without sending an impression.
	GetVariation(experimentKey, userID string, attributes map[string]any) (string, error)

	// GetForcedVariation returns the experiment-level override, if any.
	GetForcedVariation(experimentKey, userID string) (variationKey string, ok bool)

	// SetForcedVariation pins (or, with empty variationKey, clears) an
	// experiment-level override. Reports whether the engine accepted it.
	SetForcedVariation(experimentKey, userID, variationKey string) bool

	// ConfigSnapshot returns the current project config as a generic
	// map, or nil when no config is available. Each call returns a
	// fresh copy; callers may mutate it without affecting the engine or
	// later snapshots.
	ConfigSnapshot() map[string]any

	// NotificationCenter returns the client's pub/sub bus.
	NotificationCenter() NotificationCenter

	// Vuid returns the engine's visitor unique id.
	Vuid() string

	// SendOdpEvent enqueues an event on the ODP pipeline.
	SendOdpEvent(eventType, action string, identifiers map[string]string, data map[string]any) error
}

// UserContext is a (userId, mutable attributes) pair bound to one Client.
type UserContext interface {
	UserID() string
	Attributes() map[string]any
	SetAttribute(key string, value any)

	// TrackEvent sends a conversion event. Unknown event keys surface as
	// an error whose message is relayed to the host verbatim.
	TrackEvent(eventKey string, eventTags map[string]any) error

	// Decide evaluates the given flag keys; DecideAll evaluates every
	// flag in the project.
	Decide(keys []string, options []DecideOption) map[string]Decision
	DecideAll(options []DecideOption) map[string]Decision

	SetForcedDecision(flagKey, ruleKey, variationKey string) bool
	GetForcedDecision(flagKey, ruleKey string) (variationKey string, ok bool)
	RemoveForcedDecision(flagKey, ruleKey string) bool
	RemoveAllForcedDecisions() bool

	QualifiedSegments() []string
	SetQualifiedSegments(segments []string)
	IsQualifiedFor(segment string) bool

	// FetchQualifiedSegments resolves segment membership from ODP. done
	// is invoked exactly once from an engine-owned goroutine.
	FetchQualifiedSegments(options []SegmentOption, done func(success bool))
}

// NotificationCenter is the engine's internal pub/sub bus. Handler ids are
// unique within one center.
type NotificationCenter interface {
	AddDecisionHandler(fn func(DecisionNotification)) int
	AddActivateHandler(fn func(ActivateNotification)) int
	AddTrackHandler(fn func(TrackNotification)) int
	AddLogEventHandler(fn func(LogEventNotification)) int
	AddConfigUpdateHandler(fn func()) int

	// Remove unregisters a handler by id; unknown ids are a no-op.
	Remove(id int)

	// Clear unregisters every handler of one notification type.
	Clear(t NotificationType)

	// ClearAll unregisters every handler.
	ClearAll()
}

// ClientConfig carries every initialize-time setting of a client.
type ClientConfig struct {
	SDKKey string

	// Event batching.
	EventBatchSize     int
	EventFlushInterval time.Duration
	EventMaxQueueSize  int

	// Datafile polling and host override.
	DatafilePollInterval time.Duration
	DatafileHostPrefix   string
	DatafileHostSuffix   string

	DefaultDecideOptions []DecideOption
	DefaultLogLevel      LogLevel

	// ODP settings.
	SegmentsCacheSize    int
	SegmentsCacheTimeout time.Duration
	SegmentFetchTimeout  time.Duration
	OdpEventTimeout      time.Duration
	DisableOdp           bool

	// LogSink receives engine log records; nil disables relaying.
	LogSink LogSink
}
