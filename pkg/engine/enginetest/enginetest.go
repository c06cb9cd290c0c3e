// Package enginetest provides a deterministic in-memory decision engine.
// Tests script its decisions and drive its notification center directly;
// the dev harness binary uses it as a stand-in engine.
package enginetest

import (
	"errors"
	"sort"
	"sync"

	"github.com/morezero/flagbridge/pkg/engine"
)

// Factory builds in-memory clients. The zero value is usable: every
// client is valid and ready synchronously.
type Factory struct {
	mu sync.Mutex

	// InvalidKeys lists SDK keys whose clients report IsValid() == false.
	InvalidKeys map[string]bool

	// CreateErr, when set, is handed to the ready callback instead of a
	// client.
	CreateErr error

	// Async delivers the ready callback from a separate goroutine, the
	// way a real engine would.
	Async bool

	lastConfig engine.ClientConfig
	clients    []*Client
}

// Create implements engine.Factory.
func (f *Factory) Create(cfg engine.ClientConfig, ready func(engine.Client, error)) {
	f.mu.Lock()
	f.lastConfig = cfg
	invalid := f.InvalidKeys[cfg.SDKKey]
	createErr := f.CreateErr
	async := f.Async
	f.mu.Unlock()

	if createErr != nil {
		if async {
			go ready(nil, createErr)
		} else {
			ready(nil, createErr)
		}
		return
	}

	c := NewClient(cfg)
	c.valid = !invalid

	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.mu.Unlock()

	if async {
		go ready(c, nil)
	} else {
		ready(c, nil)
	}
}

// LastConfig returns the config of the most recent Create call.
func (f *Factory) LastConfig() engine.ClientConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastConfig
}

// Clients returns every client the factory created, in order.
func (f *Factory) Clients() []*Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Client(nil), f.clients...)
}

// OdpEvent is one recorded SendOdpEvent call.
type OdpEvent struct {
	Type        string
	Action      string
	Identifiers map[string]string
	Data        map[string]any
}

// Client is the in-memory engine client.
type Client struct {
	cfg engine.ClientConfig
	nc  *NotificationCenter

	mu sync.Mutex

	valid  bool
	closed bool

	// Decisions scripts Decide results by flag key.
	Decisions map[string]engine.Decision

	// Variations scripts Activate/GetVariation by experiment key.
	Variations map[string]string

	// TrackErrs scripts TrackEvent failures by event key.
	TrackErrs map[string]error

	// Config is the snapshot returned by ConfigSnapshot; nil means no
	// config.
	Config map[string]any

	// RefuseContexts makes CreateUserContext return nil.
	RefuseContexts bool

	// FetchSuccess is the outcome of FetchQualifiedSegments.
	FetchSuccess bool

	vuid string

	forcedVariations map[string]string
	odpEvents        []OdpEvent
	contexts         []*UserContext
}

// NewClient creates a valid client with no scripted behavior.
func NewClient(cfg engine.ClientConfig) *Client {
	return &Client{
		cfg:              cfg,
		nc:               NewNotificationCenter(),
		valid:            true,
		Decisions:        make(map[string]engine.Decision),
		Variations:       make(map[string]string),
		TrackErrs:        make(map[string]error),
		FetchSuccess:     true,
		vuid:             "vuid_" + cfg.SDKKey,
		forcedVariations: make(map[string]string),
	}
}

// Config returns the client's creation config.
func (c *Client) ClientConfig() engine.ClientConfig { return c.cfg }

// SetValid overrides the validity flag.
func (c *Client) SetValid(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = v
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Contexts returns every user context the client created, in order.
func (c *Client) Contexts() []*UserContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*UserContext(nil), c.contexts...)
}

// OdpEvents returns recorded ODP events in order.
func (c *Client) OdpEvents() []OdpEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]OdpEvent(nil), c.odpEvents...)
}

func (c *Client) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid && !c.closed
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("client already closed")
	}
	c.closed = true
	return nil
}

func (c *Client) CreateUserContext(userID *string, attributes map[string]any) (engine.UserContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RefuseContexts {
		return nil, nil
	}
	uc := &UserContext{client: c, FetchSuccess: c.FetchSuccess, forced: make(map[string]string)}
	if userID != nil {
		uc.userID = *userID
	}
	uc.attributes = make(map[string]any, len(attributes))
	for k, v := range attributes {
		uc.attributes[k] = v
	}
	c.contexts = append(c.contexts, uc)
	return uc, nil
}

func (c *Client) Activate(experimentKey, userID string, attributes map[string]any) (string, error) {
	variation, err := c.variation(experimentKey)
	if err != nil {
		return "", err
	}
	c.nc.EmitActivate(engine.ActivateNotification{
		ExperimentID:  "exp_" + experimentKey,
		ExperimentKey: experimentKey,
		UserID:        userID,
		Attributes:    attributes,
		VariationID:   "var_" + variation,
		VariationKey:  variation,
	})
	return variation, nil
}

func (c *Client) GetVariation(experimentKey, userID string, attributes map[string]any) (string, error) {
	return c.variation(experimentKey)
}

func (c *Client) variation(experimentKey string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.Variations[experimentKey]
	if !ok {
		return "", errors.New("experiment not found: " + experimentKey)
	}
	return v, nil
}

func (c *Client) GetForcedVariation(experimentKey, userID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.forcedVariations[experimentKey+"|"+userID]
	return v, ok
}

func (c *Client) SetForcedVariation(experimentKey, userID, variationKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := experimentKey + "|" + userID
	if variationKey == "" {
		delete(c.forcedVariations, key)
	} else {
		c.forcedVariations[key] = variationKey
	}
	return true
}

func (c *Client) ConfigSnapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Config == nil {
		return nil
	}
	out := make(map[string]any, len(c.Config))
	for k, v := range c.Config {
		out[k] = v
	}
	return out
}

func (c *Client) NotificationCenter() engine.NotificationCenter { return c.nc }

// Center returns the concrete notification center for driving emissions.
func (c *Client) Center() *NotificationCenter { return c.nc }

func (c *Client) Vuid() string { return c.vuid }

func (c *Client) SendOdpEvent(eventType, action string, identifiers map[string]string, data map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("client closed")
	}
	c.odpEvents = append(c.odpEvents, OdpEvent{
		Type:        eventType,
		Action:      action,
		Identifiers: identifiers,
		Data:        data,
	})
	return nil
}

// UserContext is the in-memory user context.
type UserContext struct {
	client *Client

	// FetchSuccess is the outcome reported by FetchQualifiedSegments.
	FetchSuccess bool

	// FetchGate, when set, delays fetch completion until the channel is
	// closed.
	FetchGate chan struct{}

	mu                sync.Mutex
	userID            string
	attributes        map[string]any
	forced            map[string]string
	qualifiedSegments []string
	lastDecideOptions []engine.DecideOption
	lastFetchOptions  []engine.SegmentOption
	tracked           []string
}

func (u *UserContext) UserID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.userID
}

func (u *UserContext) Attributes() map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]any, len(u.attributes))
	for k, v := range u.attributes {
		out[k] = v
	}
	return out
}

func (u *UserContext) SetAttribute(key string, value any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.attributes[key] = value
}

func (u *UserContext) TrackEvent(eventKey string, eventTags map[string]any) error {
	u.client.mu.Lock()
	err := u.client.TrackErrs[eventKey]
	u.client.mu.Unlock()
	if err != nil {
		return err
	}

	u.mu.Lock()
	u.tracked = append(u.tracked, eventKey)
	userID := u.userID
	attrs := u.attributes
	u.mu.Unlock()

	u.client.nc.EmitTrack(engine.TrackNotification{
		EventKey:   eventKey,
		UserID:     userID,
		Attributes: attrs,
		EventTags:  eventTags,
	})
	return nil
}

// Tracked returns the event keys tracked so far.
func (u *UserContext) Tracked() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.tracked...)
}

func (u *UserContext) Decide(keys []string, options []engine.DecideOption) map[string]engine.Decision {
	u.mu.Lock()
	u.lastDecideOptions = options
	u.mu.Unlock()

	out := make(map[string]engine.Decision, len(keys))
	for _, key := range keys {
		out[key] = u.decisionFor(key)
	}
	return out
}

func (u *UserContext) DecideAll(options []engine.DecideOption) map[string]engine.Decision {
	u.client.mu.Lock()
	keys := make([]string, 0, len(u.client.Decisions))
	for k := range u.client.Decisions {
		keys = append(keys, k)
	}
	u.client.mu.Unlock()
	sort.Strings(keys)
	return u.Decide(keys, options)
}

// LastDecideOptions returns the options of the most recent Decide call.
func (u *UserContext) LastDecideOptions() []engine.DecideOption {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]engine.DecideOption(nil), u.lastDecideOptions...)
}

func (u *UserContext) decisionFor(key string) engine.Decision {
	u.client.mu.Lock()
	d, scripted := u.client.Decisions[key]
	u.client.mu.Unlock()
	if !scripted {
		d = engine.Decision{FlagKey: key, Reasons: []string{}}
	}
	u.mu.Lock()
	d.UserID = u.userID
	d.Attributes = u.attributes
	u.mu.Unlock()
	return d
}

func forcedKey(flagKey, ruleKey string) string { return flagKey + "|" + ruleKey }

func (u *UserContext) SetForcedDecision(flagKey, ruleKey, variationKey string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.forced[forcedKey(flagKey, ruleKey)] = variationKey
	return true
}

func (u *UserContext) GetForcedDecision(flagKey, ruleKey string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	v, ok := u.forced[forcedKey(flagKey, ruleKey)]
	return v, ok
}

func (u *UserContext) RemoveForcedDecision(flagKey, ruleKey string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := forcedKey(flagKey, ruleKey)
	_, ok := u.forced[key]
	delete(u.forced, key)
	return ok
}

func (u *UserContext) RemoveAllForcedDecisions() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.forced = make(map[string]string)
	return true
}

func (u *UserContext) QualifiedSegments() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.qualifiedSegments
}

func (u *UserContext) SetQualifiedSegments(segments []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.qualifiedSegments = append([]string(nil), segments...)
}

func (u *UserContext) IsQualifiedFor(segment string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, s := range u.qualifiedSegments {
		if s == segment {
			return true
		}
	}
	return false
}

func (u *UserContext) FetchQualifiedSegments(options []engine.SegmentOption, done func(success bool)) {
	u.mu.Lock()
	u.lastFetchOptions = options
	success := u.FetchSuccess
	gate := u.FetchGate
	u.mu.Unlock()
	go func() {
		if gate != nil {
			<-gate
		}
		if success {
			u.SetQualifiedSegments([]string{"fetched"})
		}
		done(success)
	}()
}

// LastFetchOptions returns the options of the most recent segment fetch.
func (u *UserContext) LastFetchOptions() []engine.SegmentOption {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]engine.SegmentOption(nil), u.lastFetchOptions...)
}
