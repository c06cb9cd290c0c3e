package bridge

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/morezero/flagbridge/pkg/engine"
	"github.com/morezero/flagbridge/pkg/wire"
)

const clientsLogPrefix = "bridge:clients"

// Initialize-time defaults.
const (
	defaultEventBatchSize     = 10
	defaultEventFlushInterval = 60 * time.Second
	defaultEventMaxQueueSize  = 10000

	// 10-minute datafile poll (some SDK hosts shipped 15; we follow the
	// current mobile default and expose the override).
	defaultDatafilePollInterval = 600 * time.Second

	defaultDatafileHostPrefix = "https://cdn.optimizely.com"
	defaultDatafileHostSuffix = "/datafiles/%s.json"

	defaultSegmentsCacheSize    = 100
	defaultSegmentsCacheTimeout = 600 * time.Second
	defaultSegmentFetchTimeout  = 10 * time.Second
	defaultOdpEventTimeout      = 10 * time.Second
)

// Initialize builds a new engine client for the SDK key. Any prior client
// under the same key is closed first and its user contexts and
// subscriptions are dropped. The reply resolves once the engine reports
// readiness: success iff the client is valid.
func (b *Bridge) Initialize(args *wire.Arguments, reply Reply) {
	sdkKey, ok := args.SDKKey()
	if !ok || sdkKey == "" {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}

	cfg := clientConfigFromArgs(sdkKey, args)
	cfg.LogSink = b.logSink

	// Replace-on-init: drop the prior tenant state before the new client
	// is installed.
	b.mu.Lock()
	prior := b.clients[sdkKey]
	delete(b.clients, sdkKey)
	delete(b.contexts, sdkKey)
	delete(b.subs, sdkKey)
	b.mu.Unlock()

	if prior != nil {
		prior.NotificationCenter().ClearAll()
		if err := prior.Close(); err != nil {
			slog.Warn(fmt.Sprintf("%s - close prior %s: %v", clientsLogPrefix, sdkKey, err))
		}
	}

	b.factory.Create(cfg, func(c engine.Client, err error) {
		if err != nil || !c.IsValid() {
			if err != nil {
				slog.Warn(fmt.Sprintf("%s - initialize %s: %v", clientsLogPrefix, sdkKey, err))
			}
			reply(wire.Fail(wire.ReasonInvalidClient))
			return
		}
		b.mu.Lock()
		b.clients[sdkKey] = c
		b.mu.Unlock()
		reply(wire.OK())
	})
}

// CloseClient closes the engine and drops the client handle, its user
// contexts, and its subscriptions. The engine's notification handlers
// are cleared so nothing the closing engine still emits reaches the
// host.
func (b *Bridge) CloseClient(args *wire.Arguments, reply Reply) {
	sdkKey, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}

	b.mu.Lock()
	delete(b.clients, sdkKey)
	delete(b.contexts, sdkKey)
	delete(b.subs, sdkKey)
	b.mu.Unlock()

	c.NotificationCenter().ClearAll()
	if err := c.Close(); err != nil {
		slog.Warn(fmt.Sprintf("%s - close %s: %v", clientsLogPrefix, sdkKey, err))
	}
	reply(wire.OK())
}

// Activate buckets the user into the experiment and sends an impression.
func (b *Bridge) Activate(args *wire.Arguments, reply Reply) {
	_, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	experimentKey, okExp := args.ExperimentKey()
	userID, okUser := args.UserID()
	if !okExp || !okUser {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	attributes, _ := args.Attributes()

	variationKey, err := c.Activate(experimentKey, userID, attributes)
	if err != nil {
		reply(wire.Fail(err.Error()))
		return
	}
	reply(wire.Result(map[string]any{wire.KeyVariationKey: variationKey}))
}

// GetVariation buckets without sending an impression.
func (b *Bridge) GetVariation(args *wire.Arguments, reply Reply) {
	_, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	experimentKey, okExp := args.ExperimentKey()
	userID, okUser := args.UserID()
	if !okExp || !okUser {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	attributes, _ := args.Attributes()

	variationKey, err := c.GetVariation(experimentKey, userID, attributes)
	if err != nil {
		reply(wire.Fail(err.Error()))
		return
	}
	reply(wire.Result(map[string]any{wire.KeyVariationKey: variationKey}))
}

// GetForcedVariation returns the experiment-level override; an empty
// success when none is set.
func (b *Bridge) GetForcedVariation(args *wire.Arguments, reply Reply) {
	_, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	experimentKey, okExp := args.ExperimentKey()
	userID, okUser := args.UserID()
	if !okExp || !okUser {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}

	if variationKey, found := c.GetForcedVariation(experimentKey, userID); found {
		reply(wire.Result(map[string]any{wire.KeyVariationKey: variationKey}))
		return
	}
	reply(wire.OK())
}

// SetForcedVariation pins an experiment-level override. The engine's
// acceptance travels as a boolean in result.
func (b *Bridge) SetForcedVariation(args *wire.Arguments, reply Reply) {
	_, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	experimentKey, okExp := args.ExperimentKey()
	userID, okUser := args.UserID()
	if !okExp || !okUser {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	variationKey, _ := args.VariationKey()

	accepted := c.SetForcedVariation(experimentKey, userID, variationKey)
	reply(wire.Result(accepted))
}

// GetOptimizelyConfig returns the current project config snapshot with
// the raw datafile stripped.
func (b *Bridge) GetOptimizelyConfig(args *wire.Arguments, reply Reply) {
	_, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	snapshot := c.ConfigSnapshot()
	if snapshot == nil {
		reply(wire.Fail(wire.ReasonConfigNotFound))
		return
	}
	delete(snapshot, "datafile")
	reply(wire.Result(snapshot))
}

// GetVuid returns the engine's visitor unique id.
func (b *Bridge) GetVuid(args *wire.Arguments, reply Reply) {
	_, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	reply(wire.Result(map[string]any{wire.KeyVuid: c.Vuid()}))
}

// SendOdpEvent enqueues an event on the ODP pipeline.
func (b *Bridge) SendOdpEvent(args *wire.Arguments, reply Reply) {
	_, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}
	action, okAction := args.OdpAction()
	if !okAction || strings.TrimSpace(action) == "" {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	eventType, _ := args.OdpType()
	identifiers, _ := args.OdpIdentifiers()
	data, _ := args.OdpData()

	if err := c.SendOdpEvent(eventType, action, identifiers, data); err != nil {
		reply(wire.Fail(err.Error()))
		return
	}
	reply(wire.OK())
}

// clientConfigFromArgs reads initialize-time settings, applying the
// documented defaults for anything absent.
func clientConfigFromArgs(sdkKey string, args *wire.Arguments) engine.ClientConfig {
	cfg := engine.ClientConfig{
		SDKKey:               sdkKey,
		EventBatchSize:       defaultEventBatchSize,
		EventFlushInterval:   defaultEventFlushInterval,
		EventMaxQueueSize:    defaultEventMaxQueueSize,
		DatafilePollInterval: defaultDatafilePollInterval,
		DatafileHostPrefix:   defaultDatafileHostPrefix,
		DatafileHostSuffix:   defaultDatafileHostSuffix,
		DefaultDecideOptions: args.DecideOptions(),
		DefaultLogLevel:      engine.LogInfo,
		SegmentsCacheSize:    defaultSegmentsCacheSize,
		SegmentsCacheTimeout: defaultSegmentsCacheTimeout,
		SegmentFetchTimeout:  defaultSegmentFetchTimeout,
		OdpEventTimeout:      defaultOdpEventTimeout,
	}

	if v, ok := args.EventBatchSize(); ok {
		cfg.EventBatchSize = v
	}
	if v, ok := args.EventTimeInterval(); ok {
		cfg.EventFlushInterval = time.Duration(v) * time.Second
	}
	if v, ok := args.EventMaxQueueSize(); ok {
		cfg.EventMaxQueueSize = v
	}
	if v, ok := args.DatafilePollInterval(); ok {
		cfg.DatafilePollInterval = time.Duration(v) * time.Second
	}
	if v, ok := args.DatafileHostPrefix(); ok {
		cfg.DatafileHostPrefix = v
	}
	if v, ok := args.DatafileHostSuffix(); ok {
		cfg.DatafileHostSuffix = v
	}
	if v, ok := args.DefaultLogLevel(); ok {
		cfg.DefaultLogLevel = engine.LevelFromCode(v)
	}

	settings := args.SdkSettings()
	if v, ok := settings.SegmentsCacheSize(); ok {
		cfg.SegmentsCacheSize = v
	}
	if v, ok := settings.SegmentsCacheTimeout(); ok {
		cfg.SegmentsCacheTimeout = time.Duration(v) * time.Second
	}
	if v, ok := settings.SegmentFetchTimeout(); ok {
		cfg.SegmentFetchTimeout = time.Duration(v) * time.Second
	}
	if v, ok := settings.OdpEventTimeout(); ok {
		cfg.OdpEventTimeout = time.Duration(v) * time.Second
	}
	if v, ok := settings.DisableOdp(); ok {
		cfg.DisableOdp = v
	}
	return cfg
}
