package wire

// Arguments is a typed view over one untyped argument map. Accessors
// return the zero value with ok=false when a key is missing or holds a
// value of the wrong type; callers decide whether absence is a
// precondition violation.
type Arguments struct {
	m map[string]any
}

// NewArguments wraps an argument map. A nil map yields a view where every
// accessor reports absence.
func NewArguments(m map[string]any) *Arguments {
	return &Arguments{m: m}
}

func (a *Arguments) str(key string) (string, bool) {
	v, ok := a.m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// integer accepts both native ints and JSON float64s with an integral
// value.
func (a *Arguments) integer(key string) (int, bool) {
	switch v := a.m[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func (a *Arguments) boolean(key string) (bool, bool) {
	v, ok := a.m[key].(bool)
	return v, ok
}

func (a *Arguments) strMap(key string) (map[string]any, bool) {
	v, ok := a.m[key].(map[string]any)
	return v, ok
}

func (a *Arguments) strList(key string) ([]string, bool) {
	switch v := a.m[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func (a *Arguments) intList(key string) ([]int, bool) {
	switch v := a.m[key].(type) {
	case []int:
		return v, true
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// SDKKey returns the tenant key.
func (a *Arguments) SDKKey() (string, bool) { return a.str(KeySDKKey) }

// UserID returns the user id.
func (a *Arguments) UserID() (string, bool) { return a.str(KeyUserID) }

// UserContextID returns the opaque user-context handle.
func (a *Arguments) UserContextID() (string, bool) { return a.str(KeyUserContextID) }

// Attributes returns the attribute map.
func (a *Arguments) Attributes() (map[string]any, bool) { return a.strMap(KeyAttributes) }

// EventKey returns the conversion event key.
func (a *Arguments) EventKey() (string, bool) { return a.str(KeyEventKey) }

// EventTags returns the event tag map.
func (a *Arguments) EventTags() (map[string]any, bool) { return a.strMap(KeyEventTags) }

// FlagKey returns the flag key.
func (a *Arguments) FlagKey() (string, bool) { return a.str(KeyFlagKey) }

// RuleKey returns the rule key.
func (a *Arguments) RuleKey() (string, bool) { return a.str(KeyRuleKey) }

// VariationKey returns the variation key.
func (a *Arguments) VariationKey() (string, bool) { return a.str(KeyVariationKey) }

// ExperimentKey returns the experiment key.
func (a *Arguments) ExperimentKey() (string, bool) { return a.str(KeyExperimentKey) }

// DecideKeys returns the flag keys to evaluate.
func (a *Arguments) DecideKeys() ([]string, bool) { return a.strList(KeyDecideKeys) }

// NotificationID returns the caller-chosen external callback id.
func (a *Arguments) NotificationID() (int, bool) { return a.integer(KeyNotificationID) }

// NotificationType returns the notification kind token.
func (a *Arguments) NotificationType() (string, bool) { return a.str(KeyNotificationType) }

// CallbackIDs returns the external ids supplied to a clear-by-kind call.
func (a *Arguments) CallbackIDs() ([]int, bool) { return a.intList(KeyCallbackIDs) }

// EventBatchSize returns the event batch size override.
func (a *Arguments) EventBatchSize() (int, bool) { return a.integer(KeyEventBatchSize) }

// EventTimeInterval returns the event flush interval override in seconds.
func (a *Arguments) EventTimeInterval() (int, bool) { return a.integer(KeyEventTimeInterval) }

// EventMaxQueueSize returns the event queue bound override.
func (a *Arguments) EventMaxQueueSize() (int, bool) { return a.integer(KeyEventMaxQueueSize) }

// DatafilePollInterval returns the datafile download interval override in
// seconds.
func (a *Arguments) DatafilePollInterval() (int, bool) { return a.integer(KeyDatafilePollInterval) }

// DatafileHostPrefix returns the datafile host override.
func (a *Arguments) DatafileHostPrefix() (string, bool) { return a.str(KeyDatafileHostPrefix) }

// DatafileHostSuffix returns the datafile path suffix override.
func (a *Arguments) DatafileHostSuffix() (string, bool) { return a.str(KeyDatafileHostSuffix) }

// DefaultLogLevel returns the host-requested root log level code.
func (a *Arguments) DefaultLogLevel() (int, bool) { return a.integer(KeyDefaultLogLevel) }

// QualifiedSegments returns the segment list.
func (a *Arguments) QualifiedSegments() ([]string, bool) { return a.strList(KeyQualifiedSegments) }

// Segment returns a single segment name.
func (a *Arguments) Segment() (string, bool) { return a.str(KeySegment) }

// OdpAction returns the ODP event action.
func (a *Arguments) OdpAction() (string, bool) { return a.str(KeyAction) }

// OdpType returns the ODP event type.
func (a *Arguments) OdpType() (string, bool) { return a.str(KeyNotificationType) }

// OdpIdentifiers returns the ODP identifier map.
func (a *Arguments) OdpIdentifiers() (map[string]string, bool) {
	m, ok := a.strMap(KeyIdentifiers)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}

// OdpData returns the ODP event data map.
func (a *Arguments) OdpData() (map[string]any, bool) { return a.strMap(KeyData) }

// SdkSettings returns a view over the nested optimizelySdkSettings map.
// Absence yields a view where every accessor reports absence, so callers
// can read defaults uniformly.
func (a *Arguments) SdkSettings() *Arguments {
	m, _ := a.strMap(KeySdkSettings)
	return NewArguments(m)
}

// SegmentsCacheSize returns the ODP segments cache size.
func (a *Arguments) SegmentsCacheSize() (int, bool) { return a.integer(KeySegmentsCacheSize) }

// SegmentsCacheTimeout returns the ODP segments cache timeout in seconds.
func (a *Arguments) SegmentsCacheTimeout() (int, bool) { return a.integer(KeySegmentsCacheTimeout) }

// SegmentFetchTimeout returns the segment fetch timeout in seconds.
func (a *Arguments) SegmentFetchTimeout() (int, bool) { return a.integer(KeySegmentFetchTimeout) }

// OdpEventTimeout returns the ODP event timeout in seconds.
func (a *Arguments) OdpEventTimeout() (int, bool) { return a.integer(KeyOdpEventTimeout) }

// DisableOdp reports whether ODP is disabled.
func (a *Arguments) DisableOdp() (bool, bool) { return a.boolean(KeyDisableOdp) }
