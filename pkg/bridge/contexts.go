package bridge

import (
	"strings"

	"github.com/google/uuid"

	"github.com/morezero/flagbridge/pkg/engine"
	"github.com/morezero/flagbridge/pkg/wire"
)

// CreateUserContext builds a native user context and registers it under a
// freshly generated opaque id. userId and attributes are both optional;
// engines that support anonymous contexts accept the nil userId.
func (b *Bridge) CreateUserContext(args *wire.Arguments, reply Reply) {
	sdkKey, c, ok := b.requireClient(args, reply)
	if !ok {
		return
	}

	var userID *string
	if v, present := args.UserID(); present {
		userID = &v
	}
	attributes, _ := args.Attributes()

	uc, err := c.CreateUserContext(userID, attributes)
	if err != nil {
		reply(wire.Fail(err.Error()))
		return
	}
	if uc == nil {
		reply(wire.Fail(wire.ReasonUserContextNotCreated))
		return
	}

	// The id is a random token rather than a counter so hosts cannot
	// enumerate contexts.
	ucid := uuid.NewString()

	b.mu.Lock()
	if b.contexts[sdkKey] == nil {
		b.contexts[sdkKey] = make(map[string]engine.UserContext)
	}
	b.contexts[sdkKey][ucid] = uc
	b.mu.Unlock()

	reply(wire.Result(map[string]any{wire.KeyUserContextID: ucid}))
}

// GetUserID returns the context's user id.
func (b *Bridge) GetUserID(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	reply(wire.Result(map[string]any{wire.KeyUserID: uc.UserID()}))
}

// GetAttributes returns the context's current attribute map.
func (b *Bridge) GetAttributes(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	reply(wire.Result(map[string]any{wire.KeyAttributes: uc.Attributes()}))
}

// SetAttributes merges the supplied attributes into the context and
// returns the resulting map.
func (b *Bridge) SetAttributes(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	attributes, present := args.Attributes()
	if !present {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	for k, v := range attributes {
		uc.SetAttribute(k, v)
	}
	reply(wire.Result(uc.Attributes()))
}

// TrackEvent sends a conversion event. Engine errors (unknown event
// types) are relayed verbatim.
func (b *Bridge) TrackEvent(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	eventKey, present := args.EventKey()
	if !present || strings.TrimSpace(eventKey) == "" {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	eventTags, _ := args.EventTags()
	if eventTags == nil {
		eventTags = map[string]any{}
	}

	if err := uc.TrackEvent(eventKey, eventTags); err != nil {
		reply(wire.Fail(err.Error()))
		return
	}
	reply(wire.OK())
}

// Decide evaluates the requested flag keys, or every flag when the key
// list is empty. The result maps flag key to a decision record.
func (b *Bridge) Decide(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	keys, _ := args.DecideKeys()
	options := args.DecideOptions()

	var decisions map[string]engine.Decision
	if len(keys) > 0 {
		decisions = uc.Decide(keys, options)
	} else {
		decisions = uc.DecideAll(options)
	}

	result := make(map[string]any, len(decisions))
	for key, d := range decisions {
		result[key] = decisionRecord(d)
	}
	reply(wire.Result(result))
}

// SetForcedDecision pins a flag (optionally per rule) to a variation.
func (b *Bridge) SetForcedDecision(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	flagKey, okFlag := args.FlagKey()
	variationKey, okVar := args.VariationKey()
	if !okFlag || !okVar {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	ruleKey, _ := args.RuleKey()

	uc.SetForcedDecision(flagKey, ruleKey, variationKey)
	reply(wire.OK())
}

// GetForcedDecision returns the pinned variation for a decision context;
// an empty success when none is set.
func (b *Bridge) GetForcedDecision(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	flagKey, okFlag := args.FlagKey()
	if !okFlag {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	ruleKey, _ := args.RuleKey()

	if variationKey, found := uc.GetForcedDecision(flagKey, ruleKey); found {
		reply(wire.Result(map[string]any{wire.KeyVariationKey: variationKey}))
		return
	}
	reply(wire.OK())
}

// RemoveForcedDecision clears the override for one decision context.
func (b *Bridge) RemoveForcedDecision(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	flagKey, okFlag := args.FlagKey()
	if !okFlag {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	ruleKey, _ := args.RuleKey()

	uc.RemoveForcedDecision(flagKey, ruleKey)
	reply(wire.OK())
}

// RemoveAllForcedDecisions clears every override on the context.
func (b *Bridge) RemoveAllForcedDecisions(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	uc.RemoveAllForcedDecisions()
	reply(wire.OK())
}

// GetQualifiedSegments returns the segments the user is known to belong
// to.
func (b *Bridge) GetQualifiedSegments(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	segments := uc.QualifiedSegments()
	if segments == nil {
		reply(wire.Fail(wire.ReasonQualifiedSegsNotFound))
		return
	}
	reply(wire.Result(map[string]any{wire.KeyQualifiedSegments: segments}))
}

// SetQualifiedSegments replaces the context's qualified segments.
func (b *Bridge) SetQualifiedSegments(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	segments, present := args.QualifiedSegments()
	if !present {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	uc.SetQualifiedSegments(segments)
	reply(wire.OK())
}

// IsQualifiedFor reports membership of one segment as a boolean result.
func (b *Bridge) IsQualifiedFor(args *wire.Arguments, reply Reply) {
	_, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	segment, present := args.Segment()
	if !present {
		reply(wire.Fail(wire.ReasonInvalidParameters))
		return
	}
	reply(wire.Result(uc.IsQualifiedFor(segment)))
}

// FetchQualifiedSegments starts an asynchronous segment fetch. The reply
// resolves with the fetch outcome once the engine completes; when the
// owning client was closed meanwhile, the reply still resolves, as a
// client-not-found failure.
func (b *Bridge) FetchQualifiedSegments(args *wire.Arguments, reply Reply) {
	sdkKey, uc, ok := b.requireContext(args, reply)
	if !ok {
		return
	}
	options := args.SegmentOptions()

	uc.FetchQualifiedSegments(options, func(success bool) {
		if b.client(sdkKey) == nil {
			reply(wire.Fail(wire.ReasonClientNotFound))
			return
		}
		reply(wire.Result(success))
	})
}

// decisionRecord flattens one engine decision into its wire shape.
func decisionRecord(d engine.Decision) map[string]any {
	return map[string]any{
		wire.KeyVariationKey: d.VariationKey,
		"enabled":            d.Enabled,
		"variables":          d.Variables,
		wire.KeyRuleKey:      d.RuleKey,
		wire.KeyFlagKey:      d.FlagKey,
		"userContext": map[string]any{
			wire.KeyUserID:     d.UserID,
			wire.KeyAttributes: d.Attributes,
		},
		"reasons": d.Reasons,
	}
}
