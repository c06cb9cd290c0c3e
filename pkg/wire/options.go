package wire

import "github.com/morezero/flagbridge/pkg/engine"

// Decide option tokens.
const (
	OptDisableDecisionEvent     = "disableDecisionEvent"
	OptEnabledFlagsOnly         = "enabledFlagsOnly"
	OptIgnoreUserProfileService = "ignoreUserProfileService"
	OptIncludeReasons           = "includeReasons"
	OptExcludeVariables         = "excludeVariables"
)

// Segment option tokens.
const (
	OptIgnoreCache = "ignoreCache"
	OptResetCache  = "resetCache"
)

// DecideOptions maps the optimizelyDecideOption token list to engine
// options. Unknown tokens are skipped so that newer hosts keep working
// against older engines. An absent or empty list yields nil, which leaves
// the engine on its default behavior.
func (a *Arguments) DecideOptions() []engine.DecideOption {
	tokens, ok := a.strList(KeyDecideOptions)
	if !ok {
		return nil
	}
	return mapDecideOptions(tokens)
}

// SegmentOptions maps the optimizelySegmentOption token list to engine
// options with the same tolerance as DecideOptions.
func (a *Arguments) SegmentOptions() []engine.SegmentOption {
	tokens, ok := a.strList(KeySegmentOpts)
	if !ok {
		return nil
	}
	var out []engine.SegmentOption
	for _, t := range tokens {
		switch t {
		case OptIgnoreCache:
			out = append(out, engine.IgnoreCache)
		case OptResetCache:
			out = append(out, engine.ResetCache)
		}
	}
	return out
}

func mapDecideOptions(tokens []string) []engine.DecideOption {
	var out []engine.DecideOption
	for _, t := range tokens {
		switch t {
		case OptDisableDecisionEvent:
			out = append(out, engine.DisableDecisionEvent)
		case OptEnabledFlagsOnly:
			out = append(out, engine.EnabledFlagsOnly)
		case OptIgnoreUserProfileService:
			out = append(out, engine.IgnoreUserProfileService)
		case OptIncludeReasons:
			out = append(out, engine.IncludeReasons)
		case OptExcludeVariables:
			out = append(out, engine.ExcludeVariables)
		}
	}
	return out
}
