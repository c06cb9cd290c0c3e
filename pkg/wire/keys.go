// Package wire defines the message contract between the host runtime and
// the bridge: argument extraction from untyped envelopes, option token
// mapping, and the uniform response envelope.
package wire

// Recognized argument keys (camelCase on the wire).
const (
	KeySDKKey        = "sdkKey"
	KeyUserID        = "userId"
	KeyUserContextID = "userContextId"
	KeyAttributes    = "attributes"
	KeyEventKey      = "eventKey"
	KeyEventTags     = "eventTags"
	KeyFlagKey       = "flagKey"
	KeyRuleKey       = "ruleKey"
	KeyVariationKey  = "variationKey"
	KeyExperimentKey = "experimentKey"
	KeyDecideKeys    = "keys"
	KeyDecideOptions = "optimizelyDecideOption"
	KeySegmentOpts   = "optimizelySegmentOption"

	KeyNotificationID   = "id"
	KeyNotificationType = "type"
	KeyCallbackIDs      = "callbackIds"
	KeyPayload          = "payload"

	KeyEventBatchSize       = "eventBatchSize"
	KeyEventTimeInterval    = "eventTimeInterval"
	KeyEventMaxQueueSize    = "eventMaxQueueSize"
	KeyDatafilePollInterval = "datafilePeriodicDownloadInterval"
	KeyDatafileHostPrefix   = "datafileHostPrefix"
	KeyDatafileHostSuffix   = "datafileHostSuffix"
	KeyDefaultLogLevel      = "defaultLogLevel"

	KeyQualifiedSegments = "qualifiedSegments"
	KeySegment           = "segment"
	KeyVuid              = "vuid"
	KeyAction            = "action"
	KeyIdentifiers       = "identifiers"
	KeyData              = "data"

	KeySdkSettings          = "optimizelySdkSettings"
	KeySegmentsCacheSize    = "segmentsCacheSize"
	KeySegmentsCacheTimeout = "segmentsCacheTimeoutInSecs"
	KeySegmentFetchTimeout  = "timeoutForSegmentFetchInSecs"
	KeyOdpEventTimeout      = "timeoutForOdpEventInSecs"
	KeyDisableOdp           = "disableOdp"
)

// Recognized method names.
const (
	MethodInitialize                    = "initialize"
	MethodClose                         = "close"
	MethodActivate                      = "activate"
	MethodGetVariation                  = "getVariation"
	MethodGetForcedVariation            = "getForcedVariation"
	MethodSetForcedVariation            = "setForcedVariation"
	MethodCreateUserContext             = "createUserContext"
	MethodGetUserID                     = "getUserId"
	MethodGetAttributes                 = "getAttributes"
	MethodSetAttributes                 = "setAttributes"
	MethodTrackEvent                    = "trackEvent"
	MethodDecide                        = "decide"
	MethodDecideAsync                   = "decideAsync"
	MethodSetForcedDecision             = "setForcedDecision"
	MethodGetForcedDecision             = "getForcedDecision"
	MethodRemoveForcedDecision          = "removeForcedDecision"
	MethodRemoveAllForcedDecisions      = "removeAllForcedDecisions"
	MethodGetOptimizelyConfig           = "getOptimizelyConfig"
	MethodAddNotificationListener       = "addNotificationListener"
	MethodRemoveNotificationListener    = "removeNotificationListener"
	MethodClearAllNotificationListeners = "clearAllNotificationListeners"
	MethodClearNotificationListeners    = "clearNotificationListeners"
	MethodGetQualifiedSegments          = "getQualifiedSegments"
	MethodSetQualifiedSegments          = "setQualifiedSegments"
	MethodIsQualifiedFor                = "isQualifiedFor"
	MethodGetVuid                       = "getVuid"
	MethodSendOdpEvent                  = "sendOdpEvent"
	MethodFetchQualifiedSegments        = "fetchQualifiedSegments"
)
