package commsutil

// Channel subjects used by the bridge. The request channel carries host
// method calls with a one-shot reply; the callback and logger channels
// carry outbound invocations from the UI dispatcher.
const (
	SubjectRequest  = "optimizely_flutter_sdk"
	SubjectCallback = "optimizely_flutter_sdk.callback"
	SubjectLogger   = "optimizely_flutter_sdk_logger"
)

// MethodLog is the outbound method name on the logger channel.
const MethodLog = "log"

// CallbackMethod returns the host callback method name for a notification
// kind (e.g. "decisionCallbackListener").
func CallbackMethod(kind string) string {
	return kind + "CallbackListener"
}
