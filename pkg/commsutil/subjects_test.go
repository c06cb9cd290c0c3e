package commsutil

import "testing"

func TestCallbackMethod(t *testing.T) {
	tests := []struct {
		name string
		kind string
		want string
	}{
		{"decision", "decision", "decisionCallbackListener"},
		{"activate", "activate", "activateCallbackListener"},
		{"track", "track", "trackCallbackListener"},
		{"logEvent", "logEvent", "logEventCallbackListener"},
		{"projectConfigUpdate", "projectConfigUpdate", "projectConfigUpdateCallbackListener"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CallbackMethod(tt.kind)
			if got != tt.want {
				t.Errorf("CallbackMethod(%q) = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}

func TestSubjects(t *testing.T) {
	if SubjectRequest != "optimizely_flutter_sdk" {
		t.Errorf("SubjectRequest = %q, want optimizely_flutter_sdk", SubjectRequest)
	}
	if SubjectLogger != "optimizely_flutter_sdk_logger" {
		t.Errorf("SubjectLogger = %q, want optimizely_flutter_sdk_logger", SubjectLogger)
	}
}
