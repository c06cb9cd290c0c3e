package commsutil

import (
	"testing"
)

const codecTestPrefix = "commsutil:codec_test"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := map[string]interface{}{
		"method": "decide",
		"args":   map[string]interface{}{"sdkKey": "sdk-1"},
	}

	data, err := EncodePayload(in)
	if err != nil {
		t.Fatalf("%s - encode failed: %v", codecTestPrefix, err)
	}

	var out map[string]interface{}
	if err := DecodePayload(data, &out); err != nil {
		t.Fatalf("%s - decode failed: %v", codecTestPrefix, err)
	}
	if out["method"] != "decide" {
		t.Errorf("%s - expected method decide, got %v", codecTestPrefix, out["method"])
	}
}

func TestEncodePayload_Unsupported(t *testing.T) {
	if _, err := EncodePayload(make(chan int)); err == nil {
		t.Errorf("%s - expected error encoding a channel", codecTestPrefix)
	}
}

func TestDecodePayload_InvalidJSON(t *testing.T) {
	var out map[string]interface{}
	if err := DecodePayload([]byte("{not json"), &out); err == nil {
		t.Errorf("%s - expected error decoding invalid JSON", codecTestPrefix)
	}
}
