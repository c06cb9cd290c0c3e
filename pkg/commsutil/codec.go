package commsutil

import (
	"encoding/json"
	"fmt"
)

// EncodePayload serializes a value for publishing on a COMMS subject.
func EncodePayload(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("commsutil: failed to encode payload: %w", err)
	}
	return data, nil
}

// DecodePayload deserializes a COMMS message body into the given value.
func DecodePayload(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("commsutil: failed to decode payload: %w", err)
	}
	return nil
}
