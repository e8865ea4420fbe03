package pipeline

import (
	"encoding/json"
	"fmt"
)

// EncodeStageData serializes stage data as a JSON object keyed by stage tag.
func EncodeStageData(data map[Stage]Payload) ([]byte, error) {
	if len(data) == 0 {
		return []byte("{}"), nil
	}
	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode stage data: %w", err)
	}
	return out, nil
}

// DecodeStageData restores stage data, decoding each value as the variant
// registered for its key.
func DecodeStageData(raw []byte) (map[Stage]Payload, error) {
	data := map[Stage]Payload{}
	if len(raw) == 0 {
		return data, nil
	}
	var fields map[Stage]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode stage data: %w", err)
	}
	for stage, field := range fields {
		payload, err := DecodePayload(stage, field)
		if err != nil {
			return nil, err
		}
		data[stage] = payload
	}
	return data, nil
}
