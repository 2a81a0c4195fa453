package server

import (
	"encoding/json"
	"fmt"
)

// jsonCodec serializes plain Go messages. It replaces connect's protojson
// codec under the same name, so clients speak application/json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal(%T) > %w", msg, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("json.Unmarshal(%T) > %w", msg, err)
	}
	return nil
}
