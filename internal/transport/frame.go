package transport

import (
	"encoding/json"
	"fmt"
)

// Frame is the gateway envelope every message travels in
type Frame struct {
	// Op is the gateway opcode
	Op int `json:"op"`

	// D is the opcode or event specific payload, decoded by the receiver
	D json.RawMessage `json:"d"`

	// S is the dispatch sequence number, set only on op 0
	S *int64 `json:"s,omitempty"`

	// T is the dispatch event name, set only on op 0
	T string `json:"t,omitempty"`
}

// NewFrame builds an outbound frame with data marshaled into D
func NewFrame(op int, data any) (*Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling op %d payload: %w", op, err)
	}

	return &Frame{Op: op, D: raw}, nil
}

// Decode unmarshals D into v
func (f *Frame) Decode(v any) error {
	if len(f.D) == 0 {
		return &ProtocolError{Payload: f.D, Err: fmt.Errorf("op %d %s has no payload", f.Op, f.T)}
	}

	if err := json.Unmarshal(f.D, v); err != nil {
		return &ProtocolError{Payload: f.D, Err: err}
	}
	return nil
}
