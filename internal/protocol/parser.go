package protocol

import (
	"encoding/json"
	"fmt"
)

// MaxMessageSize bounds a single encoded message.
const MaxMessageSize = 64 * 1024

// Encode validates m and marshals it.
func Encode(m *Message) ([]byte, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", m.Op, err)
	}
	return data, nil
}

// Decode parses and validates one message.
func Decode(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes (max %d)", len(data), MaxMessageSize)
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that m carries the fields its op requires.
func Validate(m *Message) error {
	if m == nil {
		return fmt.Errorf("nil message")
	}
	if !m.Op.valid() {
		return fmt.Errorf("unknown op %q", m.Op)
	}
	if m.Op != OpChanged && m.ID == "" {
		return fmt.Errorf("%s: missing id", m.Op)
	}
	if m.Board < 0 {
		return fmt.Errorf("%s: negative board %d", m.Op, m.Board)
	}

	switch m.Op {
	case OpSetColor, OpColor, OpChanged:
		if m.Color == nil {
			return fmt.Errorf("%s: missing color", m.Op)
		}
	case OpError:
		if m.Error == "" {
			return fmt.Errorf("error reply without message")
		}
	}
	return nil
}
