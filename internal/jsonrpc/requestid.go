package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

var nullJSON = []byte("null")

// RequestID represents a JSON-RPC ID that can be a string, a number or null.
type RequestID struct {
	value any
}

// NewRequestID creates a new RequestID from a string or number. Any other
// value produces a null ID.
func NewRequestID(value any) *RequestID {
	switch v := value.(type) {
	case string, int64, float64:
		return &RequestID{value: v}
	case int:
		return &RequestID{value: int64(v)}
	case int32:
		return &RequestID{value: int64(v)}
	case uint32:
		return &RequestID{value: int64(v)}
	case float32:
		return &RequestID{value: float64(v)}
	default:
		return &RequestID{value: nil}
	}
}

// String returns the string representation of the ID, or "" for a null ID.
func (id *RequestID) String() string {
	if id == nil || id.value == nil {
		return ""
	}

	switch v := id.value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		panic("unreachable: RequestID contains unsupported type")
	}
}

// Value returns the underlying value: string, int64, float64 or nil.
func (id *RequestID) Value() any {
	if id == nil {
		return nil
	}
	return id.value
}

// IsNil returns true if the ID is absent or null.
func (id *RequestID) IsNil() bool {
	if id == nil {
		return true
	}

	return id.value == nil
}

// MarshalJSON implements json.Marshaler. A null ID encodes as JSON null.
func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id == nil || id.value == nil {
		return nullJSON, nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *RequestID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("JSON-RPC ID must be a string, number or null")
	}

	switch data[0] {
	case 'n':
		if !bytes.Equal(data, nullJSON) {
			break
		}
		id.value = nil
		return nil
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("invalid JSON-RPC ID: %w", err)
		}
		id.value = str
		return nil
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			break
		}
		if n, err := num.Int64(); err == nil {
			id.value = n
			return nil
		}
		f, err := num.Float64()
		if err != nil {
			return fmt.Errorf("invalid JSON-RPC ID: %w", err)
		}
		id.value = f
		return nil
	}

	return fmt.Errorf("JSON-RPC ID must be a string, number or null, got: %s", string(data))
}
