package mapper

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is a narrow view over untyped JSON payloads. All traversal of raw
// webhook/cable bodies goes through it and the typed accessor helpers below,
// keeping the boundary between external shape and internal model explicit.
type Record map[string]any

// AsRecord coerces an arbitrary decoded JSON value into a Record.
// Non-objects yield an empty Record, never nil.
func AsRecord(value any) Record {
	switch v := value.(type) {
	case Record:
		return v
	case map[string]any:
		return Record(v)
	default:
		return Record{}
	}
}

// FromJSON decodes raw JSON into a Record. Invalid or non-object input
// yields an empty Record.
func FromJSON(raw json.RawMessage) Record {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Record{}
	}
	return Record(m)
}

// Rec returns the nested object at key, empty when absent or not an object.
func (r Record) Rec(key string) Record {
	return AsRecord(r[key])
}

// Has reports structural presence of a key, regardless of its value.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// NumericID parses a value that is a number or a numeric-looking string into
// an int64. Anything else yields nil: non-numeric ids are unusable as dedup
// keys and are treated as absent.
func NumericID(value any) *int64 {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		id := int64(v)
		return &id
	case int64:
		return &v
	case int:
		id := int64(v)
		return &id
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		id := int64(f)
		return &id
	default:
		return nil
	}
}

// OptionalString returns a trimmed non-empty string, or nil.
func OptionalString(value any) *string {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ConversationID extracts the external conversation id from a payload,
// trying the top-level id, the nested conversation id, then conversation_id.
func ConversationID(payload Record) *int64 {
	if id := NumericID(payload["id"]); id != nil {
		return id
	}
	if id := NumericID(payload.Rec("conversation")["id"]); id != nil {
		return id
	}
	return NumericID(payload["conversation_id"])
}
