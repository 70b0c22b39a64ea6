package mapper

import (
	"strconv"
	"strings"
	"time"

	"ticketdesk.app/portal/internal/model"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp converts a heterogeneous external timestamp into a concrete
// time. Numbers are epoch seconds; strings are tried as calendar timestamps
// first and as numeric epoch-seconds strings second. Anything unparseable is
// nil, never an error.
func ParseTimestamp(value any) *time.Time {
	switch v := value.(type) {
	case float64:
		t := time.Unix(int64(v), 0).UTC()
		return &t
	case int64:
		t := time.Unix(v, 0).UTC()
		return &t
	case int:
		t := time.Unix(int64(v), 0).UTC()
		return &t
	case string:
		if v == "" {
			return nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				t = t.UTC()
				return &t
			}
		}
		if sec, err := strconv.ParseFloat(v, 64); err == nil {
			t := time.Unix(int64(sec), 0).UTC()
			return &t
		}
		return nil
	default:
		return nil
	}
}

// MapStatus maps an external status tag onto the conversation status enum.
// Unrecognized or non-string input yields nil; callers fall back to the
// currently stored status, never to a default.
func MapStatus(value any) *model.Status {
	s, ok := value.(string)
	if !ok {
		return nil
	}

	var status model.Status
	switch strings.ToLower(s) {
	case "open":
		status = model.StatusOpen
	case "pending":
		status = model.StatusPending
	case "resolved":
		status = model.StatusResolved
	case "snoozed":
		status = model.StatusSnoozed
	default:
		return nil
	}
	return &status
}

// ResolveStatus picks the effective status of a sync payload: the payload's
// own status field wins, then the nested conversation's, then the currently
// stored status.
func ResolveStatus(payload Record, current model.Status) model.Status {
	if status := MapStatus(payload["status"]); status != nil {
		return *status
	}
	if nested := payload.Rec("conversation"); nested != nil {
		if status := MapStatus(nested["status"]); status != nil {
			return *status
		}
	}
	return current
}

// MapMessageType accepts Chatwoot's integer codes or string tags. Every
// message must carry a type, so unknown input maps to SYSTEM.
func MapMessageType(value any) model.MessageType {
	switch v := value.(type) {
	case string:
		switch v {
		case "incoming":
			return model.MessageTypeIncoming
		case "outgoing":
			return model.MessageTypeOutgoing
		case "activity":
			return model.MessageTypeActivity
		}
	case float64:
		return messageTypeFromCode(int64(v))
	case int:
		return messageTypeFromCode(int64(v))
	case int64:
		return messageTypeFromCode(v)
	}
	return model.MessageTypeSystem
}

func messageTypeFromCode(code int64) model.MessageType {
	switch code {
	case 0:
		return model.MessageTypeIncoming
	case 1:
		return model.MessageTypeOutgoing
	case 2:
		return model.MessageTypeActivity
	default:
		return model.MessageTypeSystem
	}
}
