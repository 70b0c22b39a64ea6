package mapper

import "time"

// AssigneeRef is the assignee extracted from a status/assignee payload.
// Both fields nil means the conversation has no assigned agent.
type AssigneeRef struct {
	ID   *int64
	Name *string
}

// assigneeCandidates lists, in priority order, where Chatwoot payloads have
// been observed to carry the assignee object. The first structurally present
// candidate wins even when its own fields are null.
func assigneeCandidate(root Record) Record {
	conversation := root.Rec("conversation")
	candidates := []struct {
		rec Record
		key string
	}{
		{root.Rec("meta"), "assignee"},
		{conversation.Rec("meta"), "assignee"},
		{root, "assignee"},
		{conversation, "assignee"},
	}

	for _, c := range candidates {
		if value, ok := c.rec[c.key]; ok && value != nil {
			return AsRecord(value)
		}
	}
	return Record{}
}

// ResolveAssignee extracts the assignee id and name from a raw payload,
// falling back to the flat assignee_id/assignee_name fields when the
// assignee object carries none.
func ResolveAssignee(root Record) AssigneeRef {
	conversation := root.Rec("conversation")
	assignee := assigneeCandidate(root)

	return AssigneeRef{
		ID:   NumericID(firstPresent(assignee["id"], root["assignee_id"], conversation["assignee_id"])),
		Name: OptionalString(firstPresent(assignee["name"], root["assignee_name"], conversation["assignee_name"])),
	}
}

// ResolveEventTimestamp derives the point in the timeline a change belongs
// to: timestamp, then updated_at, then conversation.updated_at, then
// created_at, falling back to now only when none parse. Out-of-order
// deliveries still land their event at the semantically correct moment.
func ResolveEventTimestamp(root Record) time.Time {
	conversation := root.Rec("conversation")

	if t := ParseTimestamp(root["timestamp"]); t != nil {
		return *t
	}
	if t := ParseTimestamp(root["updated_at"]); t != nil {
		return *t
	}
	if t := ParseTimestamp(conversation["updated_at"]); t != nil {
		return *t
	}
	if t := ParseTimestamp(root["created_at"]); t != nil {
		return *t
	}
	return time.Now().UTC()
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
