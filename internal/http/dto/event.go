package dto

import (
	"encoding/json"
	"time"

	"ticketdesk.app/portal/internal/model"
)

// SyncEventRequest is the envelope the realtime listener re-posts after
// receiving a cable frame. Data is kept raw so the sync pipeline can apply
// the same normalization it applies to webhooks; status events may carry no
// data at all.
type SyncEventRequest struct {
	Event string          `json:"event" binding:"required"`
	Data  json.RawMessage `json:"data"`
}

type TimelineEventResponse struct {
	ID          int64     `json:"id,string"`
	Event       string    `json:"event"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type ConversationTimelineResponse struct {
	ID                int64                   `json:"id,string"`
	Status            string                  `json:"status"`
	AssignedAgentName *string                 `json:"assigned_agent_name,omitempty"`
	ResolvedAt        *time.Time              `json:"resolved_at,omitempty"`
	ReopenedAt        *time.Time              `json:"reopened_at,omitempty"`
	Events            []TimelineEventResponse `json:"events"`
}

func ToTimelineResponse(conv *model.Conversation, events []model.Event) *ConversationTimelineResponse {
	resp := &ConversationTimelineResponse{
		ID:                conv.ID,
		Status:            string(conv.Status),
		AssignedAgentName: conv.AssignedAgentName,
		ResolvedAt:        conv.ResolvedAt,
		ReopenedAt:        conv.ReopenedAt,
		Events:            make([]TimelineEventResponse, 0, len(events)),
	}
	for _, event := range events {
		resp.Events = append(resp.Events, TimelineEventResponse{
			ID:          event.ID,
			Event:       event.Event,
			Title:       event.Title,
			Description: event.Description,
			OccurredAt:  event.OccurredAt,
		})
	}
	return resp
}
