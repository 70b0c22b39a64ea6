package dto

import (
	"fmt"
	"strings"
	"time"

	"ticketdesk.app/portal/internal/model"
)

type CreateConversationRequest struct {
	Title           string  `json:"title" binding:"required,min=3,max=200"`
	Description     string  `json:"description" binding:"required,min=10,max=5000"`
	Complexity      string  `json:"complexity" binding:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Sector          string  `json:"sector" binding:"required,min=2,max=100"`
	RequestTarget   string  `json:"request_target" binding:"required,oneof=SELF OTHER"`
	RequestForName  *string `json:"request_for_name,omitempty" binding:"omitempty,max=200"`
	RequestForEmail *string `json:"request_for_email,omitempty" binding:"omitempty,email"`
}

// Validate enforces the cross-field rule gin's binding tags cannot express:
// a request opened for someone else must identify that person.
func (r *CreateConversationRequest) Validate() error {
	if model.RequestTarget(r.RequestTarget) != model.RequestTargetOther {
		return nil
	}
	if r.RequestForName == nil || strings.TrimSpace(*r.RequestForName) == "" {
		return fmt.Errorf("request_for_name is required when opening a ticket for someone else")
	}
	if r.RequestForEmail == nil || strings.TrimSpace(*r.RequestForEmail) == "" {
		return fmt.Errorf("request_for_email is required when opening a ticket for someone else")
	}
	return nil
}

type ConversationResponse struct {
	ID                     int64      `json:"id,string"`
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	Complexity             string     `json:"complexity"`
	Sector                 string     `json:"sector"`
	RequestTarget          string     `json:"request_target"`
	RequestForName         *string    `json:"request_for_name,omitempty"`
	RequestForEmail        *string    `json:"request_for_email,omitempty"`
	Status                 string     `json:"status"`
	ChatwootConversationID *int64     `json:"chatwoot_conversation_id,omitempty"`
	AssignedAgentName      *string    `json:"assigned_agent_name,omitempty"`
	AssignedAt             *time.Time `json:"assigned_at,omitempty"`
	ResolvedAt             *time.Time `json:"resolved_at,omitempty"`
	ReopenedAt             *time.Time `json:"reopened_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func ToConversationResponse(conv *model.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:                     conv.ID,
		Title:                  conv.Title,
		Description:            conv.Description,
		Complexity:             string(conv.Complexity),
		Sector:                 conv.Sector,
		RequestTarget:          string(conv.RequestTarget),
		RequestForName:         conv.RequestForName,
		RequestForEmail:        conv.RequestForEmail,
		Status:                 string(conv.Status),
		ChatwootConversationID: conv.ChatwootConversationID,
		AssignedAgentName:      conv.AssignedAgentName,
		AssignedAt:             conv.AssignedAt,
		ResolvedAt:             conv.ResolvedAt,
		ReopenedAt:             conv.ReopenedAt,
		CreatedAt:              conv.CreatedAt,
		UpdatedAt:              conv.UpdatedAt,
	}
}
