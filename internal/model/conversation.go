package model

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusPending  Status = "PENDING"
	StatusResolved Status = "RESOLVED"
	StatusSnoozed  Status = "SNOOZED"
)

type Complexity string

const (
	ComplexityLow      Complexity = "LOW"
	ComplexityMedium   Complexity = "MEDIUM"
	ComplexityHigh     Complexity = "HIGH"
	ComplexityCritical Complexity = "CRITICAL"
)

type RequestTarget string

const (
	RequestTargetSelf  RequestTarget = "SELF"
	RequestTargetOther RequestTarget = "OTHER"
)

// Conversation is one ticket, linked 1:1 to a conversation on Chatwoot.
// All reads and writes are scoped by the owning UserID.
type Conversation struct {
	ID                     int64           `json:"id"`
	UserID                 int64           `json:"user_id"`
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Complexity             Complexity      `json:"complexity"`
	Sector                 string          `json:"sector"`
	RequestTarget          RequestTarget   `json:"request_target"`
	RequestForName         *string         `json:"request_for_name,omitempty"`
	RequestForEmail        *string         `json:"request_for_email,omitempty"`
	Status                 Status          `json:"status"`
	ChatwootConversationID *int64          `json:"chatwoot_conversation_id,omitempty"`
	ChatwootContactID      string          `json:"chatwoot_contact_id"`
	ChatwootSourceID       string          `json:"chatwoot_source_id"`
	ChatwootInbox          string          `json:"chatwoot_inbox_identifier"`
	ChatwootPubsubToken    string          `json:"chatwoot_pubsub_token"`
	AssignedAgentID        *int64          `json:"assigned_agent_id,omitempty"`
	AssignedAgentName      *string         `json:"assigned_agent_name,omitempty"`
	AssignedAt             *time.Time      `json:"assigned_at,omitempty"`
	ResolvedAt             *time.Time      `json:"resolved_at,omitempty"`
	ReopenedAt             *time.Time      `json:"reopened_at,omitempty"`
	Metadata               json.RawMessage `json:"metadata,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}
