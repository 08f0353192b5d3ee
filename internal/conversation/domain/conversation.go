package domain

import "time"

// Conversation is one stored message/response exchange. Rows are append-only:
// they double as an audit log and as the corpus for semantic retrieval.
type Conversation struct {
	ID            string         `json:"id" gorm:"primaryKey"`
	UserID        string         `json:"user_id" gorm:"index;not null"`
	UserMessage   string         `json:"user_message" gorm:"type:text;not null"`
	AgentResponse string         `json:"agent_response" gorm:"type:text;not null"`
	ToolUsed      string         `json:"tool_used,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty" gorm:"serializer:json"`
	CreatedAt     time.Time      `json:"created_at" gorm:"index"`
}
