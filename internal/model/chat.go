// Package model defines data structures for the chat playground.
package model

import (
	"time"
)

// Role represents the author of a message turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// Message represents one turn in a conversation. Role and ID are fixed at
// creation; attachments may only change while the message is unsent.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`

	// ModelID records which model produced an assistant message.
	ModelID string `json:"modelId,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file associated with a message. Type is derived once at
// ingestion and never changes.
type Attachment struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    FileType `json:"type"`
	Size    int64    `json:"size"`
	URL     string   `json:"url"`
	Preview string   `json:"preview,omitempty"`

	// Content holds the full text for text-classified files.
	Content string `json:"content,omitempty"`
}

// Chat represents one conversation thread bound to a model.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	ModelID   string    `json:"modelId"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

// Now returns the current time in epoch milliseconds, the unit the persisted
// state uses for all chat and message timestamps.
func Now() int64 {
	return time.Now().UnixMilli()
}

// CreateMessageRequest is the body for appending a message to a chat.
type CreateMessageRequest struct {
	Role          Role     `json:"role"`
	Content       string   `json:"content"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
}

// UpdateChatRequest is the body for renaming a chat.
type UpdateChatRequest struct {
	Title string `json:"title"`
}

// SelectChatRequest is the body for switching the active chat.
type SelectChatRequest struct {
	ChatID string `json:"chat_id"`
}

// SendMessageResponse carries both sides of a completed exchange.
type SendMessageResponse struct {
	UserMessage      *Message `json:"user_message,omitempty"`
	AssistantMessage *Message `json:"assistant_message,omitempty"`
}
