package entity

import (
	"time"
)

// ChatKind classifies a chat within a tenant.
type ChatKind string

const (
	ChatGeneral ChatKind = "GENERAL"
	ChatPrivate ChatKind = "PRIVATE"
	ChatGroup   ChatKind = "GROUP"
)

// Chat is a conversation scoped to a single tenant.
// Exactly one GENERAL chat exists per tenant; it is created lazily on first access.
type Chat struct {
	ID          string    `json:"id" bson:"_id"`
	TenantID    string    `json:"tenantId" bson:"tenant_id"`
	Kind        ChatKind  `json:"kind" bson:"kind"`
	Name        string    `json:"name,omitempty" bson:"name,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	CreatedBy   string    `json:"createdBy" bson:"created_by"`
	Active      bool      `json:"active" bson:"active"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// ChatParticipant links a user to a chat. Unique per (chat_id, user_id).
type ChatParticipant struct {
	ChatID   string    `json:"chatId" bson:"chat_id"`
	UserID   string    `json:"userId" bson:"user_id"`
	TenantID string    `json:"tenantId" bson:"tenant_id"`
	Admin    bool      `json:"admin" bson:"admin"`
	Active   bool      `json:"active" bson:"active"`
	JoinedAt time.Time `json:"joinedAt" bson:"joined_at"`
}

// ChatView is the wire shape of a chat as sent to clients: the persisted
// fields plus current participants, the last message and the caller's
// unread count.
type ChatView struct {
	Chat         `bson:",inline"`
	Participants []ChatParticipant `json:"participants" bson:"participants"`
	LastMessage  *Message          `json:"lastMessage,omitempty" bson:"last_message,omitempty"`
	UnreadCount  int               `json:"unreadCount" bson:"unread_count"`
}
