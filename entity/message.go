package entity

import (
	"time"
)

// Message is a single chat message. Sender name and role are denormalized at
// send time from the identity store and never re-resolved afterwards. Only
// Content and the Edited fields are mutable, and only by the original sender.
type Message struct {
	ID          string       `json:"id" bson:"_id"`
	ChatID      string       `json:"chatId" bson:"chat_id"`
	TenantID    string       `json:"tenantId" bson:"tenant_id"`
	SenderID    string       `json:"senderId" bson:"sender_id"`
	SenderName  string       `json:"senderName" bson:"sender_name"`
	SenderRole  string       `json:"senderRole" bson:"sender_role"`
	Content     string       `json:"content" bson:"content"`
	Timestamp   time.Time    `json:"timestamp" bson:"timestamp"`
	Edited      bool         `json:"edited" bson:"edited"`
	EditedAt    *time.Time   `json:"editedAt,omitempty" bson:"edited_at,omitempty"`
	Attachments []Attachment `json:"attachments" bson:"attachments,omitempty"`
}

// MessageReadReceipt records that a user has read a message.
// At most one receipt exists per (message_id, user_id); repeated marks
// refresh ReadAt via upsert.
type MessageReadReceipt struct {
	MessageID string    `json:"messageId" bson:"message_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	ReadAt    time.Time `json:"readAt" bson:"read_at"`
}
