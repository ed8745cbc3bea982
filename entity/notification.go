package entity

import (
	"time"
)

// NotificationCategoryMessage tags notifications derived from chat messages.
const NotificationCategoryMessage = "message"

// Notification is a per-user alert derived from a chat message. One row is
// created per chat participant (excluding the sender) per message. Delivered
// tracks an explicit acknowledgment, not the best-effort in-memory push.
type Notification struct {
	ID        string    `json:"id" bson:"_id"`
	TenantID  string    `json:"tenantId" bson:"tenant_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	MessageID string    `json:"messageId" bson:"message_id"`
	Title     string    `json:"title" bson:"title"`
	Body      string    `json:"body" bson:"body"`
	Category  string    `json:"category" bson:"category"`
	Read      bool      `json:"read" bson:"read"`
	Delivered bool      `json:"delivered" bson:"delivered"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
