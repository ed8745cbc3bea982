package chats

import (
	"clinichat/entity"
)

// Core defines what the chat handlers need from the persistence layer.
type Core interface {
	GetTenantChats(tenantID, userID string) ([]entity.ChatView, error)
	GetChatMessages(chatID string, limit, offset int) ([]entity.Message, error)
	IsParticipant(chatID, userID string) (bool, error)
	GetOrCreatePrivateChat(tenantID, userA, userB string) (*entity.Chat, error)
}
