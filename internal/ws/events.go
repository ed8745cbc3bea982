package ws

import (
	"time"

	"clinichat/entity"
)

// Client-to-server event names. The vocabulary is closed: dispatch matches
// these exhaustively and anything else is answered with an error event.
const (
	EvJoin                 = "join"
	EvJoinChat             = "joinChat"
	EvLeaveChat            = "leaveChat"
	EvMessage              = "message"
	EvEditMessage          = "editMessage"
	EvDeleteMessage        = "deleteMessage"
	EvMarkMessageRead      = "markMessageRead"
	EvTyping               = "typing"
	EvUploadFile           = "uploadFile"
	EvMarkNotificationRead = "markNotificationRead"
	EvPing                 = "ping"
)

// Server-to-client event names.
const (
	EvConnected            = "connected"
	EvNewMessage           = "newMessage"
	EvMessageEdited        = "messageEdited"
	EvMessageDeleted       = "messageDeleted"
	EvUserTyping           = "userTyping"
	EvUserStatus           = "userStatus"
	EvChatJoined           = "chatJoined"
	EvFileUploaded         = "fileUploaded"
	EvNotificationReceived = "notificationReceived"
	EvNotificationRead     = "notificationRead"
	EvMessageRead          = "messageRead"
	EvPong                 = "pong"
	EvError                = "error"
)

// Event is a server-to-client frame.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// User presence states broadcast with userStatus.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

// Inbound payloads, one per client event name.

type JoinPayload struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
}

type JoinChatPayload struct {
	ChatID string `json:"chatId"`
}

type LeaveChatPayload struct {
	ChatID string `json:"chatId"`
}

type MessagePayload struct {
	ChatID        string     `json:"chatId"`
	Content       string     `json:"content"`
	SenderID      string     `json:"senderId"`
	SenderName    string     `json:"senderName"`
	SenderRole    string     `json:"senderRole"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	AttachmentIDs []string   `json:"attachmentIds,omitempty"`
}

type EditMessagePayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// MarkMessageReadPayload's field name carries over verbatim from the
// historical payload contract.
type MarkMessageReadPayload struct {
	MessageID string `json:"mensagemId"`
}

type TypingPayload struct {
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

// FilePayload carries the binary upload. Data is base64 on the wire.
type FilePayload struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type UploadFilePayload struct {
	ChatID    string      `json:"chatId"`
	File      FilePayload `json:"file"`
	MessageID string      `json:"messageId,omitempty"`
}

// MarkNotificationReadPayload's field name carries over verbatim from the
// historical payload contract.
type MarkNotificationReadPayload struct {
	NotificationID string `json:"notificacaoId"`
}

// Outbound event constructors.

func Connected(userID, tenantID string) *Event {
	return &Event{Type: EvConnected, Data: map[string]string{
		"message":  "connected",
		"userId":   userID,
		"tenantId": tenantID,
	}}
}

func NewMessage(msg *entity.Message) *Event {
	return &Event{Type: EvNewMessage, Data: msg}
}

func MessageEdited(messageID, content string, editedAt time.Time) *Event {
	return &Event{Type: EvMessageEdited, Data: map[string]interface{}{
		"messageId": messageID,
		"content":   content,
		"editedAt":  editedAt,
	}}
}

func MessageDeleted(messageID, chatID string) *Event {
	return &Event{Type: EvMessageDeleted, Data: map[string]string{
		"messageId": messageID,
		"chatId":    chatID,
	}}
}

func UserTyping(chatID, userID string, isTyping bool) *Event {
	return &Event{Type: EvUserTyping, Data: map[string]interface{}{
		"chatId":   chatID,
		"userId":   userID,
		"isTyping": isTyping,
	}}
}

func UserStatus(userID, status string) *Event {
	return &Event{Type: EvUserStatus, Data: map[string]string{
		"userId": userID,
		"status": status,
	}}
}

func ChatJoined(chat *entity.ChatView) *Event {
	return &Event{Type: EvChatJoined, Data: chat}
}

func FileUploaded(attachment *entity.Attachment, messageID string) *Event {
	return &Event{Type: EvFileUploaded, Data: map[string]interface{}{
		"attachment": attachment,
		"messageId":  messageID,
	}}
}

func NotificationReceived(notification *entity.Notification) *Event {
	return &Event{Type: EvNotificationReceived, Data: notification}
}

func NotificationRead(notificationID string) *Event {
	return &Event{Type: EvNotificationRead, Data: map[string]string{
		"notificationId": notificationID,
	}}
}

func MessageRead(messageID, userID string, readAt time.Time) *Event {
	return &Event{Type: EvMessageRead, Data: map[string]interface{}{
		"messageId": messageID,
		"userId":    userID,
		"readAt":    readAt,
	}}
}

func Pong() *Event {
	return &Event{Type: EvPong, Data: map[string]interface{}{
		"timestamp": time.Now(),
	}}
}

func ErrorEvent(message string) *Event {
	return &Event{Type: EvError, Data: message}
}
