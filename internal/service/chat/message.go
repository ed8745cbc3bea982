package chat

import (
	"errors"
	"log/slog"
	"time"

	"clinichat/entity"
	"clinichat/internal/lib/sl"
	"clinichat/internal/ws"
)

// ErrMessageNotFound and ErrNotificationNotFound surface missing-id
// operations without exposing store internals.
var (
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// HandleMessage is the central write-and-broadcast path: participant gate,
// fresh sender lookup, persist, broadcast, then notification fan-out.
// Persistence and broadcast are sequential per inbound event, so receipt
// order on one connection matches its send order.
func (s *Service) HandleMessage(conn ws.Conn, p ws.MessagePayload) error {
	id := conn.Identity()

	if p.ChatID == "" || p.Content == "" {
		return ErrMissingField
	}

	ok, err := s.repo.IsParticipant(p.ChatID, id.UserID)
	if err != nil {
		s.log.Error("failed to check participant", slog.String("chat_id", p.ChatID), sl.Err(err))
		return errInternal
	}
	if !ok {
		return ErrNotParticipant
	}

	// The sender's display name and role come from the identity store at
	// send time, not from anything cached at login.
	sender, err := s.identity.GetUser(id.UserID)
	if err != nil {
		s.log.Error("failed to resolve sender", slog.String("user_id", id.UserID), sl.Err(err))
		return errInternal
	}

	msg := &entity.Message{
		ChatID:     p.ChatID,
		TenantID:   id.TenantID,
		SenderID:   id.UserID,
		SenderName: sender.Name,
		SenderRole: sender.Role,
		Content:    p.Content,
	}
	if p.Timestamp != nil {
		msg.Timestamp = *p.Timestamp
	}

	for _, attachmentID := range p.AttachmentIDs {
		attachment, err := s.repo.GetAttachment(attachmentID)
		if errors.Is(err, entity.ErrNotFound) {
			continue
		}
		if err != nil {
			s.log.Error("failed to load attachment", slog.String("attachment_id", attachmentID), sl.Err(err))
			return errInternal
		}
		msg.Attachments = append(msg.Attachments, *attachment)
	}

	if err := s.repo.InsertMessage(msg); err != nil {
		s.log.Error("failed to persist message", slog.String("chat_id", p.ChatID), sl.Err(err))
		return errInternal
	}

	s.hub.BroadcastToChat(msg.ChatID, ws.NewMessage(msg), nil)

	s.fanOutNotifications(msg)

	return nil
}

// HandleEditMessage updates a message's content. Only the original sender
// may edit; the broadcast carries just the changed fields, not a re-send
// of the full message.
func (s *Service) HandleEditMessage(conn ws.Conn, p ws.EditMessagePayload) error {
	id := conn.Identity()

	if p.MessageID == "" || p.Content == "" {
		return ErrMissingField
	}

	msg, err := s.repo.GetMessage(p.MessageID)
	if errors.Is(err, entity.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		s.log.Error("failed to load message", slog.String("message_id", p.MessageID), sl.Err(err))
		return errInternal
	}

	if msg.SenderID != id.UserID {
		return ErrNotSender
	}

	editedAt := time.Now()
	if err := s.repo.UpdateMessageContent(msg.ID, p.Content, editedAt); err != nil {
		s.log.Error("failed to update message", slog.String("message_id", msg.ID), sl.Err(err))
		return errInternal
	}

	s.hub.BroadcastToChat(msg.ChatID, ws.MessageEdited(msg.ID, p.Content, editedAt), nil)

	return nil
}

// HandleDeleteMessage removes a message permanently. Sender-only; no
// tombstone is kept.
func (s *Service) HandleDeleteMessage(conn ws.Conn, p ws.DeleteMessagePayload) error {
	id := conn.Identity()

	if p.MessageID == "" {
		return ErrMissingField
	}

	msg, err := s.repo.GetMessage(p.MessageID)
	if errors.Is(err, entity.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		s.log.Error("failed to load message", slog.String("message_id", p.MessageID), sl.Err(err))
		return errInternal
	}

	if msg.SenderID != id.UserID {
		return ErrNotSender
	}

	if err := s.repo.DeleteMessage(msg.ID); err != nil {
		s.log.Error("failed to delete message", slog.String("message_id", msg.ID), sl.Err(err))
		return errInternal
	}

	s.hub.BroadcastToChat(msg.ChatID, ws.MessageDeleted(msg.ID, msg.ChatID), nil)

	return nil
}

// HandleMarkMessageRead upserts the caller's read receipt. At most one
// receipt row exists per (message, user); the messageRead broadcast still
// goes out on every call, including repeats.
func (s *Service) HandleMarkMessageRead(conn ws.Conn, p ws.MarkMessageReadPayload) error {
	id := conn.Identity()

	if p.MessageID == "" {
		return ErrMissingField
	}

	msg, err := s.repo.GetMessage(p.MessageID)
	if errors.Is(err, entity.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		s.log.Error("failed to load message", slog.String("message_id", p.MessageID), sl.Err(err))
		return errInternal
	}

	readAt := time.Now()
	receipt := entity.MessageReadReceipt{
		MessageID: msg.ID,
		UserID:    id.UserID,
		ReadAt:    readAt,
	}
	if err := s.repo.UpsertReadReceipt(receipt); err != nil {
		s.log.Error("failed to upsert read receipt", slog.String("message_id", msg.ID), sl.Err(err))
		return errInternal
	}

	s.hub.BroadcastToChat(msg.ChatID, ws.MessageRead(msg.ID, id.UserID, readAt), nil)

	return nil
}

// fanOutNotifications creates one notification row per active chat
// participant excluding the sender and pushes it to anyone currently
// reachable. Notification failures never roll back the message that
// triggered them; the send already succeeded.
func (s *Service) fanOutNotifications(msg *entity.Message) {
	participants, err := s.repo.GetParticipants(msg.ChatID)
	if err != nil {
		s.log.Error("failed to load participants for fan-out", slog.String("chat_id", msg.ChatID), sl.Err(err))
		return
	}

	for _, participant := range participants {
		if participant.UserID == msg.SenderID {
			continue
		}

		notification := &entity.Notification{
			TenantID:  msg.TenantID,
			UserID:    participant.UserID,
			MessageID: msg.ID,
			Title:     "New message from " + msg.SenderName,
			Body:      msg.Content,
			Category:  entity.NotificationCategoryMessage,
		}
		if err := s.repo.InsertNotification(notification); err != nil {
			s.log.Error("failed to persist notification",
				slog.String("message_id", msg.ID),
				slog.String("user_id", participant.UserID),
				sl.Err(err),
			)
			continue
		}

		// Best-effort push; does not flip the delivered flag.
		s.hub.SendToUser(participant.UserID, ws.NotificationReceived(notification))
	}
}

// HandleMarkNotificationRead flips a notification's read flag. The
// repository filters on the acting user, so a caller can only mark
// notifications addressed to them.
func (s *Service) HandleMarkNotificationRead(conn ws.Conn, p ws.MarkNotificationReadPayload) error {
	id := conn.Identity()

	if p.NotificationID == "" {
		return ErrMissingField
	}

	err := s.repo.MarkNotificationRead(p.NotificationID, id.UserID)
	if errors.Is(err, entity.ErrNotFound) {
		return ErrNotificationNotFound
	}
	if err != nil {
		s.log.Error("failed to mark notification read", slog.String("notification_id", p.NotificationID), sl.Err(err))
		return errInternal
	}

	conn.SendEvent(ws.NotificationRead(p.NotificationID))

	return nil
}
