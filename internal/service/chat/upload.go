package chat

import (
	"log/slog"

	"clinichat/entity"
	"clinichat/internal/lib/sl"
	"clinichat/internal/ws"
)

// HandleUploadFile accepts a binary payload for a chat, stores it and
// threads the resulting attachment through the message pipeline as a
// placeholder message, so uploads participate in normal history,
// read-receipt and notification flows. Oversized payloads and MIME types
// outside the accepted categories are rejected with an explicit error.
func (s *Service) HandleUploadFile(conn ws.Conn, p ws.UploadFilePayload) error {
	id := conn.Identity()

	if p.ChatID == "" || p.File.Name == "" || len(p.File.Data) == 0 {
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

	if int64(len(p.File.Data)) > s.maxFileSize {
		return entity.FileTooLargeError(p.File.Name, int64(len(p.File.Data)), s.maxFileSize)
	}
	if entity.CategoryForMIME(p.File.MIMEType) == entity.FileOther {
		return entity.ErrFileTypeNotAllowed
	}

	meta := entity.FileMetadata{
		MIMEType:     p.File.MIMEType,
		TenantID:     id.TenantID,
		ChatID:       p.ChatID,
		OriginalName: p.File.Name,
		Uploader:     id.UserID,
	}
	attachment, err := s.files.StoreFile(p.File.Data, meta, s.fileBaseURL)
	if err != nil {
		s.log.Error("failed to store file",
			slog.String("chat_id", p.ChatID),
			slog.String("filename", p.File.Name),
			sl.Err(err),
		)
		return errInternal
	}

	// The placeholder message rides the normal pipeline; rich clients use
	// the fileUploaded event instead of parsing its text.
	sender, err := s.identity.GetUser(id.UserID)
	if err != nil {
		s.log.Error("failed to resolve sender", slog.String("user_id", id.UserID), sl.Err(err))
		return errInternal
	}

	msg := &entity.Message{
		ChatID:      p.ChatID,
		TenantID:    id.TenantID,
		SenderID:    id.UserID,
		SenderName:  sender.Name,
		SenderRole:  sender.Role,
		Content:     "File sent: " + attachment.OriginalName,
		Attachments: []entity.Attachment{*attachment},
	}
	if err := s.repo.InsertMessage(msg); err != nil {
		s.log.Error("failed to persist file message", slog.String("chat_id", p.ChatID), sl.Err(err))
		return errInternal
	}

	s.hub.BroadcastToChat(msg.ChatID, ws.NewMessage(msg), nil)
	s.hub.BroadcastToChat(msg.ChatID, ws.FileUploaded(attachment, msg.ID), nil)

	s.fanOutNotifications(msg)

	return nil
}
