package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"clinichat/internal/lib/sl"
)

// EventHandler receives every parsed client event. Implemented by the chat
// service; errors returned here are user-facing and forwarded to the
// originating connection as an error event.
type EventHandler interface {
	HandleJoin(conn Conn, p JoinPayload) error
	HandleJoinChat(conn Conn, p JoinChatPayload) error
	HandleLeaveChat(conn Conn, p LeaveChatPayload) error
	HandleMessage(conn Conn, p MessagePayload) error
	HandleEditMessage(conn Conn, p EditMessagePayload) error
	HandleDeleteMessage(conn Conn, p DeleteMessagePayload) error
	HandleMarkMessageRead(conn Conn, p MarkMessageReadPayload) error
	HandleTyping(conn Conn, p TypingPayload) error
	HandleUploadFile(conn Conn, p UploadFilePayload) error
	HandleMarkNotificationRead(conn Conn, p MarkNotificationReadPayload) error
	HandleDisconnect(conn Conn)
}

// SetHandler wires the event handler. Must be called before any client
// connects.
func (h *Hub) SetHandler(handler EventHandler) {
	h.handler = handler
}

// clientEvent is the raw inbound frame before payload decoding.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleClientMessage parses an inbound frame and dispatches it. Every
// known event name is matched explicitly; unknown names and malformed
// payloads are answered with an error event rather than dropped. No
// failure here may take down the shared process.
func (h *Hub) HandleClientMessage(conn Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic in event handler",
				slog.String("user_id", conn.Identity().UserID),
				slog.Any("panic", r),
			)
			conn.SendEvent(ErrorEvent("Internal server error"))
		}
	}()

	if h.handler == nil {
		return
	}

	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.Warn("failed to parse client frame", sl.Err(err))
		conn.SendEvent(ErrorEvent("Malformed event"))
		return
	}

	var err error
	switch event.Type {
	case EvJoin:
		var p JoinPayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleJoin(conn, p)
		}
	case EvJoinChat:
		var p JoinChatPayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleJoinChat(conn, p)
		}
	case EvLeaveChat:
		var p LeaveChatPayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleLeaveChat(conn, p)
		}
	case EvMessage:
		var p MessagePayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleMessage(conn, p)
		}
	case EvEditMessage:
		var p EditMessagePayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleEditMessage(conn, p)
		}
	case EvDeleteMessage:
		var p DeleteMessagePayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleDeleteMessage(conn, p)
		}
	case EvMarkMessageRead:
		var p MarkMessageReadPayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleMarkMessageRead(conn, p)
		}
	case EvTyping:
		var p TypingPayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleTyping(conn, p)
		}
	case EvUploadFile:
		var p UploadFilePayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleUploadFile(conn, p)
		}
	case EvMarkNotificationRead:
		var p MarkNotificationReadPayload
		if err = decode(event.Data, &p); err == nil {
			err = h.handler.HandleMarkNotificationRead(conn, p)
		}
	case EvPing:
		conn.SendEvent(Pong())
		return
	default:
		conn.SendEvent(ErrorEvent(fmt.Sprintf("Unknown event type %q", event.Type)))
		return
	}

	if err != nil {
		h.log.Debug("event rejected",
			slog.String("event", event.Type),
			slog.String("user_id", conn.Identity().UserID),
			sl.Err(err),
		)
		conn.SendEvent(ErrorEvent(err.Error()))
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("missing event payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed event payload")
	}
	return nil
}
