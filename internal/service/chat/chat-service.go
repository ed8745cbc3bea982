package chat

import (
	"errors"
	"log/slog"
	"time"

	"clinichat/entity"
	"clinichat/internal/lib/sl"
	"clinichat/internal/ws"
)

// User-facing failures. Anything else surfaces as errInternal without
// leaking store detail to the client.
var (
	ErrNotParticipant = errors.New("you are not a participant of this chat")
	ErrNotSender      = errors.New("only the sender can modify this message")
	ErrTenantMismatch = errors.New("tenant does not match your session")
	ErrChatNotFound   = errors.New("chat not found")
	ErrMissingField   = errors.New("missing required field")

	errInternal = errors.New("internal server error")
)

// Repository is the persistence surface the messaging core writes through.
// The same collections are shared with the REST CRUD layer.
type Repository interface {
	GetChat(chatID string) (*entity.Chat, error)
	GetGeneralChat(tenantID string) (*entity.Chat, error)
	CreateChat(chat *entity.Chat) error
	EnsureParticipant(chatID, userID, tenantID string, admin bool) error
	IsParticipant(chatID, userID string) (bool, error)
	GetParticipants(chatID string) ([]entity.ChatParticipant, error)
	GetActiveTenantUsers(tenantID string) ([]entity.User, error)

	InsertMessage(msg *entity.Message) error
	GetMessage(messageID string) (*entity.Message, error)
	UpdateMessageContent(messageID, content string, editedAt time.Time) error
	DeleteMessage(messageID string) error
	UpsertReadReceipt(receipt entity.MessageReadReceipt) error

	InsertNotification(notification *entity.Notification) error
	MarkNotificationRead(notificationID, userID string) error

	GetAttachment(attachmentID string) (*entity.Attachment, error)
}

// Identity resolves a user's current display name and role. Injected
// separately from Repository because the message pipeline must resolve the
// sender fresh at send time, never from login-time state.
type Identity interface {
	GetUser(userID string) (*entity.User, error)
}

// FileStore persists binary payloads and returns the attachment record.
type FileStore interface {
	StoreFile(data []byte, meta entity.FileMetadata, baseURL string) (*entity.Attachment, error)
}

// Broadcaster is the hub surface the service fans events out through.
// *ws.Hub implements it.
type Broadcaster interface {
	JoinTenant(conn ws.Conn, tenantID string)
	JoinChat(conn ws.Conn, chatID string)
	LeaveChat(conn ws.Conn, chatID string)
	BroadcastToChat(chatID string, event *ws.Event, except ws.Conn)
	BroadcastToTenant(tenantID string, event *ws.Event)
	SendToUser(userID string, event *ws.Event) bool
	SetTyping(chatID, userID string, isTyping bool)
}

// Service is the messaging core: it owns the join/message/typing/upload
// event handlers dispatched from the hub and reconciles in-memory channel
// state against the persisted chat store.
type Service struct {
	repo        Repository
	identity    Identity
	files       FileStore
	hub         Broadcaster
	maxFileSize int64
	fileBaseURL string
	log         *slog.Logger
}

func NewService(repo Repository, identity Identity, files FileStore, hub Broadcaster, maxFileSize int64, fileBaseURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		identity:    identity,
		files:       files,
		hub:         hub,
		maxFileSize: maxFileSize,
		fileBaseURL: fileBaseURL,
		log:         logger.With(sl.Module("chat-service")),
	}
}

// HandleJoin establishes tenant channel membership. The claimed tenant must
// match the authenticated session; the general chat is joined automatically
// right after.
func (s *Service) HandleJoin(conn ws.Conn, p ws.JoinPayload) error {
	id := conn.Identity()

	if p.TenantID != "" && p.TenantID != id.TenantID {
		return ErrTenantMismatch
	}

	s.hub.JoinTenant(conn, id.TenantID)

	return s.joinGeneralChat(conn)
}

// joinGeneralChat is self-healing: the tenant's GENERAL chat is created
// lazily on first access with every active tenant user backfilled as a
// participant, and a missing participant row for the current user is
// repaired on any later join. Each step is an idempotent upsert, so a crash
// mid-bootstrap heals on the next join.
func (s *Service) joinGeneralChat(conn ws.Conn) error {
	id := conn.Identity()

	general, err := s.repo.GetGeneralChat(id.TenantID)
	if errors.Is(err, entity.ErrNotFound) {
		general = &entity.Chat{
			TenantID:    id.TenantID,
			Kind:        entity.ChatGeneral,
			Name:        "General",
			Description: "Tenant-wide chat",
			CreatedBy:   id.UserID,
		}
		if err := s.repo.CreateChat(general); err != nil {
			s.log.Error("failed to create general chat", slog.String("tenant_id", id.TenantID), sl.Err(err))
			return errInternal
		}

		users, err := s.repo.GetActiveTenantUsers(id.TenantID)
		if err != nil {
			s.log.Error("failed to list tenant users", slog.String("tenant_id", id.TenantID), sl.Err(err))
			return errInternal
		}
		for _, user := range users {
			if err := s.repo.EnsureParticipant(general.ID, user.ID, id.TenantID, false); err != nil {
				s.log.Error("failed to backfill participant",
					slog.String("chat_id", general.ID),
					slog.String("user_id", user.ID),
					sl.Err(err),
				)
				return errInternal
			}
		}
	} else if err != nil {
		s.log.Error("failed to load general chat", slog.String("tenant_id", id.TenantID), sl.Err(err))
		return errInternal
	}

	if err := s.repo.EnsureParticipant(general.ID, id.UserID, id.TenantID, false); err != nil {
		s.log.Error("failed to ensure participant",
			slog.String("chat_id", general.ID),
			slog.String("user_id", id.UserID),
			sl.Err(err),
		)
		return errInternal
	}

	s.hub.JoinChat(conn, general.ID)
	conn.SendEvent(ws.ChatJoined(s.chatView(general)))

	return nil
}

// HandleJoinChat adds the connection to a chat channel after verifying the
// user is an active participant.
func (s *Service) HandleJoinChat(conn ws.Conn, p ws.JoinChatPayload) error {
	id := conn.Identity()

	if p.ChatID == "" {
		return ErrMissingField
	}

	chat, err := s.repo.GetChat(p.ChatID)
	if errors.Is(err, entity.ErrNotFound) {
		return ErrChatNotFound
	}
	if err != nil {
		s.log.Error("failed to load chat", slog.String("chat_id", p.ChatID), sl.Err(err))
		return errInternal
	}

	ok, err := s.repo.IsParticipant(chat.ID, id.UserID)
	if err != nil {
		s.log.Error("failed to check participant", slog.String("chat_id", chat.ID), sl.Err(err))
		return errInternal
	}
	if !ok {
		return ErrNotParticipant
	}

	s.hub.JoinChat(conn, chat.ID)
	conn.SendEvent(ws.ChatJoined(s.chatView(chat)))

	return nil
}

// HandleLeaveChat removes the connection from a chat channel.
func (s *Service) HandleLeaveChat(conn ws.Conn, p ws.LeaveChatPayload) error {
	if p.ChatID == "" {
		return ErrMissingField
	}

	s.hub.LeaveChat(conn, p.ChatID)
	return nil
}

// HandleTyping updates the chat's typing set and echoes the signal to every
// other connection in the channel. Signals from non-participants are
// dropped without an error; this is an advisory indicator, not a security
// boundary.
func (s *Service) HandleTyping(conn ws.Conn, p ws.TypingPayload) error {
	id := conn.Identity()

	if p.ChatID == "" {
		return nil
	}

	ok, err := s.repo.IsParticipant(p.ChatID, id.UserID)
	if err != nil {
		s.log.Warn("failed to check participant for typing", slog.String("chat_id", p.ChatID), sl.Err(err))
		return nil
	}
	if !ok {
		return nil
	}

	s.hub.SetTyping(p.ChatID, id.UserID, p.IsTyping)
	s.hub.BroadcastToChat(p.ChatID, ws.UserTyping(p.ChatID, id.UserID, p.IsTyping), conn)

	return nil
}

// HandleDisconnect runs after the hub has already torn down presence,
// channel membership and typing state for the connection.
func (s *Service) HandleDisconnect(conn ws.Conn) {
	id := conn.Identity()
	s.log.Debug("client disconnected",
		slog.String("user_id", id.UserID),
		slog.String("tenant_id", id.TenantID),
	)
}

// chatView assembles the wire shape of a chat. Participant loading is
// best-effort; a read failure degrades the view rather than failing the
// join that produced it.
func (s *Service) chatView(chat *entity.Chat) *entity.ChatView {
	view := &entity.ChatView{Chat: *chat}

	participants, err := s.repo.GetParticipants(chat.ID)
	if err != nil {
		s.log.Warn("failed to load participants", slog.String("chat_id", chat.ID), sl.Err(err))
	} else {
		view.Participants = participants
	}

	return view
}
