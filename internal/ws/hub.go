package ws

import (
	"log/slog"
	"sync"

	"clinichat/entity"
	"clinichat/internal/lib/sl"
)

// Conn is a live client connection as the hub sees it. *Client implements
// it; tests substitute fakes.
type Conn interface {
	Identity() entity.UserAuth
	SendEvent(event *Event)
}

// Hub owns all ephemeral connection state: the presence registry, the
// tenant and chat broadcast channels and the typing sets. Nothing here is
// persisted; it is a cache of who is currently reachable, rebuilt naturally
// as clients reconnect.
type Hub struct {
	mu sync.RWMutex

	presence    map[string]Conn   // userID -> connection, last register wins
	userTenants map[string]string // userID -> tenantID

	tenants map[string]map[Conn]bool // tenantID -> connections
	chats   map[string]map[Conn]bool // chatID -> connections

	activeChats map[Conn]map[string]bool // per-connection joined chats, for disconnect cleanup
	typing      map[string]map[string]bool

	handler EventHandler
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		presence:    make(map[string]Conn),
		userTenants: make(map[string]string),
		tenants:     make(map[string]map[Conn]bool),
		chats:       make(map[string]map[Conn]bool),
		activeChats: make(map[Conn]map[string]bool),
		typing:      make(map[string]map[string]bool),
		log:         log.With(sl.Module("ws.hub")),
	}
}

// Register records the connection in the presence registry and announces
// the user as online to their tenant channel. A second connection for the
// same user replaces the first.
func (h *Hub) Register(conn Conn) {
	id := conn.Identity()

	h.mu.Lock()
	h.presence[id.UserID] = conn
	h.userTenants[id.UserID] = id.TenantID
	h.activeChats[conn] = make(map[string]bool)
	h.mu.Unlock()

	h.BroadcastToTenant(id.TenantID, UserStatus(id.UserID, StatusOnline))
}

// Unregister tears down everything the connection touched: presence,
// tenant and chat channel membership, and any typing state the user left
// behind. An offline status is announced to the tenant channel.
func (h *Hub) Unregister(conn Conn) {
	id := conn.Identity()

	h.mu.Lock()

	// A newer connection for the same user may already own the presence slot.
	if h.presence[id.UserID] == conn {
		delete(h.presence, id.UserID)
		delete(h.userTenants, id.UserID)
	}

	var stoppedTyping []string
	for chatID, users := range h.typing {
		if users[id.UserID] {
			delete(users, id.UserID)
			if len(users) == 0 {
				delete(h.typing, chatID)
			}
			stoppedTyping = append(stoppedTyping, chatID)
		}
	}

	for chatID := range h.activeChats[conn] {
		if clients, ok := h.chats[chatID]; ok {
			delete(clients, conn)
			if len(clients) == 0 {
				delete(h.chats, chatID)
			}
		}
	}
	delete(h.activeChats, conn)

	if clients, ok := h.tenants[id.TenantID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.tenants, id.TenantID)
		}
	}

	h.mu.Unlock()

	for _, chatID := range stoppedTyping {
		h.BroadcastToChat(chatID, UserTyping(chatID, id.UserID, false), conn)
	}
	h.BroadcastToTenant(id.TenantID, UserStatus(id.UserID, StatusOffline))
}

// JoinTenant adds the connection to its tenant's broadcast channel.
func (h *Hub) JoinTenant(conn Conn, tenantID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tenants[tenantID] == nil {
		h.tenants[tenantID] = make(map[Conn]bool)
	}
	h.tenants[tenantID][conn] = true
}

// JoinChat adds the connection to a chat's broadcast channel and tracks the
// membership for disconnect cleanup. Participant authorization happens
// before this is called.
func (h *Hub) JoinChat(conn Conn, chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.chats[chatID] == nil {
		h.chats[chatID] = make(map[Conn]bool)
	}
	h.chats[chatID][conn] = true

	if h.activeChats[conn] == nil {
		h.activeChats[conn] = make(map[string]bool)
	}
	h.activeChats[conn][chatID] = true
}

// LeaveChat removes the connection from a chat's broadcast channel.
func (h *Hub) LeaveChat(conn Conn, chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.chats[chatID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.chats, chatID)
		}
	}
	if chats, ok := h.activeChats[conn]; ok {
		delete(chats, chatID)
	}
}

// InChat reports whether the connection has joined the chat's channel.
func (h *Hub) InChat(conn Conn, chatID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.chats[chatID][conn]
}

// BroadcastToChat delivers an event to every connection currently joined to
// the chat channel, optionally excluding one (typically the originator).
func (h *Hub) BroadcastToChat(chatID string, event *Event, except Conn) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.chats[chatID] {
		if conn == except {
			continue
		}
		conn.SendEvent(event)
	}
}

// BroadcastToTenant delivers an event to every connection in the tenant
// channel.
func (h *Hub) BroadcastToTenant(tenantID string, event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.tenants[tenantID] {
		conn.SendEvent(event)
	}
}

// SendToUser pushes an event directly to a user's connection if they are
// currently reachable. Returns false when the user is offline.
func (h *Hub) SendToUser(userID string, event *Event) bool {
	h.mu.RLock()
	conn, ok := h.presence[userID]
	h.mu.RUnlock()

	if !ok {
		return false
	}
	conn.SendEvent(event)
	return true
}

// LookupTenant returns the tenant a connected user registered under.
func (h *Hub) LookupTenant(userID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	tenantID, ok := h.userTenants[userID]
	return tenantID, ok
}

// IsOnline reports whether the user currently has a registered connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.presence[userID]
	return ok
}

// SetTyping updates the chat's typing set. The final membership always
// reflects the latest call for a given (chat, user).
func (h *Hub) SetTyping(chatID, userID string, isTyping bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if isTyping {
		if h.typing[chatID] == nil {
			h.typing[chatID] = make(map[string]bool)
		}
		h.typing[chatID][userID] = true
		return
	}

	if users, ok := h.typing[chatID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.typing, chatID)
		}
	}
}

// TypingUsers returns the users currently composing in a chat.
func (h *Hub) TypingUsers(chatID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.typing[chatID]))
	for userID := range h.typing[chatID] {
		users = append(users, userID)
	}
	return users
}
