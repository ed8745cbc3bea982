package chat

import (
	"testing"

	"clinichat/entity"
	"clinichat/internal/ws"
)

// Wires two participants plus one outsider into a group chat and registers
// everyone with the hub, mirroring three live connections.
func setupChatScene(t *testing.T) (*Service, *ws.Hub, *fakeRepo, *testConn, *testConn, *testConn) {
	t.Helper()

	repo := newFakeRepo()
	repo.addUser("alice", "t1", "Alice", entity.RoleProfessional)
	repo.addUser("bob", "t1", "Bob", entity.RolePatient)
	repo.addUser("mallory", "t1", "Mallory", entity.RolePatient)
	repo.addChat("c1", "t1", entity.ChatGroup, "alice", "bob")

	service, hub := newTestService(repo)

	alice := newTestConn("alice", "t1")
	bob := newTestConn("bob", "t1")
	mallory := newTestConn("mallory", "t1")
	for _, conn := range []*testConn{alice, bob, mallory} {
		hub.Register(conn)
		hub.JoinTenant(conn, "t1")
	}
	hub.JoinChat(alice, "c1")
	hub.JoinChat(bob, "c1")

	return service, hub, repo, alice, bob, mallory
}

func TestMessagePersistBroadcastNotify(t *testing.T) {
	service, _, repo, alice, bob, mallory := setupChatScene(t)

	err := service.HandleMessage(alice, ws.MessagePayload{ChatID: "c1", Content: "hello"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(repo.messages) != 1 {
		t.Fatalf("stored messages = %d; want 1", len(repo.messages))
	}
	var stored *entity.Message
	for _, msg := range repo.messages {
		stored = msg
	}
	if stored.SenderName != "Alice" || stored.SenderRole != entity.RoleProfessional {
		t.Errorf("sender denormalization = %q/%q; want Alice/professional", stored.SenderName, stored.SenderRole)
	}
	if stored.Timestamp.IsZero() {
		t.Error("expected a server-side timestamp")
	}

	// Both channel members get the message, the sender included.
	for name, conn := range map[string]*testConn{"alice": alice, "bob": bob} {
		if len(conn.eventsOfType(ws.EvNewMessage)) != 1 {
			t.Errorf("expected %s to receive newMessage", name)
		}
	}
	if len(mallory.eventsOfType(ws.EvNewMessage)) != 0 {
		t.Error("non-member must not receive the message")
	}

	// One notification per participant except the sender.
	if got := len(repo.notificationsFor("bob")); got != 1 {
		t.Errorf("bob notifications = %d; want 1", got)
	}
	if got := len(repo.notificationsFor("alice")); got != 0 {
		t.Errorf("sender notifications = %d; want 0", got)
	}
	ntf := repo.notificationsFor("bob")[0]
	if ntf.Title != "New message from Alice" {
		t.Errorf("notification title = %q", ntf.Title)
	}
	if ntf.MessageID != stored.ID {
		t.Errorf("notification message id = %q; want %q", ntf.MessageID, stored.ID)
	}

	// Bob is online, so the notification is also pushed over the socket.
	if len(bob.eventsOfType(ws.EvNotificationReceived)) != 1 {
		t.Error("expected a notificationReceived push to bob")
	}
	if len(alice.eventsOfType(ws.EvNotificationReceived)) != 0 {
		t.Error("sender must not receive a notification push")
	}
}

func TestMessageSenderResolvedAtSendTime(t *testing.T) {
	service, _, repo, alice, _, _ := setupChatScene(t)

	// Name changes between connection time and send time; the stored
	// message must carry the fresh name.
	repo.users["alice"].Name = "Dr. Alice"

	if err := service.HandleMessage(alice, ws.MessagePayload{ChatID: "c1", Content: "hi"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	for _, msg := range repo.messages {
		if msg.SenderName != "Dr. Alice" {
			t.Errorf("sender name = %q; want fresh lookup %q", msg.SenderName, "Dr. Alice")
		}
	}
}

func TestMessageRejectsNonParticipant(t *testing.T) {
	service, _, repo, _, _, mallory := setupChatScene(t)

	err := service.HandleMessage(mallory, ws.MessagePayload{ChatID: "c1", Content: "let me in"})
	if err != ErrNotParticipant {
		t.Fatalf("HandleMessage error = %v; want ErrNotParticipant", err)
	}
	if len(repo.messages) != 0 {
		t.Error("rejected message must not be persisted")
	}
	if len(repo.notifications) != 0 {
		t.Error("rejected message must not fan out notifications")
	}
}

func TestMessageMissingFields(t *testing.T) {
	service, _, _, alice, _, _ := setupChatScene(t)

	tests := []struct {
		name    string
		payload ws.MessagePayload
	}{
		{"no chat id", ws.MessagePayload{Content: "x"}},
		{"no content", ws.MessagePayload{ChatID: "c1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := service.HandleMessage(alice, tc.payload); err != ErrMissingField {
				t.Errorf("error = %v; want ErrMissingField", err)
			}
		})
	}
}

func TestMessageSkipsUnknownAttachments(t *testing.T) {
	service, _, repo, alice, _, _ := setupChatScene(t)
	repo.attachments["att-ok"] = &entity.Attachment{ID: "att-ok", ChatID: "c1", TenantID: "t1"}

	err := service.HandleMessage(alice, ws.MessagePayload{
		ChatID:        "c1",
		Content:       "with files",
		AttachmentIDs: []string{"att-ok", "att-missing"},
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	for _, msg := range repo.messages {
		if len(msg.Attachments) != 1 || msg.Attachments[0].ID != "att-ok" {
			t.Errorf("attachments = %+v; want just att-ok", msg.Attachments)
		}
	}
}

func TestEditMessageSenderOnly(t *testing.T) {
	service, _, repo, alice, bob, _ := setupChatScene(t)

	if err := service.HandleMessage(alice, ws.MessagePayload{ChatID: "c1", Content: "original"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	var msgID string
	for id := range repo.messages {
		msgID = id
	}

	// Another participant cannot edit.
	err := service.HandleEditMessage(bob, ws.EditMessagePayload{MessageID: msgID, Content: "hijacked"})
	if err != ErrNotSender {
		t.Fatalf("edit by non-sender error = %v; want ErrNotSender", err)
	}
	if repo.messages[msgID].Content != "original" {
		t.Error("rejected edit must not change content")
	}

	// The sender can, and both members see the delta broadcast.
	if err := service.HandleEditMessage(alice, ws.EditMessagePayload{MessageID: msgID, Content: "fixed"}); err != nil {
		t.Fatalf("HandleEditMessage: %v", err)
	}
	stored := repo.messages[msgID]
	if stored.Content != "fixed" || !stored.Edited || stored.EditedAt == nil {
		t.Errorf("after edit: content=%q edited=%v editedAt=%v", stored.Content, stored.Edited, stored.EditedAt)
	}
	for name, conn := range map[string]*testConn{"alice": alice, "bob": bob} {
		if len(conn.eventsOfType(ws.EvMessageEdited)) != 1 {
			t.Errorf("expected %s to receive messageEdited", name)
		}
	}
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	service, _, repo, alice, bob, _ := setupChatScene(t)

	if err := service.HandleMessage(alice, ws.MessagePayload{ChatID: "c1", Content: "oops"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	var msgID string
	for id := range repo.messages {
		msgID = id
	}

	if err := service.HandleDeleteMessage(bob, ws.DeleteMessagePayload{MessageID: msgID}); err != ErrNotSender {
		t.Fatalf("delete by non-sender error = %v; want ErrNotSender", err)
	}

	if err := service.HandleDeleteMessage(alice, ws.DeleteMessagePayload{MessageID: msgID}); err != nil {
		t.Fatalf("HandleDeleteMessage: %v", err)
	}
	if _, ok := repo.messages[msgID]; ok {
		t.Error("message must be removed from the store")
	}
	if len(bob.eventsOfType(ws.EvMessageDeleted)) != 1 {
		t.Error("expected bob to receive messageDeleted")
	}

	if err := service.HandleDeleteMessage(alice, ws.DeleteMessagePayload{MessageID: msgID}); err != ErrMessageNotFound {
		t.Errorf("double delete error = %v; want ErrMessageNotFound", err)
	}
}

func TestMarkMessageReadIdempotentStorage(t *testing.T) {
	service, _, repo, alice, bob, _ := setupChatScene(t)

	if err := service.HandleMessage(alice, ws.MessagePayload{ChatID: "c1", Content: "read me"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	var msgID string
	for id := range repo.messages {
		msgID = id
	}

	for i := 0; i < 3; i++ {
		if err := service.HandleMarkMessageRead(bob, ws.MarkMessageReadPayload{MessageID: msgID}); err != nil {
			t.Fatalf("HandleMarkMessageRead #%d: %v", i+1, err)
		}
	}

	// One receipt row regardless of repeats; one broadcast per call.
	if got := len(repo.receipts); got != 1 {
		t.Errorf("receipt rows = %d; want 1", got)
	}
	if got := len(alice.eventsOfType(ws.EvMessageRead)); got != 3 {
		t.Errorf("messageRead broadcasts seen by alice = %d; want 3", got)
	}
}

func TestMarkMessageReadUnknownMessage(t *testing.T) {
	service, _, _, _, bob, _ := setupChatScene(t)

	if err := service.HandleMarkMessageRead(bob, ws.MarkMessageReadPayload{MessageID: "nope"}); err != ErrMessageNotFound {
		t.Fatalf("error = %v; want ErrMessageNotFound", err)
	}
}

func TestMarkNotificationReadOwnership(t *testing.T) {
	service, _, repo, alice, bob, _ := setupChatScene(t)

	if err := service.HandleMessage(alice, ws.MessagePayload{ChatID: "c1", Content: "ping"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	ntf := repo.notificationsFor("bob")[0]

	// Alice cannot mark bob's notification.
	err := service.HandleMarkNotificationRead(alice, ws.MarkNotificationReadPayload{NotificationID: ntf.ID})
	if err != ErrNotificationNotFound {
		t.Fatalf("foreign mark error = %v; want ErrNotificationNotFound", err)
	}
	if ntf.Read {
		t.Error("notification must stay unread after foreign mark attempt")
	}

	if err := service.HandleMarkNotificationRead(bob, ws.MarkNotificationReadPayload{NotificationID: ntf.ID}); err != nil {
		t.Fatalf("HandleMarkNotificationRead: %v", err)
	}
	if !ntf.Read {
		t.Error("notification must be read after the owner marks it")
	}
	if len(bob.eventsOfType(ws.EvNotificationRead)) != 1 {
		t.Error("expected a notificationRead confirmation to the caller")
	}
}

func TestNotificationPushSkipsOffline(t *testing.T) {
	service, hub, repo, alice, bob, _ := setupChatScene(t)

	hub.Unregister(bob)

	if err := service.HandleMessage(alice, ws.MessagePayload{ChatID: "c1", Content: "while away"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	// The row is persisted even though no socket push was possible.
	if got := len(repo.notificationsFor("bob")); got != 1 {
		t.Fatalf("bob notifications = %d; want 1", got)
	}
	if len(bob.eventsOfType(ws.EvNotificationReceived)) != 0 {
		t.Error("offline user must not receive a socket push")
	}
}
