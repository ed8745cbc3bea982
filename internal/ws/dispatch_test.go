package ws

import (
	"encoding/json"
	"errors"
	"testing"
)

var errTest = errors.New("you cannot do that")

type recordingHandler struct {
	joins     []JoinPayload
	messages  []MessagePayload
	typing    []TypingPayload
	markReads []MarkMessageReadPayload
	err       error
}

func (h *recordingHandler) HandleJoin(conn Conn, p JoinPayload) error {
	h.joins = append(h.joins, p)
	return h.err
}
func (h *recordingHandler) HandleJoinChat(conn Conn, p JoinChatPayload) error   { return h.err }
func (h *recordingHandler) HandleLeaveChat(conn Conn, p LeaveChatPayload) error { return h.err }
func (h *recordingHandler) HandleMessage(conn Conn, p MessagePayload) error {
	h.messages = append(h.messages, p)
	return h.err
}
func (h *recordingHandler) HandleEditMessage(conn Conn, p EditMessagePayload) error     { return h.err }
func (h *recordingHandler) HandleDeleteMessage(conn Conn, p DeleteMessagePayload) error { return h.err }
func (h *recordingHandler) HandleMarkMessageRead(conn Conn, p MarkMessageReadPayload) error {
	h.markReads = append(h.markReads, p)
	return h.err
}
func (h *recordingHandler) HandleTyping(conn Conn, p TypingPayload) error {
	h.typing = append(h.typing, p)
	return h.err
}
func (h *recordingHandler) HandleUploadFile(conn Conn, p UploadFilePayload) error { return h.err }
func (h *recordingHandler) HandleMarkNotificationRead(conn Conn, p MarkNotificationReadPayload) error {
	return h.err
}
func (h *recordingHandler) HandleDisconnect(conn Conn) {}

func TestDispatchRoutesKnownEvents(t *testing.T) {
	hub := newTestHub()
	handler := &recordingHandler{}
	hub.SetHandler(handler)
	conn := newFakeConn("u1", "t1")

	frame := func(eventType string, data interface{}) []byte {
		raw, err := json.Marshal(map[string]interface{}{"type": eventType, "data": data})
		if err != nil {
			t.Fatal(err)
		}
		return raw
	}

	hub.HandleClientMessage(conn, frame(EvJoin, JoinPayload{TenantID: "t1", UserID: "u1"}))
	hub.HandleClientMessage(conn, frame(EvMessage, map[string]string{"chatId": "c1", "content": "hi"}))
	hub.HandleClientMessage(conn, frame(EvTyping, map[string]interface{}{"chatId": "c1", "isTyping": true}))

	if len(handler.joins) != 1 || handler.joins[0].TenantID != "t1" {
		t.Errorf("join not routed: %+v", handler.joins)
	}
	if len(handler.messages) != 1 || handler.messages[0].Content != "hi" {
		t.Errorf("message not routed: %+v", handler.messages)
	}
	if len(handler.typing) != 1 || !handler.typing[0].IsTyping {
		t.Errorf("typing not routed: %+v", handler.typing)
	}
	if len(conn.eventsOfType(EvError)) != 0 {
		t.Errorf("unexpected error events: %v", conn.events)
	}
}

func TestDispatchLegacyReadReceiptFieldName(t *testing.T) {
	hub := newTestHub()
	handler := &recordingHandler{}
	hub.SetHandler(handler)
	conn := newFakeConn("u1", "t1")

	// The read-receipt payload keeps its historical field name.
	hub.HandleClientMessage(conn, []byte(`{"type":"markMessageRead","data":{"mensagemId":"m1"}}`))

	if len(handler.markReads) != 1 || handler.markReads[0].MessageID != "m1" {
		t.Errorf("mensagemId not decoded: %+v", handler.markReads)
	}
}

func TestDispatchUnknownEventType(t *testing.T) {
	hub := newTestHub()
	hub.SetHandler(&recordingHandler{})
	conn := newFakeConn("u1", "t1")

	hub.HandleClientMessage(conn, []byte(`{"type":"teleport","data":{}}`))

	errs := conn.eventsOfType(EvError)
	if len(errs) != 1 {
		t.Fatalf("expected one error event, got %d", len(errs))
	}
}

func TestDispatchMalformedFrame(t *testing.T) {
	hub := newTestHub()
	hub.SetHandler(&recordingHandler{})
	conn := newFakeConn("u1", "t1")

	hub.HandleClientMessage(conn, []byte(`{not json`))

	if len(conn.eventsOfType(EvError)) != 1 {
		t.Fatal("expected an error event for a malformed frame")
	}
}

func TestDispatchPing(t *testing.T) {
	hub := newTestHub()
	hub.SetHandler(&recordingHandler{})
	conn := newFakeConn("u1", "t1")

	hub.HandleClientMessage(conn, []byte(`{"type":"ping"}`))

	if len(conn.eventsOfType(EvPong)) != 1 {
		t.Fatal("expected a pong in reply to ping")
	}
}

func TestDispatchHandlerErrorBecomesErrorEvent(t *testing.T) {
	hub := newTestHub()
	hub.SetHandler(&recordingHandler{err: errTest})
	conn := newFakeConn("u1", "t1")

	hub.HandleClientMessage(conn, []byte(`{"type":"joinChat","data":{"chatId":"c1"}}`))

	errs := conn.eventsOfType(EvError)
	if len(errs) != 1 {
		t.Fatalf("expected one error event, got %d", len(errs))
	}
	if errs[0].Data != errTest.Error() {
		t.Errorf("error payload = %v; want %q", errs[0].Data, errTest.Error())
	}
}
