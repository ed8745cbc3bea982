package chat

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"clinichat/entity"
	"clinichat/internal/ws"
)

func TestUploadFileStoresAndBroadcasts(t *testing.T) {
	service, _, repo, alice, bob, _ := setupChatScene(t)

	err := service.HandleUploadFile(alice, ws.UploadFilePayload{
		ChatID: "c1",
		File: ws.FilePayload{
			Name:     "scan.png",
			MIMEType: "image/png",
			Data:     bytes.Repeat([]byte{0xAB}, 2048),
		},
	})
	if err != nil {
		t.Fatalf("HandleUploadFile: %v", err)
	}

	if len(repo.attachments) != 1 {
		t.Fatalf("stored attachments = %d; want 1", len(repo.attachments))
	}
	var attachment *entity.Attachment
	for _, a := range repo.attachments {
		attachment = a
	}
	if attachment.Category != entity.FileImage {
		t.Errorf("category = %s; want IMAGE", attachment.Category)
	}
	if attachment.Size != 2048 {
		t.Errorf("size = %d; want 2048", attachment.Size)
	}
	if !strings.HasPrefix(attachment.URL, "/api/v1/files/") {
		t.Errorf("url = %q; want a files download path", attachment.URL)
	}

	// A placeholder message rides the normal pipeline.
	if len(repo.messages) != 1 {
		t.Fatalf("stored messages = %d; want 1", len(repo.messages))
	}
	for _, msg := range repo.messages {
		if msg.Content != "File sent: scan.png" {
			t.Errorf("placeholder content = %q", msg.Content)
		}
		if len(msg.Attachments) != 1 {
			t.Errorf("placeholder attachments = %d; want 1", len(msg.Attachments))
		}
	}

	for name, conn := range map[string]*testConn{"alice": alice, "bob": bob} {
		if len(conn.eventsOfType(ws.EvNewMessage)) != 1 {
			t.Errorf("expected %s to receive newMessage", name)
		}
		if len(conn.eventsOfType(ws.EvFileUploaded)) != 1 {
			t.Errorf("expected %s to receive fileUploaded", name)
		}
	}

	// Uploads notify like any other message.
	if got := len(repo.notificationsFor("bob")); got != 1 {
		t.Errorf("bob notifications = %d; want 1", got)
	}
}

func TestUploadFileRejectsOversized(t *testing.T) {
	service, _, repo, alice, _, _ := setupChatScene(t)

	err := service.HandleUploadFile(alice, ws.UploadFilePayload{
		ChatID: "c1",
		File: ws.FilePayload{
			Name:     "huge.mp4",
			MIMEType: "video/mp4",
			Data:     make([]byte, maxTestFileSize+1),
		},
	})
	if !errors.Is(err, entity.ErrFileTooLarge) {
		t.Fatalf("error = %v; want ErrFileTooLarge", err)
	}
	if len(repo.attachments) != 0 {
		t.Error("oversized file must not be stored")
	}
	if len(repo.messages) != 0 {
		t.Error("oversized upload must not create a message")
	}
}

func TestUploadFileRejectsDisallowedType(t *testing.T) {
	service, _, repo, alice, _, _ := setupChatScene(t)

	err := service.HandleUploadFile(alice, ws.UploadFilePayload{
		ChatID: "c1",
		File: ws.FilePayload{
			Name:     "tool.exe",
			MIMEType: "application/x-msdownload",
			Data:     []byte{0x4D, 0x5A},
		},
	})
	if !errors.Is(err, entity.ErrFileTypeNotAllowed) {
		t.Fatalf("error = %v; want ErrFileTypeNotAllowed", err)
	}
	if len(repo.attachments) != 0 {
		t.Error("disallowed file must not be stored")
	}
}

func TestUploadFileRejectsNonParticipant(t *testing.T) {
	service, _, repo, _, _, mallory := setupChatScene(t)

	err := service.HandleUploadFile(mallory, ws.UploadFilePayload{
		ChatID: "c1",
		File: ws.FilePayload{
			Name:     "note.pdf",
			MIMEType: "application/pdf",
			Data:     []byte("pdf"),
		},
	})
	if err != ErrNotParticipant {
		t.Fatalf("error = %v; want ErrNotParticipant", err)
	}
	if len(repo.attachments) != 0 {
		t.Error("outsider upload must not be stored")
	}
}

func TestUploadFileMissingFields(t *testing.T) {
	service, _, _, alice, _, _ := setupChatScene(t)

	tests := []struct {
		name    string
		payload ws.UploadFilePayload
	}{
		{"no chat id", ws.UploadFilePayload{File: ws.FilePayload{Name: "a.png", MIMEType: "image/png", Data: []byte{1}}}},
		{"no name", ws.UploadFilePayload{ChatID: "c1", File: ws.FilePayload{MIMEType: "image/png", Data: []byte{1}}}},
		{"no data", ws.UploadFilePayload{ChatID: "c1", File: ws.FilePayload{Name: "a.png", MIMEType: "image/png"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := service.HandleUploadFile(alice, tc.payload); err != ErrMissingField {
				t.Errorf("error = %v; want ErrMissingField", err)
			}
		})
	}
}
