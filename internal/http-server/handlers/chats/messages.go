package chats

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"clinichat/entity"
	"clinichat/internal/lib/api/cont"
	"clinichat/internal/lib/api/response"
)

// Messages returns paginated history for a chat, newest first. Only active
// participants may read.
func Messages(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := cont.GetUser(r.Context())
		if user == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		chatID := chi.URLParam(r, "chat_id")
		if chatID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("chat_id is required"))
			return
		}

		ok, err := handler.IsParticipant(chatID, user.UserID)
		if err != nil {
			log.Error("failed to check participant",
				slog.String("chat_id", chatID),
				slog.String("error", err.Error()),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to get messages"))
			return
		}
		if !ok {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("You are not a participant of this chat"))
			return
		}

		limit := 50
		offset := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
				limit = v
			}
		}
		if o := r.URL.Query().Get("offset"); o != "" {
			if v, err := strconv.Atoi(o); err == nil && v >= 0 {
				offset = v
			}
		}

		messages, err := handler.GetChatMessages(chatID, limit, offset)
		if err != nil {
			log.Error("failed to get chat messages",
				slog.String("chat_id", chatID),
				slog.String("error", err.Error()),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to get messages"))
			return
		}

		if messages == nil {
			messages = []entity.Message{}
		}

		render.JSON(w, r, response.Ok(messages))
	}
}
