package chats

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"clinichat/entity"
	"clinichat/internal/lib/api/cont"
	"clinichat/internal/lib/api/response"
)

// List returns the caller's chats within their tenant, each with its
// participants, last message and unread count. This is the fetch-on-open
// path clients use to catch up after missing live events.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := cont.GetUser(r.Context())
		if user == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		chats, err := handler.GetTenantChats(user.TenantID, user.UserID)
		if err != nil {
			log.Error("failed to get chats",
				slog.String("tenant_id", user.TenantID),
				slog.String("user_id", user.UserID),
				slog.String("error", err.Error()),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to get chats"))
			return
		}

		if chats == nil {
			chats = []entity.ChatView{}
		}

		render.JSON(w, r, response.Ok(chats))
	}
}
