package chats

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"clinichat/internal/lib/api/cont"
	"clinichat/internal/lib/api/response"
	"clinichat/internal/lib/validate"
)

type PrivateChatRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (p *PrivateChatRequest) Bind(_ *http.Request) error {
	return validate.Struct(p)
}

// CreatePrivate opens (or returns) the private chat between the caller and
// another user. Idempotent per unordered pair within the tenant.
func CreatePrivate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := cont.GetUser(r.Context())
		if user == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		req := &PrivateChatRequest{}
		if err := render.Bind(r, req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		chat, err := handler.GetOrCreatePrivateChat(user.TenantID, user.UserID, req.UserID)
		if err != nil {
			log.Error("failed to open private chat",
				slog.String("tenant_id", user.TenantID),
				slog.String("user_id", req.UserID),
				slog.String("error", err.Error()),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to open chat"))
			return
		}

		render.JSON(w, r, response.Ok(chat))
	}
}
