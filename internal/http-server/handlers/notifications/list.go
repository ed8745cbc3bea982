package notifications

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"clinichat/entity"
	"clinichat/internal/lib/api/cont"
	"clinichat/internal/lib/api/response"
)

// Core defines what the notification handlers need from the persistence layer.
type Core interface {
	GetUnreadNotifications(tenantID, userID string) ([]entity.Notification, error)
}

// ListUnread returns the caller's unread notifications, newest first.
func ListUnread(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := cont.GetUser(r.Context())
		if user == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		notifications, err := handler.GetUnreadNotifications(user.TenantID, user.UserID)
		if err != nil {
			log.Error("failed to get notifications",
				slog.String("user_id", user.UserID),
				slog.String("error", err.Error()),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to get notifications"))
			return
		}

		if notifications == nil {
			notifications = []entity.Notification{}
		}

		render.JSON(w, r, response.Ok(notifications))
	}
}
