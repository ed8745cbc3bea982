package files

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"clinichat/entity"
	"clinichat/internal/http-server/middleware/authenticate"
	"clinichat/internal/lib/fileurl"
)

// Core defines what the file handlers need from the storage layer.
type Core interface {
	OpenFile(attachmentID string) (*entity.Attachment, io.ReadCloser, error)
}

// Download streams a stored attachment to the HTTP response.
// Endpoint: GET /api/v1/files/{file_id}
// Accepts auth via Authorization header, ?token= query param (for <img src>
// / <a href>), or a signed expiring URL produced by fileurl.SignURL.
func Download(log *slog.Logger, handler Core, auth authenticate.Authenticate, urlSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := chi.URLParam(r, "file_id")
		if fileID == "" {
			http.Error(w, "file_id is required", http.StatusBadRequest)
			return
		}

		var user *entity.UserAuth

		signed := urlSecret != "" &&
			fileurl.Verify(fileID, r.URL.Query().Get("expires"), r.URL.Query().Get("sig"), urlSecret)

		if !signed {
			token := ""
			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				token = header[7:]
			}
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			var err error
			user, err = auth.AuthenticateByToken(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		attachment, reader, err := handler.OpenFile(fileID)
		if err != nil {
			log.Error("failed to open file",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer reader.Close()

		// Attachments are tenant-partitioned; never serve across tenants.
		// A valid signature already scopes access to one file.
		if user != nil && attachment.TenantID != user.TenantID {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", attachment.MIMEType)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("inline; filename=%q", attachment.OriginalName))

		if _, err := io.Copy(w, reader); err != nil {
			log.Error("failed to stream file",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
		}
	}
}
