package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"clinichat/internal/config"
	"clinichat/internal/http-server/handlers/chats"
	"clinichat/internal/http-server/handlers/errors"
	"clinichat/internal/http-server/handlers/files"
	"clinichat/internal/http-server/handlers/notifications"
	"clinichat/internal/http-server/middleware/authenticate"
	"clinichat/internal/http-server/middleware/timeout"
	"clinichat/internal/lib/api/response"
	"clinichat/internal/lib/sl"
	"clinichat/internal/ws"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

// Handler aggregates everything the REST surface needs.
type Handler interface {
	authenticate.Authenticate
	chats.Core
	notifications.Core
	files.Core
}

// New assembles the router and serves it. Blocks until the listener fails.
// The WebSocket endpoint authenticates via its own token query parameter;
// the REST routes go through the bearer-token middleware.
func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok("healthy"))
	})

	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, handler, log, w, r)
	})

	router.Route("/api/v1", func(v1 chi.Router) {
		// Download authenticates internally so <img src> links can pass
		// the token as a query parameter.
		v1.Get("/files/{file_id}", files.Download(log, handler, handler, conf.Upload.URLSigningSecret))

		v1.Group(func(g chi.Router) {
			g.Use(timeout.Timeout(15))
			g.Use(render.SetContentType(render.ContentTypeJSON))
			g.Use(authenticate.New(log, handler))

			g.Route("/chats", func(r chi.Router) {
				r.Get("/", chats.List(log, handler))
				r.Get("/{chat_id}/messages", chats.Messages(log, handler))
				r.Post("/private", chats.CreatePrivate(log, handler))
			})
			g.Route("/notifications", func(r chi.Router) {
				r.Get("/", notifications.ListUnread(log, handler))
			})
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  router,
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
