package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"citywords/internal/adminhttp/handlers/admin"
	"citywords/internal/adminhttp/handlers/errors"
	"citywords/internal/adminhttp/middleware/authenticate"
	"citywords/internal/adminhttp/middleware/timeout"
	"citywords/internal/config"
	"citywords/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

// New starts the out-of-scope admin HTTP surface: a login endpoint and a
// handful of route stubs (health check, theme/question placeholders)
// behind the shared-session-key middleware. None of it touches the game
// core; it exists only so the surface has shapes to authenticate against.
func New(conf *config.Config, log *slog.Logger) (*Server, error) {
	server := &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	adminUser := conf.Admin.AdminUser()

	router := chi.NewRouter()
	router.Use(timeout.Timeout(30))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/health", admin.Health(log))
	router.Post("/login", admin.Login(log, adminUser, conf.Admin.Password, conf.Admin.SessionKey))

	router.Route("/v1", func(v1 chi.Router) {
		v1.Use(authenticate.New(log, conf.Admin.SessionKey, adminUser))
		v1.Get("/themes", admin.ListThemes(log))
		v1.Get("/questions", admin.ListQuestions(log))
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return nil, err
	}

	server.log.Info("starting admin http server", slog.String("address", serverAddress))

	go func() {
		if err := server.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			server.log.Error("http server error", sl.Err(err))
		}
	}()

	return server, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down admin http server")
	return s.httpServer.Shutdown(ctx)
}
