package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/export"
	"github.com/ArCaneSec/apidock/internal/importer"
	"github.com/ArCaneSec/apidock/internal/logging"
	"github.com/ArCaneSec/apidock/internal/notifs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	API      *apidoc.Service
	Exports  *export.Renderer
	Importer *importer.Importer
	Notify   notifs.Notify

	// JWTSecret switches identity from the X-User-Id header to HS256 bearer
	// tokens.
	JWTSecret string
	Log       *slog.Logger
}

type Server struct {
	api      *apidoc.Service
	exports  *export.Renderer
	importer *importer.Importer
	notify   notifs.Notify
	auth     authenticator
	log      *slog.Logger
}

func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}
	n := d.Notify
	if n == nil {
		n = notifs.NewNotif("", log)
	}
	return &Server{
		api:      d.API,
		exports:  d.Exports,
		importer: d.Importer,
		notify:   n,
		auth:     authenticator{secret: []byte(d.JWTSecret)},
		log:      log.With("component", "server"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: slog.NewLogLogger(s.log.Handler(), slog.LevelInfo), NoColor: true}))
	r.Use(s.recovery)
	r.Use(jsonContentType)
	r.Use(s.identify)

	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", s.listProjects)
		r.Get("/groups", s.listGroups)
		r.Get("/apis", s.listAPIs)
		r.Get("/apis/info", s.getAPI)
		r.Get("/history", s.listRequestHistory)
		r.Get("/operations", s.listOperationHistory)
		r.Get("/export", s.exportCatalogue)
		r.Get("/export/download", s.downloadExport)

		r.Group(func(r chi.Router) {
			r.Use(requireActor)

			r.Post("/projects", s.createProject)

			r.Post("/groups", s.createGroup)
			r.Post("/groups/rename", s.renameGroup)
			r.Post("/groups/delete", s.deleteGroup)
			r.Post("/groups/second", s.createSecondGroup)
			r.Post("/groups/second/rename", s.renameSecondGroup)
			r.Post("/groups/second/delete", s.deleteSecondGroup)

			r.Post("/apis", s.createAPI)
			r.Post("/apis/update", s.updateAPI)
			r.Post("/apis/delete", s.deleteAPIs)
			r.Post("/apis/group", s.reassignGroup)
			r.Post("/apis/import", s.importAPIs)

			r.Post("/history", s.addRequestHistory)
			r.Post("/history/delete", s.deleteRequestHistory)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route_not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}

// Run serves until the first interrupt, then drains in-flight requests and
// calls onShutdown. A second interrupt terminates immediately.
func (s *Server) Run(addr string, onShutdown func()) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer signal.Stop(sig)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sig
		s.log.Info("received signal, shutting down")

		go func() {
			<-sig
			s.log.Error("received second signal, terminating immediately")
			os.Exit(1)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			s.log.Error("http shutdown", "error", err)
		}
		if onShutdown != nil {
			onShutdown()
		}
	}()

	s.log.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done

	s.log.Info("server stopped")
	return nil
}
