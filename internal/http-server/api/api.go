package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"sortec/internal/config"
	errHandlers "sortec/internal/http-server/handlers/errors"
	"sortec/internal/http-server/handlers/registration"
	"sortec/internal/http-server/middleware/requestlog"
	"sortec/internal/http-server/middleware/timeout"
	"sortec/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 5 * time.Second

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	registration.Core
}

// NewRouter builds the route tree. A nil gatherer leaves /metrics out.
func NewRouter(log *slog.Logger, handler Handler, gatherer prometheus.Gatherer) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestlog.New(log))
	router.Use(middleware.Recoverer)
	router.Use(timeout.Timeout(requestTimeout))

	router.NotFound(errHandlers.NotFound(log))
	router.MethodNotAllowed(errHandlers.NotAllowed(log))

	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(render.SetContentType(render.ContentTypeJSON))
		rootApi.Route("/registrations", func(reg chi.Router) {
			reg.Get("/", registration.List(log, handler))
			reg.Post("/", registration.Create(log, handler))
			reg.Get("/count", registration.Count(log, handler))
			reg.Get("/code/{code}", registration.GetByCode(log, handler))
			reg.Get("/{id}", registration.Get(log, handler))
			reg.Put("/{id}", registration.Update(log, handler))
			reg.Delete("/{id}", registration.Delete(log, handler))
			// GET variants serve the links embedded in the admin review mail
			reg.Get("/{id}/approve", registration.Approve(log, handler))
			reg.Post("/{id}/approve", registration.Approve(log, handler))
			reg.Get("/{id}/deny", registration.Deny(log, handler))
			reg.Post("/{id}/deny", registration.Deny(log, handler))
		})
	})

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler, gatherer prometheus.Gatherer) *Server {
	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	return &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
		httpServer: &http.Server{
			Handler:      NewRouter(log, handler, gatherer),
			ErrorLog:     httpLog,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Run serves until ctx is canceled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIp, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	s.log.Info("starting api server", slog.String("address", serverAddress))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("stopping api server")
	if err = s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
