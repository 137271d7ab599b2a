// Package server exposes sessions over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"vacciassist/internal/schedule"
	"vacciassist/internal/session"
)

type Config struct {
	BodyLimitMB int
	// IdleTimeout discards sessions unused for this long; zero keeps them.
	IdleTimeout time.Duration
}

type Server struct {
	app    *fiber.App
	store  *session.Store
	cfg    Config
	logger *slog.Logger
}

func New(store *session.Store, table *schedule.Table, cfg Config) *Server {
	if cfg.BodyLimitMB <= 0 {
		cfg.BodyLimitMB = 20
	}
	var (
		app = fiber.New(fiber.Config{
			ErrorHandler:          ErrorHandler,
			BodyLimit:             cfg.BodyLimitMB << 20,
			DisableStartupMessage: true,
		})
		checkHandler    = NewCheckHandler()
		sessionHandler  = NewSessionHandler(store)
		scheduleHandler = NewScheduleHandler(table)
		check           = app.Group("/check")
		apiv1           = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1.Post("/sessions", sessionHandler.HandleCreate)
	apiv1.Delete("/sessions/:id", sessionHandler.HandleDelete)
	apiv1.Put("/sessions/:id/document", sessionHandler.HandleUpload)
	apiv1.Post("/sessions/:id/ask", sessionHandler.HandleAsk)
	apiv1.Get("/sessions/:id/messages", sessionHandler.HandleMessages)
	apiv1.Delete("/sessions/:id/messages", sessionHandler.HandleClear)
	apiv1.Get("/sessions/:id/transcript", sessionHandler.HandleTranscript)
	apiv1.Get("/schedule", scheduleHandler.HandleLookup)

	return &Server{
		app:    app,
		store:  store,
		cfg:    cfg,
		logger: slog.Default().With("component", "http"),
	}
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- s.app.Listen(addr)
	}()

	var sweep <-chan time.Time
	if s.cfg.IdleTimeout > 0 {
		ticker := time.NewTicker(min(s.cfg.IdleTimeout, time.Minute))
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case err := <-errCh:
			return err
		case <-sweep:
			s.store.Sweep(s.cfg.IdleTimeout)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
				return err
			}
			if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.Info("server stopped")
			return nil
		}
	}
}
