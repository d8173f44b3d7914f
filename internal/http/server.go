// Package http exposes the record API over chi.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"financas/internal/amqp"
	"financas/internal/log"
	"financas/internal/metrics"
	"financas/internal/services"
	"financas/internal/store"
)

// EventPublisher publishes change events after committed writes. It is
// optional; a nil publisher disables eventing.
type EventPublisher interface {
	PublishChange(ctx context.Context, ev *amqp.ChangeEvent) error
}

type Server struct {
	store    store.RecordStore
	overview *services.OverviewService
	events   EventPublisher
	logger   *log.Logger
}

func NewServer(st store.RecordStore, overview *services.OverviewService, events EventPublisher, logger *log.Logger) *Server {
	return &Server{
		store:    st,
		overview: overview,
		events:   events,
		logger:   logger.WithComponent(log.ComponentHTTP),
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(s.requestLogger)
	r.Use(instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/incomes", func(r chi.Router) {
		r.Post("/", s.handleCreateIncome)
		r.Delete("/{id}", s.handleDeleteIncome)
	})
	r.Route("/expenses", func(r chi.Router) {
		r.Post("/", s.handleCreateExpense)
		r.Delete("/{id}", s.handleDeleteExpense)
	})
	r.Post("/categories", s.handleCreateCategory)
	r.Route("/goals", func(r chi.Router) {
		r.Post("/", s.handleCreateGoal)
		r.Delete("/{id}", s.handleDeleteGoal)
	})
	r.Post("/users", s.handleCreateUser)
	r.Put("/balance", s.handleUpsertBalance)

	r.Get("/overview", s.handleOverview)
	r.Get("/summary", s.handleSummary)
	r.Get("/export", s.handleExport)
	r.Post("/import", s.handleImport)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.overview.Ready():
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	default:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
	}
}

// publish sends a change event when eventing is enabled. Publish failures
// are logged, never surfaced to the caller; the write already committed.
func (s *Server) publish(ctx context.Context, entity, kind, action, id string) {
	if s.events == nil {
		return
	}
	ev := amqp.NewChangeEvent(entity, kind, action, id)
	if err := s.events.PublishChange(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change event",
			"entity", entity,
			"action", action,
			"error", err)
	}
}
