// Package dashboard serves the live trading view: an HTML page rendered from the
// store plus a small JSON API for polling clients.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"tradedash/internal/exchange"
	"tradedash/internal/format"
	"tradedash/internal/logger"
	"tradedash/internal/models"
	"tradedash/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 5 * time.Second

// Controller is the part of the engine the dashboard can trigger.
type Controller interface {
	Refresh(ctx context.Context) error
	ClearError()
}

type StateSource interface {
	Snapshot() store.State
}

// Lookup resolves single entities straight from the telemetry server.
type Lookup interface {
	Order(ctx context.Context, id string) exchange.Result[*models.Order]
	Position(ctx context.Context, id string) exchange.Result[*models.Position]
}

type Options struct {
	Address         string
	RefreshInterval time.Duration
	Location        *time.Location
	Metrics         http.Handler
	Lookup          Lookup
}

type Server struct {
	opts    Options
	state   StateSource
	control Controller
	log     *logger.Logger
	page    *template.Template
	started time.Time
}

func New(opts Options, state StateSource, control Controller, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 2 * time.Second
	}

	page, err := template.New("index.html").Funcs(template.FuncMap{
		"elapsed": format.Elapsed,
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("Не удалось разобрать шаблон: %w", err)
	}

	return &Server{
		opts:    opts,
		state:   state,
		control: control,
		log:     log,
		page:    page,
		started: time.Now(),
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/error/clear", s.handleClearError)
		if s.opts.Lookup != nil {
			r.Get("/orders/{id}", s.handleOrder)
			r.Get("/positions/{id}", s.handlePosition)
		}
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logEntry().WithField("address", s.opts.Address).Info("Дашборд запущен.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("Не удалось запустить дашборд: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("Ошибка остановки дашборда: %w", err)
	}
	s.logEntry().Info("Дашборд остановлен.")
	return nil
}

type pageData struct {
	View
	RefreshSeconds int
	Uptime         time.Duration
	Now            string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		View:           BuildView(s.state.Snapshot(), s.opts.Location),
		RefreshSeconds: int(s.opts.RefreshInterval.Round(time.Second) / time.Second),
		Uptime:         time.Since(s.started),
		Now:            format.DateTime(float64(time.Now().UnixMilli()), s.opts.Location),
	}
	if data.RefreshSeconds < 1 {
		data.RefreshSeconds = 1
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.requestEntry(r).WithError(err).Error("Ошибка рендеринга страницы.")
	}
}

type stateResponse struct {
	State store.State `json:"state"`
	View  View        `json:"view"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st := s.state.Snapshot()
	s.writeJSON(w, r, http.StatusOK, stateResponse{State: st, View: BuildView(st, s.opts.Location)})
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.control.Refresh(r.Context()); err != nil {
		s.writeJSON(w, r, http.StatusOK, actionResponse{Message: err.Error()})
		return
	}
	s.writeJSON(w, r, http.StatusOK, actionResponse{Success: true})
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	s.control.ClearError()
	s.writeJSON(w, r, http.StatusOK, actionResponse{Success: true})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	res := s.opts.Lookup.Order(r.Context(), chi.URLParam(r, "id"))
	s.writeJSON(w, r, lookupStatus(res.Success, res.Data == nil), res)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	res := s.opts.Lookup.Position(r.Context(), chi.URLParam(r, "id"))
	s.writeJSON(w, r, lookupStatus(res.Success, res.Data == nil), res)
}

func lookupStatus(success, empty bool) int {
	switch {
	case !success:
		return http.StatusBadGateway
	case empty:
		return http.StatusNotFound
	}
	return http.StatusOK
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"connected": s.state.Snapshot().IsConnected,
		"uptime":    format.Elapsed(time.Since(s.started)),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.requestEntry(r).WithError(err).Warn("Не удалось записать ответ.")
	}
}

func (s *Server) logEntry() *logrus.Entry {
	return s.log.WithComponent("dashboard")
}

func (s *Server) requestEntry(r *http.Request) *logrus.Entry {
	return s.logEntry().WithField("request_id", middleware.GetReqID(r.Context()))
}
