package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"neargrid/internal/domain"
	"neargrid/internal/service"
)

const maxCommandBytes = 1 << 20

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Feed is the part of the feed service driven over HTTP.
type Feed interface {
	ReadinessChecker
	View(ctx context.Context) (service.View, error)
	Draft(ctx context.Context) (*service.Draft, error)
	SetRadius(ctx context.Context, km float64) error
	SetUserLocation(ctx context.Context, c domain.Coordinates) error
	SetActiveCategories(ctx context.Context, categories []domain.Category) error
	SetSearchText(ctx context.Context, text string) error
	SetCompose(ctx context.Context, category domain.Category, severity domain.Severity) error
	SubmitAlert(ctx context.Context, in service.AlertInput) error
	SubmitNews(ctx context.Context, in service.NewsInput) error
	SignIn(ctx context.Context, token string) (domain.Identity, error)
	SignOut(ctx context.Context) error
	Locate(ctx context.Context) error
}

// Server exposes the command endpoint, the feed view and the health,
// readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	feed       Feed
	commands   map[string]commandHandler
	logger     *slog.Logger
}

type response struct {
	status int
	body   any
}

type commandHandler func(ctx context.Context, body []byte) (response, error)

var (
	respOK       = response{status: http.StatusOK, body: map[string]string{"status": "ok"}}
	respAccepted = response{status: http.StatusAccepted, body: map[string]string{"status": "accepted"}}
)

// NewServer creates the HTTP server and registers every route.
func NewServer(addr string, feed Feed, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		feed:   feed,
		logger: logger.With("component", "http"),
	}
	s.commands = s.commandTable()

	mux.HandleFunc("POST /api/v1/commands", s.handleCommand)
	mux.HandleFunc("GET /api/v1/feed", s.handleFeed)
	mux.HandleFunc("GET /api/v1/draft", s.handleDraft)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(feed))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) commandTable() map[string]commandHandler {
	return map[string]commandHandler{
		"set_radius": handle(func(ctx context.Context, c struct {
			RadiusKm float64 `json:"radius_km"`
		}) (response, error) {
			return respOK, s.feed.SetRadius(ctx, c.RadiusKm)
		}),
		"set_location": handle(func(ctx context.Context, c struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		}) (response, error) {
			if c.Lat == nil || c.Lng == nil {
				return response{}, domain.NewValidationError("location", "lat and lng are required")
			}
			return respOK, s.feed.SetUserLocation(ctx, domain.Coordinates{Lat: *c.Lat, Lng: *c.Lng})
		}),
		"set_categories": handle(func(ctx context.Context, c struct {
			Categories []string `json:"categories"`
		}) (response, error) {
			categories := make([]domain.Category, 0, len(c.Categories))
			for _, name := range c.Categories {
				category, err := domain.ParseCategory(name)
				if err != nil {
					return response{}, err
				}
				categories = append(categories, category)
			}
			return respOK, s.feed.SetActiveCategories(ctx, categories)
		}),
		"set_search": handle(func(ctx context.Context, c struct {
			Text string `json:"text"`
		}) (response, error) {
			return respOK, s.feed.SetSearchText(ctx, c.Text)
		}),
		"set_compose": handle(func(ctx context.Context, c struct {
			Category string `json:"category"`
			Severity string `json:"severity"`
		}) (response, error) {
			category, err := domain.ParseCategory(c.Category)
			if err != nil {
				return response{}, err
			}
			severity, err := domain.ParseSeverity(c.Severity)
			if err != nil {
				return response{}, err
			}
			return respOK, s.feed.SetCompose(ctx, category, severity)
		}),
		"submit_alert": handle(func(ctx context.Context, in service.AlertInput) (response, error) {
			return respAccepted, s.feed.SubmitAlert(ctx, in)
		}),
		"submit_news": handle(func(ctx context.Context, in service.NewsInput) (response, error) {
			return respAccepted, s.feed.SubmitNews(ctx, in)
		}),
		"sign_in": handle(func(ctx context.Context, c struct {
			Token string `json:"token"`
		}) (response, error) {
			if c.Token == "" {
				return response{}, domain.NewValidationError("token", "must not be empty")
			}
			user, err := s.feed.SignIn(ctx, c.Token)
			if err != nil {
				return response{}, err
			}
			return response{status: http.StatusOK, body: map[string]any{"status": "ok", "user": user}}, nil
		}),
		"sign_out": handle(func(ctx context.Context, _ struct{}) (response, error) {
			return respOK, s.feed.SignOut(ctx)
		}),
		"locate": handle(func(ctx context.Context, _ struct{}) (response, error) {
			return respAccepted, s.feed.Locate(ctx)
		}),
	}
}

// handle adapts a typed command function into a commandHandler that decodes
// the request body into T.
func handle[T any](fn func(ctx context.Context, cmd T) (response, error)) commandHandler {
	return func(ctx context.Context, body []byte) (response, error) {
		var cmd T
		if err := json.Unmarshal(body, &cmd); err != nil {
			return response{}, fmt.Errorf("%w: %w", errMalformed, err)
		}
		return fn(ctx, cmd)
	}
}

var errMalformed = errors.New("malformed command")

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", errMalformed, err))
		return
	}

	handler, found := s.commands[envelope.Type]
	if !found {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown command %q", envelope.Type))
		return
	}

	resp, err := handler(r.Context(), body)
	if err != nil {
		s.writeCommandError(w, envelope.Type, err)
		return
	}
	s.logger.Debug("command handled", "type", envelope.Type, "status", resp.status)
	writeJSON(w, resp.status, resp.body)
}

func (s *Server) writeCommandError(w http.ResponseWriter, command string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr.Errors))
		for _, fe := range verr.Errors {
			fields[fe.Field] = fe.Message
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": fields})
	case errors.Is(err, errMalformed):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrSubmissionPending):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrAuth):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, service.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Error("command failed", "type", command, "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	view, err := s.feed.View(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.feed.Draft(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if draft == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}
