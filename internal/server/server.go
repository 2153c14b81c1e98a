// Package server exposes a council manager over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
	"github.com/gregoriusjimmy/llm-council/internal/config"
	"github.com/gregoriusjimmy/llm-council/internal/council"
)

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

// Server serves council turns.
type Server struct {
	manager        *council.Manager
	allowedOrigins []string
	gatherer       prometheus.Gatherer
	logger         *slog.Logger
}

// New creates a server for m.
func New(m *council.Manager, opts Options) *Server {
	s := &Server{
		manager:        m,
		allowedOrigins: opts.AllowedOrigins,
		gatherer:       opts.Gatherer,
		logger:         opts.Logger,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.Handle("/prometheus", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/council", s.getCouncilHandler).Methods("GET")
	api.HandleFunc("/council", s.putCouncilHandler).Methods("PUT")
	api.HandleFunc("/models/check", s.checkModelsHandler).Methods("GET")
	api.HandleFunc("/turns", s.turnHandler).Methods("POST")
	api.HandleFunc("/turns/ws", s.turnSocketHandler).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// TurnRequest is the body of a turn.
type TurnRequest struct {
	Prompt  string            `json:"prompt"`
	History []backend.Message `json:"history"`
}

// TurnResponse is the result of a completed turn.
type TurnResponse struct {
	TurnID     string                  `json:"turn_id"`
	Results    []council.AdvisorResult `json:"results"`
	CritiqueOK bool                    `json:"critique_ok"`
	Answer     string                  `json:"answer,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// CouncilRequest replaces the council.
type CouncilRequest struct {
	ChairmanModel string                  `json:"chairman_model"`
	Advisors      []council.AdvisorConfig `json:"advisors"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	c := s.manager.Council()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"advisors":  len(c.Advisors),
		"chairman":  c.Chairman.Model,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) getCouncilHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Council())
}

func (s *Server) putCouncilHandler(w http.ResponseWriter, r *http.Request) {
	var req CouncilRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cf := config.CouncilFile{ChairmanModel: req.ChairmanModel, Advisors: req.Advisors}
	if err := cf.Validate(); err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.manager.SetCouncil(req.Advisors, req.ChairmanModel)
	writeJSON(w, http.StatusOK, s.manager.Council())
}

func (s *Server) checkModelsHandler(w http.ResponseWriter, r *http.Request) {
	missing, err := s.manager.CheckModelsAvailability(r.Context())
	if err != nil {
		s.logger.Warn("model availability check failed", "error", err)
		sendErrorResponse(w, err.Error(), http.StatusBadGateway)
		return
	}
	if missing == nil {
		missing = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"missing": missing})
}

func (s *Server) turnHandler(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		sendErrorResponse(w, "prompt is required", http.StatusBadRequest)
		return
	}

	turn, err := s.manager.RunTurn(r.Context(), req.Prompt, req.History, council.Hooks{})
	resp := TurnResponse{
		TurnID:     turn.ID,
		Results:    turn.Results,
		CritiqueOK: turn.CritiqueOK,
	}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	defer turn.Stream.Close()

	answer, err := backend.ReadAll(turn.Stream)
	resp.Answer = answer
	if err != nil {
		s.logger.Warn("synthesis stream broke", "turn", turn.ID, "error", err)
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}
