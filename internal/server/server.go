// Package server exposes the assistant over HTTP and websocket: a REST
// surface for sessions, history, and escalations, plus a live event feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/voicedesk/internal/conversation"
	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

// statusInterval is how often the system status broadcast re-evaluates.
const statusInterval = 2 * time.Second

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server wires the state machine and escalation store to HTTP transport.
type Server struct {
	cfg         Config
	machine     *conversation.Machine
	escalations *escalation.Store
	hub         *Hub
	router      chi.Router
	httpServer  *http.Server
}

// New creates the server. The hub must be the same one registered as the
// machine's event sink.
func New(cfg Config, machine *conversation.Machine, escalations *escalation.Store, hub *Hub) *Server {
	s := &Server{
		cfg:         cfg,
		machine:     machine,
		escalations: escalations,
		hub:         hub,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/status", s.handleStatus)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Post("/sessions/{id}/utterance", s.handleUtterance)
		r.Post("/sessions/{id}/escalate", s.handleManualEscalate)
		r.Get("/sessions/{id}/history", s.handleHistory)
		r.Delete("/sessions/{id}", s.handleCloseSession)
		r.Get("/escalations", s.handleEscalations)
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.statusData())
}

// statusData builds the system status payload. It contains no timestamps so
// the broadcast loop can compare successive payloads for changes.
func (s *Server) statusData() map[string]any {
	states := s.machine.States()
	counts := map[string]int{}
	for _, st := range states {
		counts[string(st)]++
	}
	return map[string]any{
		"status":          "ok",
		"active_sessions": len(states),
		"clients":         s.hub.Count(),
		"voice_states":    counts,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.machine.StartSession()
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": id})
}

func (s *Server) handleUtterance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	resp, err := s.machine.ProcessUtterance(r.Context(), id, req.Text)
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			writeError(w, http.StatusGone, "session expired")
			return
		}
		log.Printf("server: utterance for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}
	if resp == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ignored": true})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"text":         resp.Text,
		"confidence":   resp.Confidence,
		"escalate":     resp.Escalate,
		"reason":       resp.EscalationReason,
		"contributors": resp.Contributors,
		"turn":         resp.Turn,
		"intent":       resp.Intent,
	})
}

func (s *Server) handleManualEscalate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Summary string `json:"summary"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	ev, err := s.machine.ManualEscalate(r.Context(), id, req.Summary)
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			writeError(w, http.StatusGone, "session expired")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	history, err := s.machine.History(id)
	if err != nil {
		writeError(w, http.StatusGone, "session expired")
		return
	}

	var escalations int
	if s.escalations != nil {
		escalations, err = s.escalations.CountBySession(r.Context(), id)
		if err != nil {
			log.Printf("server: count escalations for %s: %v", id, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  id,
		"messages":    history,
		"escalations": escalations,
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.machine.CloseSession(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEscalations(w http.ResponseWriter, r *http.Request) {
	if s.escalations == nil {
		writeJSON(w, http.StatusOK, []escalation.Event{})
		return
	}
	events, err := s.escalations.List(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list escalations failed")
		return
	}
	if events == nil {
		events = []escalation.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// RunStatusLoop broadcasts system status every statusInterval, but only when
// the payload actually changed since the last broadcast.
func (s *Server) RunStatusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	var last map[string]any
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := s.statusData()
			if reflect.DeepEqual(cur, last) {
				continue
			}
			last = cur
			s.hub.Broadcast(NewEvent("system_status", cur))
		}
	}
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("voicedesk server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
