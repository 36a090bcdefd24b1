package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/voicedesk/internal/session"
	"github.com/ziadkadry99/voicedesk/internal/voice"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming websocket message format.
type wsRequest struct {
	Type    string       `json:"type"`
	Text    string       `json:"text,omitempty"`
	Words   []voice.Word `json:"words,omitempty"`
	Summary string       `json:"summary,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	clientID := uuid.New().String()
	sessionID := s.machine.StartSession()

	s.hub.Register(clientID, conn)
	defer func() {
		s.hub.Unregister(clientID)
		s.machine.CloseSession(sessionID)
	}()

	s.hub.SendTo(clientID, NewEvent("connection_established", map[string]any{
		"client_id":  clientID,
		"session_id": sessionID,
	}))
	s.hub.SendTo(clientID, NewEvent("system_status", s.statusData()))
	s.sendHistory(clientID, sessionID)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read from %s: %v", clientID, err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.hub.SendTo(clientID, NewEvent("error", map[string]any{"message": "invalid message format"}))
			continue
		}

		switch req.Type {
		case "ping":
			s.hub.SendTo(clientID, NewEvent("pong", nil))
		case "request_status":
			s.hub.SendTo(clientID, NewEvent("system_status", s.statusData()))
		case "utterance":
			if req.Text == "" {
				s.hub.SendTo(clientID, NewEvent("error", map[string]any{"message": "text is required"}))
				continue
			}
			// Turns run async so the read loop keeps consuming barge-in
			// partials while the reply is playing.
			go s.runTurn(clientID, sessionID, req.Text)
		case "partial":
			s.machine.PushPartial(sessionID, req.Words)
		case "manual_escalation":
			if _, err := s.machine.ManualEscalate(r.Context(), sessionID, req.Summary); err != nil {
				s.hub.SendTo(clientID, NewEvent("error", map[string]any{"message": err.Error()}))
			}
		case "close_session":
			return
		default:
			s.hub.SendTo(clientID, NewEvent("error", map[string]any{"message": "unknown message type: " + req.Type}))
		}
	}
}

func (s *Server) runTurn(clientID, sessionID, text string) {
	if _, err := s.machine.ProcessUtterance(context.Background(), sessionID, text); err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			s.hub.SendTo(clientID, NewEvent("error", map[string]any{"message": "session expired"}))
			return
		}
		log.Printf("server: turn failed for session %s: %v", sessionID, err)
		s.hub.SendTo(clientID, NewEvent("error", map[string]any{"message": "turn failed"}))
	}
}

func (s *Server) sendHistory(clientID, sessionID string) {
	history, err := s.machine.History(sessionID)
	if err != nil {
		return
	}
	s.hub.SendTo(clientID, NewEvent("conversation_history", map[string]any{
		"session_id": sessionID,
		"messages":   history,
	}))
}
