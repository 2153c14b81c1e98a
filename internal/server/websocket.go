package server

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gregoriusjimmy/llm-council/internal/council"
)

const writeWait = 10 * time.Second

// Event is one message sent to a websocket client during a turn.
type Event struct {
	Type       string                 `json:"type"`
	TurnID     string                 `json:"turn_id,omitempty"`
	Phase      string                 `json:"phase,omitempty"`
	Index      *int                   `json:"index,omitempty"`
	Advisor    *council.AdvisorResult `json:"advisor,omitempty"`
	Content    string                 `json:"content,omitempty"`
	CritiqueOK *bool                  `json:"critique_ok,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// eventWriter serializes writes; advisor hooks fire from many goroutines.
type eventWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

func (w *eventWriter) send(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		w.err = err
		return err
	}
	w.err = w.conn.WriteJSON(ev)
	return w.err
}

func (s *Server) isOriginAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin)
}

// turnSocketHandler runs one turn per TurnRequest the client sends and
// streams its progress back as events.
func (s *Server) turnSocketHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.isOriginAllowed,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	out := &eventWriter{conn: conn}
	for {
		var req TurnRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		if req.Prompt == "" {
			if out.send(Event{Type: "error", Error: "prompt is required"}) != nil {
				return
			}
			continue
		}
		if err := s.streamTurn(r, out, req); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) streamTurn(r *http.Request, out *eventWriter, req TurnRequest) error {
	hooks := council.Hooks{
		OnPhase: func(p council.Phase) {
			out.send(Event{Type: "phase", Phase: p.String()})
		},
		OnAdvisor: func(i int, res council.AdvisorResult) {
			out.send(Event{Type: "advisor", Index: &i, Advisor: &res})
		},
	}

	turn, err := s.manager.RunTurn(r.Context(), req.Prompt, req.History, hooks)
	if err != nil {
		return out.send(Event{Type: "error", TurnID: turn.ID, Error: err.Error()})
	}
	defer turn.Stream.Close()

	for {
		chunk, err := turn.Stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out.send(Event{Type: "error", TurnID: turn.ID, Error: err.Error()})
		}
		if err := out.send(Event{Type: "chunk", TurnID: turn.ID, Content: chunk}); err != nil {
			return err
		}
	}

	ok := turn.CritiqueOK
	return out.send(Event{Type: "done", TurnID: turn.ID, CritiqueOK: &ok})
}
