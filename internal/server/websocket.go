package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/atomtech/cloudy/internal/search"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsInbound struct {
	Type  string              `json:"type"` // "summary_stream" or "cancel"
	Query string              `json:"query,omitempty"`
	Items []search.StreamItem `json:"items,omitempty"`
}

type wsOutbound struct {
	Type    string `json:"type"` // "chunk", "done" or "error"
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsSession is one websocket connection. At most one summary stream runs at
// a time; a new request supersedes the previous one by canceling its context.
type wsSession struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex // protects conn writes

	mu     sync.Mutex
	gen    int                // bumped per stream, guards stale cleanup
	cancel context.CancelFunc // active stream, nil when idle
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := &wsSession{conn: conn, logger: s.logger}
	s.logger.Info("websocket client connected", "remote", r.RemoteAddr)

	// The read loop runs inline: returning from the handler would cancel
	// r.Context and with it every in-flight stream.
	defer func() {
		sess.cancelActive()
		conn.Close()
		s.logger.Info("websocket client disconnected", "remote", r.RemoteAddr)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("websocket read error", "error", err)
			}
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("websocket invalid json", "error", err)
			continue
		}

		switch msg.Type {
		case "summary_stream":
			s.startStream(r.Context(), sess, msg)
		case "cancel":
			sess.cancelActive()
		}
	}
}

// startStream replaces any running stream with a new one. The superseded
// stream sees its context cancel and stops at the next chunk boundary.
func (s *Server) startStream(parent context.Context, sess *wsSession, msg wsInbound) {
	ctx, cancel := context.WithCancel(parent)
	gen := sess.swapActive(cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer sess.clearActive(gen, cancel)

		err := s.summarizer.StreamSummary(ctx, msg.Query, msg.Items, func(chunk string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return sess.write(wsOutbound{Type: "chunk", Content: chunk})
		})

		if ctx.Err() != nil {
			// Superseded or the client went away; nothing to report.
			return
		}
		if err != nil {
			s.logger.Warn("summary stream failed", "error", err)
			sess.write(wsOutbound{Type: "error", Message: "Streaming failed. Please try again."})
			return
		}
		sess.write(wsOutbound{Type: "done"})
	}()
}

func (ws *wsSession) write(msg wsOutbound) error {
	data, _ := json.Marshal(msg)
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

func (ws *wsSession) swapActive(cancel context.CancelFunc) int {
	ws.mu.Lock()
	prev := ws.cancel
	ws.gen++
	gen := ws.gen
	ws.cancel = cancel
	ws.mu.Unlock()
	if prev != nil {
		prev()
	}
	return gen
}

// clearActive drops the active cancel func, but only if it still belongs to
// this stream; a newer stream may have replaced it already.
func (ws *wsSession) clearActive(gen int, cancel context.CancelFunc) {
	cancel()
	ws.mu.Lock()
	if ws.gen == gen {
		ws.cancel = nil
	}
	ws.mu.Unlock()
}

func (ws *wsSession) cancelActive() {
	ws.mu.Lock()
	cancel := ws.cancel
	ws.cancel = nil
	ws.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
