package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atomtech/cloudy/internal/memory"
	"github.com/atomtech/cloudy/internal/search"
)

type Config struct {
	ListenAddr string
	Orch       *search.Orchestrator
	Summarizer *search.Summarizer
	Extractor  *memory.Extractor
	Ledger     *memory.Ledger
	Logger     *slog.Logger
}

// Server exposes the search pipeline over HTTP plus a websocket endpoint for
// streamed summaries.
type Server struct {
	listenAddr string
	orch       *search.Orchestrator
	summarizer *search.Summarizer
	extractor  *memory.Extractor
	ledger     *memory.Ledger
	logger     *slog.Logger
	server     *http.Server
	wg         sync.WaitGroup
}

func New(cfg Config) *Server {
	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	return &Server{
		listenAddr: listenAddr,
		orch:       cfg.Orch,
		summarizer: cfg.Summarizer,
		extractor:  cfg.Extractor,
		ledger:     cfg.Ledger,
		logger:     cfg.Logger.With("component", "server"),
	}
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /memory/extract", s.handleExtract)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	srvCtx, cancel := context.WithCancel(ctx)

	s.server = &http.Server{
		Addr:    s.listenAddr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return srvCtx
		},
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		cancel()
		return fmt.Errorf("server listen: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
		}
	}()

	s.logger.Info("server started", "addr", s.listenAddr)
	return nil
}

func (s *Server) Stop() {
	if s.server != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutCtx)
	}
	s.wg.Wait()
}

type searchRequest struct {
	Query     string   `json:"query"`
	Context   []string `json:"context,omitempty"`
	UserID    string   `json:"userId,omitempty"`
	SessionID string   `json:"sessionId,omitempty"`
}

type searchResponse struct {
	SessionID string `json:"sessionId"`
	search.Result
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	start := time.Now()
	res, err := s.orch.PerformDynamicSearch(r.Context(), req.Query, search.Options{
		Context:   req.Context,
		UserID:    req.UserID,
		SessionID: sessionID,
	})
	if err != nil {
		// Only cancellation reaches here; the client is already gone.
		s.logger.Debug("search canceled", "error", err)
		return
	}
	s.logger.Info("search handled", "type", res.Type, "latency_ms", time.Since(start).Milliseconds())

	writeJSON(w, http.StatusOK, searchResponse{SessionID: sessionID, Result: res})
}

type extractRequest struct {
	UserID    string              `json:"userId,omitempty"`
	SessionID string              `json:"sessionId,omitempty"`
	Turns     []memory.WindowTurn `json:"turns"`
}

type extractResponse struct {
	WindowKey           string   `json:"windowKey"`
	PermanentFacts      []string `json:"permanentFacts"`
	ConversationSummary string   `json:"conversationSummary,omitempty"`
	Skipped             bool     `json:"skipped,omitempty"`
}

// handleExtract runs fact extraction over a conversation window. The ledger
// dedupes windows so re-submitting the same conversation never re-extracts.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Turns) == 0 {
		writeError(w, http.StatusBadRequest, "turns are required")
		return
	}

	key := memory.WindowKey(req.Turns)
	if s.ledger != nil {
		seen, err := s.ledger.Seen(r.Context(), key)
		if err != nil {
			s.logger.Warn("window lookup failed", "error", err)
		} else if seen {
			writeJSON(w, http.StatusOK, extractResponse{WindowKey: key, PermanentFacts: []string{}, Skipped: true})
			return
		}
	}

	extraction := s.extractor.ExtractFromWindow(r.Context(), key, req.Turns,
		memory.IDs{UserID: req.UserID, SessionID: req.SessionID})

	if s.ledger != nil {
		if err := s.ledger.MarkSeen(r.Context(), key); err != nil {
			s.logger.Warn("marking window failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, extractResponse{
		WindowKey:           extraction.WindowKey,
		PermanentFacts:      extraction.PermanentFacts,
		ConversationSummary: extraction.ConversationSummary,
	})
}

type historyTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	turns := []historyTurn{}
	if s.ledger != nil {
		rows, err := s.ledger.History(r.Context(), sessionID, limit)
		if err != nil {
			s.logger.Warn("history lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		for _, t := range rows {
			turns = append(turns, historyTurn{Role: t.Role, Content: t.Content, CreatedAt: t.CreatedAt})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessionId": sessionID, "turns": turns})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
