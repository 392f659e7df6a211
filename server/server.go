package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dashboard_builder/config"
	"dashboard_builder/facts"
	"dashboard_builder/generator"
	"dashboard_builder/sanitize"
)

//go:embed web/dist web/dist/*
var embeddedStatic embed.FS

type Server struct {
	orch     *generator.Orchestrator
	facts    facts.Facts
	cfg      config.Config
	store    *sessionStore
	shared   *generator.Conversation
	staticFS http.Handler
	logger   *zap.Logger
}

// sessionStore 保存每个看板会话的对话上下文。
// With maxSessions > 0 the oldest session is evicted once the cap is reached.
type sessionStore struct {
	mu          sync.Mutex
	limit       int
	maxSessions int
	order       []string
	sessions    map[string]*generator.Conversation
}

func newStore(limit, maxSessions int) *sessionStore {
	return &sessionStore{
		limit:       limit,
		maxSessions: maxSessions,
		sessions:    make(map[string]*generator.Conversation),
	}
}

// create returns the new session and the id evicted to make room for it, if any.
func (s *sessionStore) create() (id string, evicted string) {
	id = uuid.NewString()
	conv := generator.NewConversation(s.limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxSessions > 0 && len(s.order) >= s.maxSessions {
		evicted = s.order[0]
		s.order = s.order[1:]
		delete(s.sessions, evicted)
	}
	s.sessions[id] = conv
	s.order = append(s.order, id)
	return id, evicted
}

func (s *sessionStore) get(id string) (*generator.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.sessions[id]
	return conv, ok
}

func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// New wires the HTTP surface around orch. Requests without a session_id share
// one process-wide conversation.
func New(orch *generator.Orchestrator, f facts.Facts, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sub, err := fs.Sub(embeddedStatic, "web/dist")
	if err != nil {
		return nil, err
	}

	return &Server{
		orch:     orch,
		facts:    f,
		cfg:      cfg,
		store:    newStore(cfg.MemoryMaxEntries, cfg.MaxSessions),
		shared:   generator.NewConversation(cfg.MemoryMaxEntries),
		staticFS: http.FileServer(http.FS(sub)),
		logger:   logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate-module", s.handleGenerateModule)
	mux.HandleFunc("/api/sessions", s.handleSessionCreate)
	mux.HandleFunc("/api/sessions/", s.handleSessionByID)
	mux.HandleFunc("/api/facts", s.handleFacts)
	mux.Handle("/", s.staticHandler())
	return logMiddleware(s.logger, mux)
}

func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.staticFS.ServeHTTP(w, r)
	})
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

// shapeErrorResp always carries raw, even when the payload was null.
type shapeErrorResp struct {
	Error string `json:"error"`
	Raw   any    `json:"raw"`
}

type sessionResp struct {
	SessionID string `json:"session_id"`
	Entries   int    `json:"entries"`
}

type factsResp struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

func (s *Server) handleGenerateModule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req generator.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv := s.shared
	if req.SessionID != "" {
		var ok bool
		conv, ok = s.store.get(req.SessionID)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
	}
	// The transcript is the source of truth for prior modules; the client list
	// is only logged.
	s.logger.Debug("generate module",
		zap.String("session_id", req.SessionID),
		zap.Int("prior_modules", len(req.PriorModules)),
		zap.Int("transcript_entries", conv.Len()))

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	mod, err := s.orch.GenerateModule(ctx, conv, req.Prompt)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	if s.cfg.SanitizeHTML {
		clean := sanitize.ModuleHTML(mod.HTML)
		if clean == "" {
			s.logger.Warn("module markup removed by sanitizer", zap.String("title", mod.Title))
			writeJSON(w, http.StatusUnprocessableEntity, shapeErrorResp{Error: "Module markup was empty after sanitizing", Raw: mod})
			return
		}
		mod.HTML = clean
	}
	writeJSON(w, http.StatusOK, mod)
}

func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	var gerr *generator.GenerationError
	if !errors.As(err, &gerr) {
		s.logger.Error("generate module", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Error("generate module", zap.Stringer("kind", gerr.Kind), zap.Error(err))
	switch gerr.Kind {
	case generator.KindUnexpectedShape:
		writeJSON(w, http.StatusUnprocessableEntity, shapeErrorResp{Error: gerr.Error(), Raw: gerr.Raw})
	case generator.KindInvalidPrompt:
		writeError(w, http.StatusBadRequest, gerr.Error())
	default:
		writeError(w, http.StatusInternalServerError, gerr.Error())
	}
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, evicted := s.store.create()
	if evicted != "" {
		s.logger.Info("session evicted", zap.String("session_id", evicted))
	}
	s.logger.Info("session created", zap.String("session_id", id))
	writeJSON(w, http.StatusCreated, sessionResp{SessionID: id})
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		conv, ok := s.store.get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, sessionResp{SessionID: id, Entries: conv.Len()})
	case http.MethodDelete:
		if !s.store.delete(id) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, factsResp{Text: s.facts.Text(), HTML: s.facts.HTML()})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResp{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
