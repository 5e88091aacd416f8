package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/epreuves"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/fetch"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/store"
)

// Watcher is the engine control surface exposed over the API.
type Watcher interface {
	Start()
	Stop()
	IsRunning() bool
}

// SessionCell receives captured login cookies and reports session
// presence.
type SessionCell interface {
	Set(raw []string) int
	Connected() bool
}

type Server struct {
	Logger  *zap.Logger
	Store   store.Store
	Watcher Watcher
	Session SessionCell
	Fetcher fetch.Fetcher
}

func NewServer(l *zap.Logger, st store.Store, w Watcher, sess SessionCell, f fetch.Fetcher) *Server {
	return &Server{Logger: l, Store: st, Watcher: w, Session: sess, Fetcher: f}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	// The UI is served from another origin (GitHub Pages).
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/targets", s.handleListTargets)
	r.Post("/api/targets", s.handleAddTarget)
	r.Delete("/api/targets/{id}", s.handleDeleteTarget)
	r.Get("/api/targets/{id}/events", s.handleListEvents)

	r.Post("/api/watcher/start", s.handleWatcherStart)
	r.Post("/api/watcher/stop", s.handleWatcherStop)
	r.Get("/api/watcher", s.handleWatcherStatus)

	r.Post("/api/session/cookies", s.handleSetCookies)
	r.Get("/api/session", s.handleSessionStatus)

	r.Post("/api/epreuves", s.handleLoadEpreuves)

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	ts, err := s.Store.ListTargets(r.Context())
	if err != nil {
		s.Logger.Warn("api_list_targets_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if ts == nil {
		ts = []domain.Target{}
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p domain.AddTargetPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(p.Label) == "" || strings.TrimSpace(p.URL) == "" {
		http.Error(w, "label and url are required", http.StatusBadRequest)
		return
	}

	id, err := s.Store.AddTarget(r.Context(), p)
	if err != nil {
		s.Logger.Warn("api_add_target_error", zap.Error(err))
		http.Error(w, "could not add", http.StatusInternalServerError)
		return
	}
	s.Logger.Info("api_added_target",
		zap.Int64("id", id),
		zap.String("label", p.Label),
		zap.String("url", p.URL),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) targetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	id, ok := s.targetID(w, r)
	if !ok {
		return
	}
	err := s.Store.DeleteTarget(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "unknown target", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Logger.Warn("api_delete_target_error", zap.Int64("id", id), zap.Error(err))
		http.Error(w, "could not delete", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.targetID(w, r)
	if !ok {
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := s.Store.ListEvents(r.Context(), id, limit)
	if err != nil {
		s.Logger.Warn("api_list_events_error", zap.Int64("id", id), zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleWatcherStart(w http.ResponseWriter, r *http.Request) {
	s.Watcher.Start()
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.Watcher.IsRunning()})
}

func (s *Server) handleWatcherStop(w http.ResponseWriter, r *http.Request) {
	s.Watcher.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.Watcher.IsRunning()})
}

func (s *Server) handleWatcherStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.Watcher.IsRunning()})
}

type cookiesPayload struct {
	Cookies []string `json:"cookies"`
}

func (s *Server) handleSetCookies(w http.ResponseWriter, r *http.Request) {
	var p cookiesPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	n := s.Session.Set(p.Cookies)
	s.Logger.Info("api_session_cookies", zap.Int("count", n))
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     n,
		"connected": s.Session.Connected(),
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"connected": s.Session.Connected()})
}

type epreuvesPayload struct {
	URL string `json:"url"`
}

func (s *Server) handleLoadEpreuves(w http.ResponseWriter, r *http.Request) {
	var p epreuvesPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || strings.TrimSpace(p.URL) == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	eps, err := epreuves.Load(r.Context(), s.Fetcher, p.URL)
	if err != nil {
		s.Logger.Warn("api_load_epreuves_error", zap.String("url", p.URL), zap.Error(err))
		http.Error(w, "could not load page", http.StatusBadGateway)
		return
	}
	if eps == nil {
		eps = []domain.Epreuve{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"epreuves": eps, "source": p.URL})
}
