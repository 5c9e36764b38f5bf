package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"downsort/internal/browser"
	"downsort/internal/config"
	"downsort/internal/logging"
	"downsort/internal/match"
	"downsort/internal/rules"
	"downsort/internal/services"
	"downsort/internal/tabcache"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// tabEvent is the envelope the extension sends for tab lifecycle changes.
type tabEvent struct {
	Event string          `json:"event"`
	Tab   browser.TabInfo `json:"tab"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.API.Bind),
		token:  strings.TrimSpace(cfg.API.Token),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/downloads", srv.handleDownloads)
	mux.HandleFunc("/api/events/tabs", srv.handleTabEvents)
	mux.HandleFunc("/api/events/keywords", srv.handleKeywordEvents)
	mux.HandleFunc("/api/choice", srv.handleChoice)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/test-notification", srv.handleTestNotification)
	mux.HandleFunc("/api/rules", srv.handleRules)
	mux.HandleFunc("/api/rules/", srv.handleRuleItem)

	// No write timeout: /api/downloads legitimately blocks for the whole
	// prompt window.
	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

// authorized enforces the optional bearer token on mutating endpoints. The
// prompt callback stays token-free: ntfy action buttons cannot carry
// headers.
func (s *apiServer) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	return strings.TrimPrefix(header, "Bearer ") == s.token && strings.HasPrefix(header, "Bearer ")
}

func (s *apiServer) handleDownloads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorized(r) {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var item browser.DownloadItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid download payload")
		return
	}
	if strings.TrimSpace(item.Filename) == "" {
		s.writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	suggestion := s.daemon.engine.Suggest(r.Context(), item)
	s.writeJSON(w, http.StatusOK, suggestion)
}

func (s *apiServer) handleTabEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorized(r) {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var event tabEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid tab event")
		return
	}

	switch event.Event {
	case "created", "updated":
		s.daemon.registry.Upsert(event.Tab)
		if event.Tab.OpenerID > 0 {
			s.daemon.cache.SetOpener(event.Tab.ID, event.Tab.OpenerID)
		}
	case "activated":
		s.daemon.registry.Activate(event.Tab.ID)
	case "removed":
		s.daemon.registry.Remove(event.Tab.ID)
		s.daemon.cache.DropTab(event.Tab.ID)
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown tab event %q", event.Event))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleKeywordEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorized(r) {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var report browser.KeywordReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid keyword report")
		return
	}
	if report.TabID <= 0 {
		s.writeError(w, http.StatusBadRequest, "tab_id is required")
		return
	}

	stats := make(map[string]match.Stats, len(report.Results))
	for name, counts := range report.Results {
		stats[name] = match.Stats{
			TotalMatches:   counts.TotalMatches,
			KeywordMatches: counts.KeywordMatches,
		}
	}
	s.daemon.cache.Record(report.TabID, tabcache.Entry{
		URL:   report.URL,
		Title: report.Title,
		Stats: stats,
	})
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleChoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := r.URL.Query().Get("token")
	option := r.URL.Query().Get("option")
	if token == "" || option == "" {
		s.writeError(w, http.StatusBadRequest, "token and option are required")
		return
	}

	if !s.daemon.engine.ResolveChoice(token, option) {
		s.writeError(w, http.StatusNotFound, "prompt expired or already resolved")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorized(r) {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", message, err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sent": sent, "message": message})
}

func (s *apiServer) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.daemon.store.List(r.Context(), false)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string][]rules.Rule{"rules": list})
	case http.MethodPost:
		if !s.authorized(r) {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var rule rules.Rule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid rule payload")
			return
		}
		if err := s.daemon.store.Create(r.Context(), &rule); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, services.ErrValidation) {
				status = http.StatusBadRequest
			}
			s.writeError(w, status, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, rule)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleRuleItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/rules/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		if !s.authorized(r) {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := s.daemon.store.Delete(r.Context(), id); err != nil {
			s.writeRuleError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case http.MethodPatch:
		if !s.authorized(r) {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var patch struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || patch.Enabled == nil {
			s.writeError(w, http.StatusBadRequest, "expected {\"enabled\": bool}")
			return
		}
		if err := s.daemon.store.SetEnabled(r.Context(), id, *patch.Enabled); err != nil {
			s.writeRuleError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) writeRuleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, services.ErrNotFound) {
		status = http.StatusNotFound
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
