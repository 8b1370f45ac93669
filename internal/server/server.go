package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"klip/internal/logging"
	"klip/internal/service"
	"klip/internal/storage"
)

type Server struct {
	clipService *service.ClipboardService
	hub         *Hub
	srv         *http.Server
	listener    net.Listener
	cancel      context.CancelFunc
	config      Config
}

type Config struct {
	Addr string
}

// New creates a server for clipService and subscribes its websocket hub to
// clipboard captures.
func New(clipService *service.ClipboardService, config Config) *Server {
	s := &Server{
		clipService: clipService,
		hub:         newHub(),
		config:      config,
	}
	clipService.RegisterHandler(s.hub)
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(rejectCrossOrigin)

	r.Get("/ws", s.serveWs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Get("/status", s.handleStatus)
		r.Route("/api", func(r chi.Router) {
			r.Get("/clips", s.handleGetClips)
			r.Get("/dates", s.handleGetDates)

			// Browsers send text/plain and form bodies cross-site without a
			// preflight, so writes only take JSON.
			r.Group(func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))

				r.Post("/clips", s.handleAddClip)
				r.Route("/clips/{id}", func(r chi.Router) {
					r.Put("/", s.handleUpdateClip)
					r.Delete("/", s.handleDeleteClip)
					r.Put("/favorite", s.handleSetFavorite)
					r.Post("/copy", s.handleCopyClip)
				})
				r.Post("/clipboard", s.handleCopyText)
				r.Post("/clipboard/image", s.handleCopyImage)
			})
		})
	})

	return r
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.hub.run(ctx)

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger().Error("http server stopped", "addr", ln.Addr().String(), "err", err)
		}
	}()

	logger().Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound listen address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}

func logger() *slog.Logger {
	return logging.Component("http")
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger().Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// isLoopbackOrigin reports whether an Origin header value is absent or names
// a loopback host. Non-browser clients send no Origin.
func isLoopbackOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// rejectCrossOrigin refuses requests a browser made on behalf of a page that
// is not served from a loopback address.
func rejectCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); !isLoopbackOrigin(origin) {
			logger().Warn("rejected cross-origin request", "origin", origin, "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "cross-origin requests are not allowed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Debug("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrNotImage),
		errors.Is(err, service.ErrImagePath):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger().Warn("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
		"addr":   s.Addr(),
	})
}

func (s *Server) handleGetClips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clips, err := s.clipService.GetClips(r.Context(), q.Get("search"), q.Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clips)
}

func (s *Server) handleGetDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.clipService.GetDates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

type contentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleAddClip(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.clipService.AddClip(r.Context(), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, map[string]any{"duplicate": true, "result": "Duplicate"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": res.ID})
}

func (s *Server) handleUpdateClip(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.clipService.UpdateClipContent(r.Context(), chi.URLParam(r, "id"), req.Content); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Favorite bool `json:"favorite"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.clipService.SetFavorite(r.Context(), chi.URLParam(r, "id"), req.Favorite); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteClip(w http.ResponseWriter, r *http.Request) {
	if err := s.clipService.DeleteClip(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopyClip(w http.ResponseWriter, r *http.Request) {
	if err := s.clipService.CopyClip(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopyText(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.clipService.CopyToClipboard(r.Context(), req.Content); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopyImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.clipService.CopyImageToClipboard(r.Context(), req.Path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
