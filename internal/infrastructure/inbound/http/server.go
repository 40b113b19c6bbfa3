package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mockforge/mockforge/internal/domain/endpoint"
	"github.com/mockforge/mockforge/internal/domain/mock"
	"github.com/mockforge/mockforge/internal/domain/trace"
	"github.com/mockforge/mockforge/internal/infrastructure/ports"
	"github.com/mockforge/mockforge/internal/infrastructure/services"
	"github.com/mockforge/mockforge/internal/infrastructure/usecases"
)

const maxBodySize = 10 << 20 // 10 MB

// Server is the main HTTP server for MockForge.
type Server struct {
	router      atomic.Pointer[chi.Mux]
	index       atomic.Pointer[services.EndpointIndex]
	rebuildMu   sync.Mutex
	handleReqUC *usecases.HandleRequestUseCase
	loadUC      *usecases.LoadEndpointsUseCase
	saveUC      *usecases.SaveEndpointUseCase
	deleteUC    *usecases.DeleteEndpointUseCase
	repo        endpoint.Repository
	cache       ports.ResponseCache
	traceBuf    *trace.RingBuffer
	logger      ports.Logger
	rootDir     string
}

// NewServer creates a new Server.
func NewServer(
	handleReqUC *usecases.HandleRequestUseCase,
	loadUC *usecases.LoadEndpointsUseCase,
	cache ports.ResponseCache,
	traceBuf *trace.RingBuffer,
	logger ports.Logger,
) *Server {
	return &Server{
		handleReqUC: handleReqUC,
		loadUC:      loadUC,
		cache:       cache,
		traceBuf:    traceBuf,
		logger:      logger,
	}
}

// SetCRUDDeps injects the optional endpoint CRUD dependencies.
func (s *Server) SetCRUDDeps(saveUC *usecases.SaveEndpointUseCase, deleteUC *usecases.DeleteEndpointUseCase, repo endpoint.Repository, rootDir string) {
	s.saveUC = saveUC
	s.deleteUC = deleteUC
	s.repo = repo
	s.rootDir = rootDir
}

// BuildRouter creates a new chi.Mux with admin and mock routes for the index.
func (s *Server) BuildRouter(idx *services.EndpointIndex) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// Admin routes.
	r.Route("/__admin", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/endpoints", s.handleListEndpoints)
		r.Get("/endpoints/{endpointID}", s.handleGetEndpoint)
		r.Put("/endpoints/{endpointID}", s.handleUpdateEndpoint)
		r.Post("/endpoints", s.handleCreateEndpoint)
		r.Delete("/endpoints/{endpointID}", s.handleDeleteEndpoint)
		r.Get("/trace", s.handleGetTrace)
		r.Post("/reload", s.handleReload)
		r.Delete("/cache", s.handleFlushCache)
	})

	// Mock routes from the index. Every method is routed; the pipeline's
	// method gate answers 405 for disallowed ones.
	for _, url := range idx.URLs() {
		r.HandleFunc(url, s.mockHandler)
	}

	r.NotFound(s.notFoundHandler)

	return r
}

// Rebuild atomically swaps the router and index. Serialized via mutex.
func (s *Server) Rebuild(idx *services.EndpointIndex) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	r := s.BuildRouter(idx)
	s.index.Store(idx)
	s.router.Store(r)
	s.logger.Info("router rebuilt", "endpoints", idx.Len())
}

// ServeHTTP implements http.Handler using the atomic router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router := s.router.Load()
	if router == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	router.ServeHTTP(w, r)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("request received (no route)", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery, "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]any{
		"error":   "no_match",
		"method":  r.Method,
		"path":    r.URL.Path,
		"message": "No endpoint registered for this path",
	})
}

func (s *Server) mockHandler(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	idx := s.index.Load()
	if idx == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	// Look up by the chi route pattern (e.g. /users/{id}), falling back to
	// the actual path.
	routePath := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		routePath = rctx.RoutePattern()
	}
	ce := idx.Lookup(routePath)
	if ce == nil {
		s.notFoundHandler(w, r)
		return
	}

	// Canonicalize header keys for consistent condition matching.
	headers := make(map[string]string)
	for k := range r.Header {
		headers[http.CanonicalHeaderKey(k)] = r.Header.Get(k)
	}

	req := &mock.Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Headers:    headers,
		Query:      extractQueryParams(r),
		PathParams: extractPathParams(r),
		Body:       body,
	}

	result := s.handleReqUC.Execute(r.Context(), r.URL, req, ce)

	if result.RenderedBody != nil {
		if result.ContentType != "" {
			w.Header().Set("Content-Type", result.ContentType)
		}
		w.WriteHeader(result.Status)
		if _, err := w.Write(result.RenderedBody); err != nil {
			s.logger.Debug("failed to write response body", "error", err)
		}
		return
	}

	if result.Payload == nil {
		if result.Status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "1")
		}
		w.WriteHeader(result.Status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(result.Status)
	writeJSON(w, result.Payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	idx := s.index.Load()
	status := "ok"
	endpoints := 0
	if idx == nil {
		status = "starting"
	} else {
		endpoints = idx.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"status":    status,
		"endpoints": endpoints,
	})
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, _ *http.Request) {
	idx := s.index.Load()
	if idx == nil {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, []any{})
		return
	}

	all := idx.All()
	endpoints := make([]map[string]any, 0, len(all))
	for _, ce := range all {
		endpoints = append(endpoints, endpointSummary(ce))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, endpoints)
}

func endpointSummary(ce *mock.CompiledEndpoint) map[string]any {
	summary := map[string]any{
		"id":  ce.ID,
		"url": ce.URL,
	}
	if len(ce.Methods) > 0 {
		summary["methods"] = ce.Methods
	}
	if ce.Singular {
		summary["singular"] = true
	}
	if ce.Cache {
		summary["cache"] = true
	}
	if len(ce.Conditions) > 0 {
		summary["conditions"] = len(ce.Conditions)
	}
	return summary
}

func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "endpointID")
	if s.repo == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	e, err := s.repo.LoadByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, endpoint.ErrNotFound) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]string{"error": "not_found", "message": "endpoint not found: " + id})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{"error": "internal", "message": err.Error()})
		return
	}

	sourceYAML, err := s.repo.ReadSourceYAML(r.Context(), e)
	if err != nil {
		s.logger.Warn("failed to read source YAML", "id", id, "error", err)
	}

	relPath := e.SourceFile
	if s.rootDir != "" {
		if rel, err := filepath.Rel(s.rootDir, e.SourceFile); err == nil {
			relPath = rel
		}
	}

	resp := map[string]any{
		"id":           e.ID,
		"url":          e.URL,
		"source_file":  relPath,
		"source_index": e.SourceIndex,
		"source_yaml":  string(sourceYAML),
	}
	if len(e.Methods) > 0 {
		resp["methods"] = e.Methods
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

func (s *Server) handleUpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "endpointID")
	if s.saveUC == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if err := s.saveUC.Execute(r.Context(), id, body); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "save_failed", "message": err.Error()})
		return
	}

	if !s.reloadAndRebuild(w, r) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "ok", "message": "endpoint updated", "id": id})
}

func (s *Server) handleCreateEndpoint(w http.ResponseWriter, r *http.Request) {
	if s.saveUC == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if err := s.saveUC.Execute(r.Context(), "", body); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "create_failed", "message": err.Error()})
		return
	}

	if !s.reloadAndRebuild(w, r) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]string{"status": "ok", "message": "endpoint created"})
}

func (s *Server) handleDeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "endpointID")
	if s.deleteUC == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	if err := s.deleteUC.Execute(r.Context(), id); err != nil {
		if errors.Is(err, endpoint.ErrNotFound) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]string{"error": "not_found", "message": "endpoint not found: " + id})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{"error": "delete_failed", "message": err.Error()})
		return
	}

	if !s.reloadAndRebuild(w, r) {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// reloadAndRebuild reloads the index after a CRUD write and swaps the router.
// It writes the error response itself and returns false when the reload fails.
func (s *Server) reloadAndRebuild(w http.ResponseWriter, r *http.Request) bool {
	idx, err := s.loadUC.Execute(r.Context())
	if err != nil {
		s.logger.Error("reload after change failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{"error": "reload_failed", "message": err.Error()})
		return false
	}
	s.Rebuild(idx)
	s.cache.Flush()
	return true
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	n := 10
	if lastParam := r.URL.Query().Get("last"); lastParam != "" {
		if parsed, err := strconv.Atoi(lastParam); err == nil && parsed > 0 {
			n = parsed
		}
	}

	entries := s.traceBuf.Last(n)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, entries)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	idx, err := s.loadUC.Execute(r.Context())
	if err != nil {
		s.logger.Error("reload failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{
			"error":   "reload_failed",
			"message": "endpoint reload failed, check server logs",
		})
		return
	}

	s.Rebuild(idx)
	s.cache.Flush()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"status":  "ok",
		"message": "endpoints reloaded",
	})
}

func (s *Server) handleFlushCache(w http.ResponseWriter, _ *http.Request) {
	s.cache.Flush()
	s.logger.Info("response cache flushed")
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "ok", "message": "cache flushed"})
}

func extractQueryParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func extractPathParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	rctx := chi.RouteContext(r.Context())
	if rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if i < len(rctx.URLParams.Values) {
				params[key] = rctx.URLParams.Values[i]
			}
		}
	}
	return params
}

func writeJSON(w http.ResponseWriter, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
