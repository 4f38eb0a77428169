// Package web serves the interactive graph viewer: a JSON API over the
// visualization state plus an SSE stream that pushes fresh render
// payloads after every mutation.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/ritzau/hydroscope/pkg/layout"
	"github.com/ritzau/hydroscope/pkg/logging"
	"github.com/ritzau/hydroscope/pkg/pubsub"
	"github.com/ritzau/hydroscope/pkg/render"
	"github.com/ritzau/hydroscope/pkg/vis"
)

//go:embed static/*
var staticFiles embed.FS

// Server exposes the visualization state over HTTP. All state access goes
// through mu, the state itself is not safe for concurrent mutation.
type Server struct {
	mu        sync.Mutex
	router    *mux.Router
	state     *vis.VisualizationState
	runner    *layout.Runner
	publisher *pubsub.SSEPublisher
}

// NewServer creates a web server around the given state and layout runner.
func NewServer(state *vis.VisualizationState, runner *layout.Runner) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// graph: new subscribers get the latest frame immediately
	ssePublisher.ConfigureTopic(pubsub.TopicGraph, pubsub.TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})
	ssePublisher.ConfigureTopic(pubsub.TopicStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		state:     state,
		runner:    runner,
		publisher: ssePublisher,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/containers/expand-all", s.handleExpandAll).Methods("POST")
	s.router.HandleFunc("/api/containers/collapse-all", s.handleCollapseAll).Methods("POST")
	s.router.HandleFunc("/api/containers/{id}/toggle", s.handleToggle).Methods("POST")
	s.router.HandleFunc("/api/search", s.handleSearch).Methods("GET")
	s.router.HandleFunc("/api/search/expand", s.handleSearchExpand).Methods("POST")
	s.router.Handle("/api/events", s.publisher).Methods("GET")

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("loading embedded static files", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// PublishStatus pushes a status event to connected clients.
func (s *Server) PublishStatus(state, message string) error {
	return s.publisher.Publish(pubsub.TopicStatus, state, pubsub.Status{
		State:   state,
		Message: message,
	})
}

// PublishGraph lays out the current state and pushes the resulting frame.
// Callers hold no lock; the server serializes internally.
func (s *Server) PublishGraph(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relayoutAndPublishLocked(ctx)
}

// Reload swaps in freshly loaded data and pushes the new frame. The load
// callback runs under the server lock so requests never see a half-loaded
// state.
func (s *Server) Reload(load func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := load(); err != nil {
		return err
	}
	return s.relayoutAndPublishLocked(context.Background())
}

func (s *Server) relayoutAndPublishLocked(ctx context.Context) error {
	if err := s.runner.Run(ctx, s.state); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	payload, err := render.BuildPayload(s.state)
	if err != nil {
		return fmt.Errorf("building render payload: %w", err)
	}
	return s.publisher.Publish(pubsub.TopicGraph, "update", payload)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	payload, err := render.BuildPayload(s.state)
	s.mu.Unlock()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, payload)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	err := s.state.ToggleContainer(id)
	if err == nil {
		err = s.relayoutAndPublishLocked(r.Context())
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok", "id": id})
}

func (s *Server) handleExpandAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.state.ExpandAllContainers()
	if err == nil {
		err = s.relayoutAndPublishLocked(r.Context())
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleCollapseAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.state.CollapseAllContainers()
	if err == nil {
		err = s.relayoutAndPublishLocked(r.Context())
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("missing query parameter q"))
		return
	}

	s.mu.Lock()
	matches := s.state.Search(query)
	keys := s.state.SearchExpansionKeys(matches)
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"matches":       matches,
		"expansionKeys": keys,
	})
}

func (s *Server) handleSearchExpand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("body must be {\"query\": ...}"))
		return
	}

	s.mu.Lock()
	matches := s.state.Search(body.Query)
	err := s.state.ExpandForSearch(matches)
	if err == nil {
		err = s.relayoutAndPublishLocked(r.Context())
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "matches": len(matches)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	logging.ErrorContext(r.Context(), "request failed", "error", err, "status", status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// Start starts the web server on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "url", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
