// ABOUTME: HTTP API over the pipeline and run archive.
// ABOUTME: Generate runs synchronously; history, events, kit, and README come from the archive.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/infragenie/infragenie/bundler"
	"github.com/infragenie/infragenie/pipeline"
	"github.com/infragenie/infragenie/store"
)

// Runner abstracts the pipeline so tests can swap in a stub.
type Runner interface {
	Run(ctx context.Context, prompt string) *pipeline.RunRecord
}

// Server serves the generation API.
type Server struct {
	runner  Runner
	archive *store.Archive
	router  chi.Router
}

// New builds the server and its routes. Every route except generate reads
// from the archive, so both collaborators are required; a nil one is a
// wiring bug, caught at construction.
func New(runner Runner, archive *store.Archive) *Server {
	if runner == nil {
		panic("server.New: nil runner")
	}
	if archive == nil {
		panic("server.New: nil archive")
	}
	s := &Server{runner: runner, archive: archive}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/events", s.handleListEvents)
		r.Get("/runs/{id}/kit", s.handleKit)
		r.Get("/runs/{id}/readme", s.handleReadme)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler for mounting or serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving the API.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	rec := s.runner.Run(r.Context(), req.Prompt)

	if err := s.archive.SaveRun(rec); err != nil {
		// The run itself succeeded; losing the archive row is logged,
		// not fatal for the caller.
		log.Printf("archive run %s: %v", rec.ID, err)
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.archive.ListRuns(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	filter := pipeline.EventFilter{Stage: r.URL.Query().Get("stage")}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Types = []pipeline.EventType{pipeline.EventType(t)}
	}

	events, err := s.archive.ListEvents(id, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []pipeline.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleKit(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	kit, err := bundler.Kit(rec)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.ID+"-kit.zip"))
	_, _ = w.Write(kit)
}

func (s *Server) handleReadme(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	html, err := bundler.ReadmeHTML(rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*pipeline.RunRecord, bool) {
	id := chi.URLParam(r, "id")
	rec, err := s.archive.GetRun(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", id))
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
