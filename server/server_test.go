// ABOUTME: HTTP API tests over a stub runner and a temp archive.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/infragenie/infragenie/pipeline"
	"github.com/infragenie/infragenie/store"
)

type stubRunner struct {
	rec *pipeline.RunRecord
}

func (s *stubRunner) Run(ctx context.Context, prompt string) *pipeline.RunRecord {
	rec := s.rec
	rec.Prompt = prompt
	return rec
}

func doneRecord(id string) *pipeline.RunRecord {
	rec := pipeline.NewRunRecord("deploy a web server")
	rec.ID = id
	rec.Stage = pipeline.StageDone
	rec.RetryCount = 1
	rec.Clean = true
	rec.Artifact = `resource "aws_instance" "web" {}`
	rec.ConfigArtifact = "---\n- hosts: all\n"
	rec.CostEstimate = "$10.00/mo"
	rec.Apply(&pipeline.Update{Events: []pipeline.Event{
		{ID: id + "-e1", Type: pipeline.EventRunStarted},
		{ID: id + "-e2", Type: pipeline.EventStageStarted, Stage: pipeline.StageGenerate},
	}})
	return rec
}

func newTestServer(t *testing.T, rec *pipeline.RunRecord) (*Server, *store.Archive) {
	t.Helper()
	archive, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })
	return New(&stubRunner{rec: rec}, archive), archive
}

func TestGenerateReturnsAndArchives(t *testing.T) {
	srv, archive := newTestServer(t, doneRecord("01SRVA"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate",
		strings.NewReader(`{"prompt": "deploy a web server"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var rec pipeline.RunRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.ID != "01SRVA" || rec.RetryCount != 1 {
		t.Errorf("record = %+v", rec)
	}

	if _, err := archive.GetRun("01SRVA"); err != nil {
		t.Errorf("run not archived: %v", err)
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	srv, _ := newTestServer(t, doneRecord("01SRVB"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListAndGetRuns(t *testing.T) {
	srv, archive := newTestServer(t, doneRecord("01SRVC"))
	if err := archive.SaveRun(doneRecord("01SRVC")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var runs []store.RunSummary
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "01SRVC" {
		t.Errorf("runs = %+v", runs)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/01SRVC", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", w.Code)
	}
}

func TestListEventsWithFilter(t *testing.T) {
	srv, archive := newTestServer(t, doneRecord("01SRVD"))
	if err := archive.SaveRun(doneRecord("01SRVD")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/runs/01SRVD/events?type=stage.started", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var events []pipeline.Event
	if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].Type != pipeline.EventStageStarted {
		t.Errorf("events = %+v", events)
	}
}

func TestKitDownload(t *testing.T) {
	srv, archive := newTestServer(t, doneRecord("01SRVE"))
	if err := archive.SaveRun(doneRecord("01SRVE")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/01SRVE/kit", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("content type = %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("empty kit body")
	}
}

func TestKitConflictForBlockedRun(t *testing.T) {
	blocked := doneRecord("01SRVF")
	blocked.Artifact = ""
	blocked.Blocked = true
	srv, archive := newTestServer(t, blocked)
	if err := archive.SaveRun(blocked); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/01SRVF/kit", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestReadmePreview(t *testing.T) {
	srv, archive := newTestServer(t, doneRecord("01SRVG"))
	if err := archive.SaveRun(doneRecord("01SRVG")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/01SRVG/readme", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<h1") {
		t.Errorf("body is not html: %s", w.Body.String())
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	archive, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	mustPanic := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}
	mustPanic("nil archive", func() { New(&stubRunner{rec: doneRecord("01SRVI")}, nil) })
	mustPanic("nil runner", func() { New(nil, archive) })
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, doneRecord("01SRVH"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
