package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/scout/internal/agent/core"
	"github.com/mohammad-safakhou/scout/internal/store"
	"github.com/mohammad-safakhou/scout/tools/images"
	searchmodels "github.com/mohammad-safakhou/scout/tools/web_search/models"
)

// scriptedModel answers successive Stream calls with pre-canned fragment
// turns.
type scriptedModel struct {
	mu    sync.Mutex
	turns [][]core.Fragment
	calls int
}

func (m *scriptedModel) Stream(ctx context.Context, model string, messages []core.Message, tools []core.ToolSpec) (<-chan core.Fragment, <-chan error) {
	m.mu.Lock()
	var frags []core.Fragment
	if m.calls < len(m.turns) {
		frags = m.turns[m.calls]
	}
	m.calls++
	m.mu.Unlock()

	fragCh := make(chan core.Fragment, len(frags)+1)
	errCh := make(chan error, 1)
	for _, f := range frags {
		fragCh <- f
	}
	close(fragCh)
	close(errCh)
	return fragCh, errCh
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(log.New(io.Discard, "", 0))
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNewsEndpoint(t *testing.T) {
	e := newTestEcho()
	h := &ResearchHandler{
		Searcher:   stubSearcher{news: []searchmodels.NewsResult{{Title: "Breaking", URL: "https://n.ws/1", Source: "Wire", Age: "2h"}}},
		MaxResults: 5,
		Logger:     log.New(io.Discard, "", 0),
	}
	h.Register(e.Group(""))

	rec := doJSON(t, e, http.MethodPost, "/news", `{"query":"markets"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Breaking") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestNewsEndpointFailure(t *testing.T) {
	e := newTestEcho()
	h := &ResearchHandler{
		Searcher:   stubSearcher{err: context.DeadlineExceeded},
		MaxResults: 5,
		Logger:     log.New(io.Discard, "", 0),
	}
	h.Register(e.Group(""))

	rec := doJSON(t, e, http.MethodPost, "/news", `{"query":"markets"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("not JSON: %s", rec.Body.String())
	}
	if body["error"] == "" {
		t.Fatalf("missing error field: %s", rec.Body.String())
	}
}

func TestLinksEndpoint(t *testing.T) {
	e := newTestEcho()
	h := &ResearchHandler{
		Searcher:   stubSearcher{results: []searchmodels.Result{{Title: "Guide", URL: "https://g.dev"}}},
		MaxResults: 5,
		Logger:     log.New(io.Discard, "", 0),
	}
	h.Register(e.Group(""))

	rec := doJSON(t, e, http.MethodPost, "/links", `{"query":"go guides"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "https://g.dev") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestResearchEndpointsRequireQuery(t *testing.T) {
	e := newTestEcho()
	h := &ResearchHandler{Searcher: stubSearcher{}, MaxResults: 5, Logger: log.New(io.Discard, "", 0)}
	h.Register(e.Group(""))

	for _, path := range []string{"/news", "/links"} {
		rec := doJSON(t, e, http.MethodPost, path, `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
}

func TestPlanEndpointStripsLeadingThinkBlock(t *testing.T) {
	llm := &scriptedModel{turns: [][]core.Fragment{
		{{Text: "TravelPlanning"}},
		{{Text: "<think>weighing options</think>"}, {Text: "Plan ready."}},
	}}
	logger := log.New(io.Discard, "", 0)
	reg, err := newRegistry(logger, core.RegistryOptions{}, nil)
	if err != nil {
		t.Fatalf("newRegistry: %v", err)
	}
	planner, err := core.NewPlanner(llm, reg, logger, nil, core.Options{Model: "m"}, "m")
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}

	e := newTestEcho()
	(&PlanHandler{Planner: planner, Logger: logger}).Register(e.Group(""))

	rec := doJSON(t, e, http.MethodPost, "/plan", `{"query":"plan a trip"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if body != "Plan ready." {
		t.Fatalf("unexpected body: %q", body)
	}
	if strings.Contains(body, "weighing options") {
		t.Fatalf("think block leaked: %q", body)
	}
}

func TestConversationEndpoints(t *testing.T) {
	st, err := store.NewConversationStore(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	e := newTestEcho()
	(&ConversationsHandler{Store: st}).Register(e.Group(""))

	rec := doJSON(t, e, http.MethodPost, "/conversation/new", `{"title":"Trip"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var conv store.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("create body: %v", err)
	}

	rec = doJSON(t, e, http.MethodPost, "/conversation/add_message",
		`{"id":"`+conv.ID+`","role":"user","content":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add_message: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/conversations", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "hello") {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/conversation/delete", `{"id":"`+conv.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/conversation/delete", `{"id":"`+conv.ID+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing: %d %s", rec.Code, rec.Body.String())
	}
}

func TestImagesListEndpoint(t *testing.T) {
	dir := t.TempDir()
	runDir := filepath.Join(dir, "run-1")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "a.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	e := newTestEcho()
	(&ImagesHandler{Store: images.Store{Dir: dir}}).Register(e.Group(""))

	rec := doJSON(t, e, http.MethodGet, "/images_list", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), filepath.Join("run-1", "a.png")) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/images/../escape.png", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("traversal status %d: %s", rec.Code, rec.Body.String())
	}
}
