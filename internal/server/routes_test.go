package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ari/internal/assistant"
	"ari/internal/assistant/ports"
	"ari/internal/config"
	"ari/internal/llm"
	"ari/internal/prompts"
	"ari/internal/session/memstore"
)

func newTestServer(t *testing.T, responses ...string) (*Server, *memstore.Store) {
	t.Helper()

	loader, err := prompts.NewLoader()
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	store := memstore.New()
	engine := assistant.NewEngine(llm.NewMockClient(responses...), loader)
	coordinator := assistant.NewCoordinator(engine, store)
	return New(coordinator, store, config.Default().Server), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthAndState(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
	var state ports.EngineState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Phase != ports.PhaseIdle {
		t.Fatalf("expected idle, got %s", state.Phase)
	}
}

func TestServer_ConversationLifecycle(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "Here you go.")
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/conversations", map[string]string{"title": "Homework"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var conv struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil || conv.ID == "" {
		t.Fatalf("decode conversation: %v (%s)", err, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", map[string]string{"text": "write an email"})
	if rec.Code != http.StatusOK {
		t.Fatalf("send status = %d: %s", rec.Code, rec.Body.String())
	}
	var turnResult assistant.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &turnResult); err != nil {
		t.Fatalf("decode turn result: %v", err)
	}
	if turnResult.Result == nil || turnResult.Result.Text != "Here you go." {
		t.Fatalf("unexpected result: %+v", turnResult.Result)
	}
	if turnResult.UserTurn.Mode != ports.ModeWrite {
		t.Fatalf("expected classified write mode, got %s", turnResult.UserTurn.Mode)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/conversations/"+conv.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "write an email") {
		t.Fatalf("persisted turns missing from conversation: %s", rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/conversations/"+conv.ID+"/mood", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mood status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "supportive") {
		t.Fatalf("expected supportive mood after write turn: %s", rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/conversations/"+conv.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/conversations/"+conv.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestServer_SendToUnknownConversationIs404(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/conversations/conv-missing/messages", map[string]string{"text": "hi"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServer_TransformParsesStructuredKinds(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "Q: 2+2?\nA) 3\nB) 4\nCorrect: B")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/transform", map[string]any{
		"content": "two plus two is four",
		"kind":    "quiz",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("transform status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp transformResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Quiz) != 1 || resp.Quiz[0].CorrectLetter != "B" {
		t.Fatalf("expected parsed quiz in response, got %+v", resp.Quiz)
	}
}

func TestServer_TransformRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/transform", map[string]any{
		"content": "text",
		"kind":    "translate",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestServer_TransformIncludesDiffOnRequest(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "short version")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/transform", map[string]any{
		"content":      "a much longer original version",
		"kind":         "shorten",
		"include_diff": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("transform status = %d", rec.Code)
	}
	var resp transformResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Diff == "" {
		t.Fatal("expected a unified diff in the response")
	}
}

func TestServer_SaveArtifact(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)
	conv, err := store.Create(context.Background(), "t")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/conversations/"+conv.ID+"/artifacts", map[string]any{
		"kind":    "plan",
		"title":   "Week plan",
		"content": "1. Monday",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "celebratory") {
		t.Fatalf("expected celebratory mood in response: %s", rec.Body.String())
	}

	stored, err := store.Get(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(stored.Artifacts) != 1 {
		t.Fatalf("expected persisted artifact, got %d", len(stored.Artifacts))
	}
}

func TestServer_MetricsEndpointServesPrometheus(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatal("expected default prometheus metrics in scrape output")
	}
}
