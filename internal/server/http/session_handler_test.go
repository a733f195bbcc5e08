package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/scene-pilot/internal/config"
	"github.com/zacharykka/scene-pilot/internal/domain"
	"github.com/zacharykka/scene-pilot/internal/gateway"
	"github.com/zacharykka/scene-pilot/internal/history"
	"github.com/zacharykka/scene-pilot/internal/jobqueue"
	"github.com/zacharykka/scene-pilot/internal/provider"
	"github.com/zacharykka/scene-pilot/internal/safety"
	"github.com/zacharykka/scene-pilot/internal/session"
	"go.uber.org/zap"
)

type memoryRepo struct{}

func (memoryRepo) Create(ctx context.Context, record *domain.PromptRecord) error { return nil }
func (memoryRepo) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.PromptRecord, error) {
	return nil, nil
}
func (memoryRepo) UpdateFavorite(ctx context.Context, id string, favorite bool) error { return nil }
func (memoryRepo) Delete(ctx context.Context, id string) error                        { return nil }

type sessionFixture struct {
	router  *gin.Engine
	status  *session.StatusCell
	history *history.Store
}

func setupSessionRouter(t *testing.T, endpoint string) *sessionFixture {
	t.Helper()

	cfg := config.ProvidersConfig{
		Active:    "local",
		Endpoints: map[string]string{"local": endpoint},
	}
	gw := gateway.New(
		gateway.NewStaticConfigSource(cfg),
		provider.NewRegistry(cfg),
		safety.NewFilter([]string{"import os"}),
		5*time.Second,
		zap.NewNop(),
	)

	queue := jobqueue.New(5*time.Millisecond, zap.NewNop())
	queue.Start()
	t.Cleanup(queue.Stop)

	hist := history.NewStore(memoryRepo{}, queue, zap.NewNop())
	status := session.NewStatusCell()
	controller := session.NewController(gw, hist, queue, session.Options{
		UserID:    "tester",
		ProjectID: "project",
		Provider:  "local",
		Status:    status,
	}, zap.NewNop())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewSessionHandler(controller, status, hist, gw).RegisterRoutes(router.Group("/session"))
	NewScriptHandler(gw).RegisterRoutes(router.Group("/scripts"))

	return &sessionFixture{router: router, status: status, history: hist}
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSessionHandler_SubmitAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"script": "bpy.ops.transform.rotate(value=0.2618)"}`))
	}))
	defer server.Close()

	fx := setupSessionRouter(t, server.URL)

	rec := postJSON(fx.router, "/session/prompts", map[string]string{"prompt": "Rotate the cube"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d, body=%s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fx.status.Status() == "Success!" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if fx.status.Status() != "Success!" {
		t.Fatalf("expected terminal status Success!, got %q", fx.status.Status())
	}
	if fx.history.Len() != 1 {
		t.Fatalf("expected one history record, got %d", fx.history.Len())
	}
}

func TestSessionHandler_EmptyPromptRejected(t *testing.T) {
	fx := setupSessionRouter(t, "http://127.0.0.1:1")

	rec := postJSON(fx.router, "/session/prompts", map[string]string{"prompt": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d, body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Code != "EMPTY_PROMPT" {
		t.Fatalf("expected EMPTY_PROMPT got %s", resp.Code)
	}
}

func TestSessionHandler_StatusEndpoint(t *testing.T) {
	fx := setupSessionRouter(t, "http://127.0.0.1:1")
	fx.status.SetStatus("Sending prompt...")

	req := httptest.NewRequest(http.MethodGet, "/session/status", nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var resp struct {
		Data struct {
			State  string `json:"state"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Status != "Sending prompt..." {
		t.Fatalf("unexpected status %q", resp.Data.Status)
	}
	if resp.Data.State != "idle" {
		t.Fatalf("unexpected state %q", resp.Data.State)
	}
}

func TestSessionHandler_UndoRedoBack(t *testing.T) {
	fx := setupSessionRouter(t, "http://127.0.0.1:1")

	for _, prompt := range []string{"one", "two", "three"} {
		fx.history.LogPrompt(context.Background(), history.LogPromptInput{Prompt: prompt})
	}

	type navResp struct {
		Data struct {
			Record       *domain.PromptRecord `json:"record"`
			CurrentIndex int                  `json:"current_index"`
		} `json:"data"`
	}

	rec := postJSON(fx.router, "/session/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var undo navResp
	if err := json.Unmarshal(rec.Body.Bytes(), &undo); err != nil {
		t.Fatalf("unmarshal undo: %v", err)
	}
	if undo.Data.Record == nil || undo.Data.Record.Prompt != "two" {
		t.Fatalf("expected undo to land on second record, got %+v", undo.Data.Record)
	}
	if undo.Data.CurrentIndex != 1 {
		t.Fatalf("expected index 1 got %d", undo.Data.CurrentIndex)
	}

	rec = postJSON(fx.router, "/session/redo", nil)
	var redo navResp
	if err := json.Unmarshal(rec.Body.Bytes(), &redo); err != nil {
		t.Fatalf("unmarshal redo: %v", err)
	}
	if redo.Data.Record == nil || redo.Data.Record.Prompt != "three" {
		t.Fatalf("expected redo to land on third record, got %+v", redo.Data.Record)
	}

	rec = postJSON(fx.router, "/session/back", nil)
	var back navResp
	if err := json.Unmarshal(rec.Body.Bytes(), &back); err != nil {
		t.Fatalf("unmarshal back: %v", err)
	}
	if back.Data.Record == nil || back.Data.Record.Prompt != "two" {
		t.Fatalf("expected go-back to follow pointer, got %+v", back.Data.Record)
	}

	// 边界：到序列起点后继续 undo 返回 null 记录。
	postJSON(fx.router, "/session/undo", nil)
	rec = postJSON(fx.router, "/session/undo", nil)
	var boundary navResp
	if err := json.Unmarshal(rec.Body.Bytes(), &boundary); err != nil {
		t.Fatalf("unmarshal boundary undo: %v", err)
	}
	if boundary.Data.Record != nil {
		t.Fatalf("expected nil record at boundary, got %+v", boundary.Data.Record)
	}
	if boundary.Data.CurrentIndex != 0 {
		t.Fatalf("expected cursor pinned at 0, got %d", boundary.Data.CurrentIndex)
	}
}

func TestScriptHandler_GenerateSync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"script": "bpy.ops.transform.rotate(value=0.2618)"}`))
	}))
	defer server.Close()

	fx := setupSessionRouter(t, server.URL)

	rec := postJSON(fx.router, "/scripts/generate", map[string]string{"prompt": "Rotate the cube"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d, body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Script string `json:"script"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Script != "bpy.ops.transform.rotate(value=0.2618)" {
		t.Fatalf("unexpected script %q", resp.Data.Script)
	}
}

func TestScriptHandler_ErrorMapping(t *testing.T) {
	unsafeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"script": "import os"}`))
	}))
	defer unsafeServer.Close()

	fx := setupSessionRouter(t, unsafeServer.URL)
	rec := postJSON(fx.router, "/scripts/generate", map[string]string{"prompt": "hello"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unsafe script got %d", rec.Code)
	}

	downServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer downServer.Close()

	fx = setupSessionRouter(t, downServer.URL)
	rec = postJSON(fx.router, "/scripts/generate", map[string]string{"prompt": "hello"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for transport failure got %d", rec.Code)
	}

	shapeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail": "nope"}`))
	}))
	defer shapeServer.Close()

	fx = setupSessionRouter(t, shapeServer.URL)
	rec = postJSON(fx.router, "/scripts/generate", map[string]string{"prompt": "hello"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for shape mismatch got %d", rec.Code)
	}

	rec = postJSON(fx.router, "/scripts/generate", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing prompt got %d", rec.Code)
	}
}
