package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"klip/internal/clipboard"
	"klip/internal/service"
	"klip/internal/storage"
	"klip/internal/storage/sqlite"
	"klip/pkg/types"
)

type memBackend struct {
	mu   sync.Mutex
	text string
}

func (b *memBackend) Name() string { return "memory" }

func (b *memBackend) ReadText() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.text == "" {
		return "", clipboard.ErrEmpty
	}
	return b.text, nil
}

func (b *memBackend) WriteText(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	return nil
}

func (b *memBackend) ReadImage() ([]byte, error)   { return nil, clipboard.ErrEmpty }
func (b *memBackend) WriteImage(data []byte) error { return clipboard.ErrUnsupported }

type testEnv struct {
	svc     *service.ClipboardService
	server  *Server
	http    *httptest.Server
	backend *memBackend
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(storage.Config{DataDir: t.TempDir(), Location: time.UTC})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	backend := &memBackend{}
	svc := service.New(store, backend, service.Config{PollInterval: 5 * time.Millisecond, Location: time.UTC})
	t.Cleanup(func() { svc.Stop() })

	srv := New(svc, Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.run(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{svc: svc, server: srv, http: ts, backend: backend}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	return e.doWithHeaders(t, method, path, body, map[string]string{"Content-Type": "application/json"})
}

func (e *testEnv) doWithHeaders(t *testing.T, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status = %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want)
	}
}

func TestStatus(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/status", "")
	expectStatus(t, resp, http.StatusOK)
	if got := decode[map[string]string](t, resp); got["status"] != "ok" {
		t.Errorf("unexpected status body: %v", got)
	}
}

func TestClipLifecycle(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/clips", `{"content":"Café au lait"}`)
	expectStatus(t, resp, http.StatusCreated)
	id := decode[map[string]string](t, resp)["id"]
	if id == "" {
		t.Fatal("expected an id for a new clip")
	}

	resp = env.do(t, http.MethodPost, "/api/clips", `{"content":"Café au lait"}`)
	expectStatus(t, resp, http.StatusOK)
	dup := decode[map[string]any](t, resp)
	if dup["duplicate"] != true || dup["result"] != "Duplicate" {
		t.Errorf("unexpected duplicate body: %v", dup)
	}

	resp = env.do(t, http.MethodGet, "/api/clips?search=CAFE", "")
	expectStatus(t, resp, http.StatusOK)
	clips := decode[[]types.Clip](t, resp)
	if len(clips) != 1 || clips[0].ID != id || clips[0].Type != types.ClipText {
		t.Fatalf("unexpected search result: %+v", clips)
	}

	resp = env.do(t, http.MethodPut, "/api/clips/"+id, `{"content":"Tea"}`)
	expectStatus(t, resp, http.StatusNoContent)

	resp = env.do(t, http.MethodPut, "/api/clips/"+id+"/favorite", `{"favorite":true}`)
	expectStatus(t, resp, http.StatusNoContent)

	resp = env.do(t, http.MethodGet, "/api/clips?search=tea", "")
	clips = decode[[]types.Clip](t, resp)
	if len(clips) != 1 || clips[0].Content != "Tea" || !clips[0].IsFavorite {
		t.Fatalf("edit or favorite not applied: %+v", clips)
	}

	resp = env.do(t, http.MethodPost, "/api/clips/"+id+"/copy", "")
	expectStatus(t, resp, http.StatusNoContent)
	if text, _ := env.backend.ReadText(); text != "Tea" {
		t.Errorf("clipboard = %q, want %q", text, "Tea")
	}

	resp = env.do(t, http.MethodDelete, "/api/clips/"+id, "")
	expectStatus(t, resp, http.StatusNoContent)

	resp = env.do(t, http.MethodDelete, "/api/clips/"+id, "")
	expectStatus(t, resp, http.StatusNotFound)
}

func TestDates(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/api/dates", "")
	expectStatus(t, resp, http.StatusOK)
	if dates := decode[[]string](t, resp); len(dates) != 0 {
		t.Errorf("expected no dates, got %v", dates)
	}

	env.do(t, http.MethodPost, "/api/clips", `{"content":"x"}`)

	resp = env.do(t, http.MethodGet, "/api/dates", "")
	today := time.Now().UTC().Format(storage.DateLayout)
	if dates := decode[[]string](t, resp); len(dates) != 1 || dates[0] != today {
		t.Errorf("dates = %v, want [%s]", dates, today)
	}

	resp = env.do(t, http.MethodGet, "/api/clips?date="+today, "")
	expectStatus(t, resp, http.StatusOK)
	if clips := decode[[]types.Clip](t, resp); len(clips) != 1 {
		t.Errorf("expected 1 clip for today, got %d", len(clips))
	}
}

func TestBadRequests(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/clips?date=14/10/2026", "", http.StatusBadRequest},
		{http.MethodPost, "/api/clips", `{"content":`, http.StatusBadRequest},
		{http.MethodPost, "/api/clips", `{"content":"   "}`, http.StatusBadRequest},
		{http.MethodPut, "/api/clips/nope", `{"content":"x"}`, http.StatusNotFound},
		{http.MethodPut, "/api/clips/nope/favorite", `{"favorite":true}`, http.StatusNotFound},
		{http.MethodPost, "/api/clips/nope/copy", "", http.StatusNotFound},
		{http.MethodPost, "/api/clipboard/image", `{"path":"/etc/passwd"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, tt.body)
			expectStatus(t, resp, tt.want)
			if body := decode[map[string]string](t, resp); body["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestCopyText(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/clipboard", `{"content":"pasted"}`)
	expectStatus(t, resp, http.StatusNoContent)
	if text, _ := env.backend.ReadText(); text != "pasted" {
		t.Errorf("clipboard = %q, want %q", text, "pasted")
	}
}

func TestWebsocketClipboardChanged(t *testing.T) {
	env := setupTestServer(t)

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// Give the hub a moment to register the client before the capture.
	time.Sleep(50 * time.Millisecond)

	clip := &types.Clip{ID: "abc", Content: "hello", Type: types.ClipText, CreatedAt: time.Now().UTC()}
	env.server.hub.HandleClipboardChange(clip)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event struct {
		Type    string     `json:"type"`
		Payload types.Clip `json:"payload"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if event.Type != EventClipboardChanged || event.Payload.ID != "abc" || event.Payload.Content != "hello" {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestIsLoopbackOrigin(t *testing.T) {
	tests := map[string]bool{
		"":                         true,
		"http://localhost:5173":    true,
		"http://LOCALHOST":         true,
		"http://127.0.0.1:8753":    true,
		"http://[::1]:8753":        true,
		"https://evil.example":     false,
		"http://127.0.0.1.nip.io":  false,
		"http://localhost.example": false,
		"null":                     false,
		"file://":                  false,
	}
	for origin, want := range tests {
		if got := isLoopbackOrigin(origin); got != want {
			t.Errorf("isLoopbackOrigin(%q) = %v, want %v", origin, got, want)
		}
	}
}

func TestCrossOriginRequestsRejected(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/clips", ""},
		{http.MethodGet, "/api/dates", ""},
		{http.MethodPost, "/api/clipboard", `{"content":"rm -rf ~"}`},
		{http.MethodPost, "/api/clips", `{"content":"planted"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := env.doWithHeaders(t, tt.method, tt.path, tt.body, map[string]string{
				"Content-Type": "application/json",
				"Origin":       "https://evil.example",
			})
			expectStatus(t, resp, http.StatusForbidden)
		})
	}

	if text, _ := env.backend.ReadText(); text != "" {
		t.Errorf("clipboard changed by cross-origin request: %q", text)
	}

	resp := env.doWithHeaders(t, http.MethodGet, "/api/clips", "", map[string]string{"Origin": "http://localhost:5173"})
	expectStatus(t, resp, http.StatusOK)
}

func TestWritesRequireJSON(t *testing.T) {
	env := setupTestServer(t)

	for _, ct := range []string{"text/plain", "application/x-www-form-urlencoded", "multipart/form-data; boundary=x"} {
		t.Run(ct, func(t *testing.T) {
			resp := env.doWithHeaders(t, http.MethodPost, "/api/clipboard", `{"content":"rm -rf ~"}`, map[string]string{"Content-Type": ct})
			expectStatus(t, resp, http.StatusUnsupportedMediaType)
		})
	}
	if text, _ := env.backend.ReadText(); text != "" {
		t.Errorf("clipboard changed by non-JSON request: %q", text)
	}

	resp := env.doWithHeaders(t, http.MethodPost, "/api/clipboard", `{"content":"ok"}`, map[string]string{"Content-Type": "application/json; charset=utf-8"})
	expectStatus(t, resp, http.StatusNoContent)
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	env := setupTestServer(t)

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		conn.Close()
		t.Fatal("expected websocket dial from a foreign origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}

	conn, _, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://127.0.0.1:5173"}})
	if err != nil {
		t.Fatalf("loopback origin should be accepted: %v", err)
	}
	conn.Close()
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/ws", "")
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "klip.pid")
	pf := NewPIDFile(path)

	if pid, err := pf.Read(); err != nil || pid != 0 {
		t.Fatalf("Read on missing file = %d, %v; want 0, nil", pid, err)
	}

	if err := pf.Acquire(); err != nil {
		t.Fatalf("failed to acquire: %v", err)
	}
	if pid, err := pf.Read(); err != nil || pid != os.Getpid() {
		t.Errorf("Read = %d, %v; want %d", pid, err, os.Getpid())
	}
	if !IsRunning(os.Getpid()) {
		t.Error("current process should be running")
	}
	if IsRunning(0) {
		t.Error("pid 0 should not be running")
	}

	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := pf.Read(); err == nil {
		t.Error("expected error for invalid PID")
	}

	if err := pf.Remove(); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	if err := pf.Remove(); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}
}

func TestServerStartStop(t *testing.T) {
	env := setupTestServer(t)
	srv := New(env.svc, Config{Addr: "127.0.0.1:0"})

	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("failed to stop: %v", err)
	}
	if _, err := http.Get("http://" + srv.Addr() + "/status"); err == nil {
		t.Error("expected request to fail after Stop")
	}
}
