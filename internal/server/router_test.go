package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/ccp/internal/config"
	"github.com/loykin/ccp/internal/forwarder"
)

type staticCompleter struct{}

func (staticCompleter) Complete(context.Context, string, []forwarder.Message) (string, error) {
	return "ok", nil
}

func setupRouter(t *testing.T, base string) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rt := config.Runtime{PreferredProvider: "google", BigModel: "gemini-2.5-pro", SmallModel: "gemini-2.5-flash"}
	fwd := forwarder.New(rt, staticCompleter{}, nil, "test")
	return NewRouter(fwd, base).Handler()
}

func doReq(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := setupRouter(t, "")
	rec := doReq(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got healthResp
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := healthResp{Status: "ok", Provider: "google", BigModel: "gemini-2.5-pro", SmallModel: "gemini-2.5-flash"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestBasePathAndMetrics(t *testing.T) {
	h := setupRouter(t, "api/")
	if rec := doReq(t, h, http.MethodGet, "/api/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 under base path, got %d", rec.Code)
	}
	if rec := doReq(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside base path, got %d", rec.Code)
	}
	if rec := doReq(t, h, http.MethodGet, "/api/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
}

func TestMCPInitialize(t *testing.T) {
	h := setupRouter(t, "")
	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	rec := doReq(t, h, http.MethodPost, "/mcp", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"ccp"`) {
		t.Fatalf("initialize response missing server name: %s", rec.Body.String())
	}
}

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{"": "", "/": "", "abc": "/abc", "/abc/": "/abc", " /x/y// ": "/x/y"}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Fatalf("sanitizeBase(%q)=%q want %q", in, got, want)
		}
	}
}

func TestServeListener_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveListener(ctx, ln, setupRouter(t, ""), nil) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
