package ccp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSupervisorFacadeStatus(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSupervisor(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	st, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Running() {
		t.Fatalf("expected stopped, got %+v", st)
	}
	if _, err := os.Stat(filepath.Join(dir, ".ccp.pid")); !os.IsNotExist(err) {
		t.Fatalf("status must not create a record: %v", err)
	}
}

func TestResolveAliasFacade(t *testing.T) {
	s := AliasConfig{PreferredProvider: "google", BigModel: "gemini-2.5-pro", SmallModel: "gemini-2.5-flash"}
	if got := ResolveAlias("claude-3-5-haiku", s); got != "gemini/gemini-2.5-flash" {
		t.Fatalf("haiku: %q", got)
	}
	if got := ResolveAlias("claude-sonnet-4", s); got != "gemini/gemini-2.5-pro" {
		t.Fatalf("sonnet: %q", got)
	}
	if got := ResolveAlias("gpt-4o", s); got != "gpt-4o" {
		t.Fatalf("pass-through: %q", got)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	dir := t.TempDir()
	fc, err := LoadConfig(filepath.Join(dir, ".ccp.toml"), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.Server.Address != "http://localhost:8082" {
		t.Fatalf("unexpected default address %q", fc.Server.Address)
	}
}

func TestForwarderHandlerFacade(t *testing.T) {
	if _, err := NewForwarderHandler(Runtime{}, "", "test"); err == nil {
		t.Fatal("expected missing key error")
	}
	rt := Runtime{OpenAIAPIKey: "a", GeminiAPIKey: "b", PreferredProvider: "openai", BigModel: "gpt-4.1", SmallModel: "gpt-4.1-mini"}
	h, err := NewForwarderHandler(rt, "/ccp", "test")
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ccp/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"big_model":"gpt-4.1"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterMetricsFacade(t *testing.T) {
	if err := RegisterMetrics(prometheus.NewRegistry()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("register default: %v", err)
	}
}
