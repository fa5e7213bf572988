package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIdempotentAndHelpersWork(t *testing.T) {
	regOK.Store(false)
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	beforeBig := testutil.ToFloat64(aliasResolutions.WithLabelValues("big"))
	beforeOK := testutil.ToFloat64(completions.WithLabelValues("openai", OutcomeOK))

	IncAliasResolution("big")
	IncAliasResolution("big")
	ObserveCompletion("openai", OutcomeOK, 1250*time.Millisecond)
	done := TrackInflight()
	if got := testutil.ToFloat64(inflight); got != 1 {
		t.Fatalf("inflight=%v want 1", got)
	}
	done()

	if got := testutil.ToFloat64(aliasResolutions.WithLabelValues("big")) - beforeBig; got != 2 {
		t.Fatalf("alias resolutions delta=%v want 2", got)
	}
	if got := testutil.ToFloat64(completions.WithLabelValues("openai", OutcomeOK)) - beforeOK; got != 1 {
		t.Fatalf("completions delta=%v want 1", got)
	}
	if got := testutil.ToFloat64(inflight); got != 0 {
		t.Fatalf("inflight=%v want 0", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	wantNames := map[string]bool{
		"ccp_forwarder_alias_resolutions_total":     false,
		"ccp_forwarder_completions_total":           false,
		"ccp_forwarder_completion_duration_seconds": false,
		"ccp_forwarder_inflight_completions":        false,
	}
	for _, mf := range mfs {
		if _, ok := wantNames[mf.GetName()]; ok {
			wantNames[mf.GetName()] = true
		}
	}
	for n, ok := range wantNames {
		if !ok {
			t.Fatalf("expected to find metric %s", n)
		}
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	regOK.Store(false)
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	ObserveCompletion("gemini", OutcomeError, time.Second)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != 200 {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), `ccp_forwarder_completions_total{outcome="error",provider="gemini"}`) {
		t.Fatalf("metrics output missing completions_total")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	regOK.Store(false)
	if err := Register(reg); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IncAliasResolution("small")
			defer TrackInflight()()
			ObserveCompletion("openai", OutcomeEmpty, time.Millisecond)
		}()
	}
	wg.Wait()
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestMetricsBeforeRegister(t *testing.T) {
	originalState := regOK.Load()
	regOK.Store(false)
	defer regOK.Store(originalState)

	before := testutil.ToFloat64(aliasResolutions.WithLabelValues("passthrough"))
	IncAliasResolution("passthrough")
	ObserveCompletion("openai", OutcomeOK, time.Second)
	TrackInflight()()
	if after := testutil.ToFloat64(aliasResolutions.WithLabelValues("passthrough")); after != before {
		t.Fatalf("helpers must no-op before Register")
	}
}

func TestRegisterError(t *testing.T) {
	originalState := regOK.Load()
	regOK.Store(false)
	defer regOK.Store(originalState)

	err := Register(&errorRegisterer{})
	if err == nil || err.Error() != "test registration error" {
		t.Fatalf("unexpected error: %v", err)
	}
	if regOK.Load() {
		t.Fatalf("failed registration must not enable helpers")
	}
}

// errorRegisterer fails every registration.
type errorRegisterer struct{}

func (e *errorRegisterer) Register(prometheus.Collector) error {
	return errors.New("test registration error")
}
func (e *errorRegisterer) MustRegister(...prometheus.Collector) {}
func (e *errorRegisterer) Unregister(prometheus.Collector) bool { return false }
