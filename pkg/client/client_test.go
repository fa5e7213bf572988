package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/ccp/internal/config"
	"github.com/loykin/ccp/internal/forwarder"
	"github.com/loykin/ccp/internal/server"
)

type echoCompleter struct{ err error }

func (e echoCompleter) Complete(_ context.Context, model string, msgs []forwarder.Message) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return model + ":" + msgs[len(msgs)-1].Content, nil
}

func newForwarder(t *testing.T, c forwarder.Completer) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rt := config.Runtime{PreferredProvider: "openai", BigModel: "gpt-4.1", SmallModel: "gpt-4.1-mini"}
	ts := httptest.NewServer(server.NewRouter(forwarder.New(rt, c, nil, "test"), "").Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := newForwarder(t, echoCompleter{})
	c := New(Config{BaseURL: ts.URL + "/"})
	assert.Equal(t, ts.URL, c.BaseURL())

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Health{Status: "ok", Provider: "openai", BigModel: "gpt-4.1", SmallModel: "gpt-4.1-mini"}, h)
	assert.True(t, c.IsReachable(context.Background()))
}

func TestHealth_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"warming up"}`))
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL})
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warming up")
	assert.False(t, c.IsReachable(context.Background()))

	ts.Close()
	_, err = c.Health(context.Background())
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	c := New(DefaultConfig())
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultBaseURL, New(Config{}).BaseURL())
}

func TestRunModel(t *testing.T) {
	ts := newForwarder(t, echoCompleter{})
	c := New(Config{BaseURL: ts.URL})

	out, err := c.RunModel(context.Background(), RunModelRequest{Prompt: "ping", ModelAlias: "haiku"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4.1-mini:ping", out)
}

func TestRunModel_ToolError(t *testing.T) {
	ts := newForwarder(t, echoCompleter{err: errors.New("quota")})
	c := New(Config{BaseURL: ts.URL})

	_, err := c.RunModel(context.Background(), RunModelRequest{Prompt: "ping"})
	require.ErrorIs(t, err, ErrToolFailed)
	assert.Contains(t, err.Error(), "An error occurred: quota")
}
