// Package ccp embeds the forwarder supervisor and alias resolver.
package ccp

import (
	"net/http"

	"github.com/loykin/ccp/internal/alias"
	"github.com/loykin/ccp/internal/config"
	"github.com/loykin/ccp/internal/forwarder"
	"github.com/loykin/ccp/internal/metrics"
	"github.com/loykin/ccp/internal/server"
	"github.com/loykin/ccp/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type (
	Supervisor   = supervisor.Supervisor
	Context      = supervisor.Context
	Option       = supervisor.Option
	Status       = supervisor.Status
	StartOptions = supervisor.StartOptions
	StartResult  = supervisor.StartResult
	StopResult   = supervisor.StopResult
	FileConfig   = config.FileConfig
	Runtime      = config.Runtime
	AliasConfig  = alias.Settings
)

const (
	ModeBackground = supervisor.ModeBackground
	ModeForeground = supervisor.ModeForeground
)

// NewSupervisor manages the forwarder whose state files live in dir.
func NewSupervisor(dir string, opts ...Option) (*Supervisor, error) {
	c, err := supervisor.NewContext(dir)
	if err != nil {
		return nil, err
	}
	return supervisor.New(c, opts...), nil
}

// ResolveAlias maps a model alias ("sonnet", "claude-3-haiku") to a qualified
// provider model. Unknown names are returned unchanged.
func ResolveAlias(name string, s AliasConfig) string { return alias.Resolve(name, s) }

// LoadConfig reads an optional .ccp.toml; relative paths resolve against baseDir.
func LoadConfig(path, baseDir string) (FileConfig, error) { return config.Load(path, baseDir) }

// NewForwarderHandler builds the forwarder HTTP surface (MCP, health, metrics)
// for embedding in an existing server.
func NewForwarderHandler(rt Runtime, basePath, version string) (http.Handler, error) {
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	c := forwarder.NewOpenAICompleter(rt, forwarder.Endpoints{})
	return server.NewRouter(forwarder.New(rt, c, nil, version), basePath).Handler(), nil
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
