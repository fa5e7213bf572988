package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/loykin/ccp/internal/forwarder"
	"github.com/loykin/ccp/internal/metrics"
)

// Router provides the forwarder's HTTP surface.
// Endpoints:
//
//	POST|GET|DELETE {basePath}/mcp   MCP streamable HTTP transport
//	GET             {basePath}/healthz
//	GET             {basePath}/metrics  Prometheus exposition
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	fwd      *forwarder.Forwarder
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(fwd *forwarder.Forwarder, basePath string) *Router {
	return &Router{fwd: fwd, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	mcp := gin.WrapH(mcpserver.NewStreamableHTTPServer(r.fwd.MCPServer()))
	group.POST("/mcp", mcp)
	group.GET("/mcp", mcp)
	group.DELETE("/mcp", mcp)
	group.GET("/healthz", r.handleHealth)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

type healthResp struct {
	Status     string `json:"status"`
	Provider   string `json:"provider"`
	BigModel   string `json:"big_model"`
	SmallModel string `json:"small_model"`
}

func (r *Router) handleHealth(c *gin.Context) {
	rt := r.fwd.Runtime()
	writeJSON(c, http.StatusOK, healthResp{
		Status:     "ok",
		Provider:   rt.PreferredProvider,
		BigModel:   rt.BigModel,
		SmallModel: rt.SmallModel,
	})
}

// NewServer returns an http.Server for h. There is no write timeout:
// completions and MCP event streams may run long.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Serve listens on addr and serves h until ctx is done, then shuts down
// gracefully. A cancelled context is a normal return.
func Serve(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serveListener(ctx, ln, h, log)
}

func serveListener(ctx context.Context, ln net.Listener, h http.Handler, log *slog.Logger) error {
	srv := NewServer(ln.Addr().String(), h)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	if log != nil {
		log.Info("forwarder listening", "addr", ln.Addr().String())
	}
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if log != nil {
		log.Info("forwarder stopped")
	}
	return nil
}
