// Package client talks to a running ccp forwarder over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultBaseURL is where the forwarder listens unless configured otherwise.
const DefaultBaseURL = "http://localhost:8082"

// ErrToolFailed is returned when run_model reports an error result.
var ErrToolFailed = errors.New("run_model failed")

// Client provides HTTP access to the forwarder.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 5 * time.Second,
	}
}

// New creates a forwarder client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// BaseURL returns the normalized forwarder address.
func (c *Client) BaseURL() string { return c.baseURL }

// Health fetches /healthz.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return h, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Forwarder unreachable", "error", err)
		return h, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := c.handleErrorResponse(resp); err != nil {
		return h, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, fmt.Errorf("decode health: %w", err)
	}
	return h, nil
}

// IsReachable reports whether the forwarder answers its health check.
func (c *Client) IsReachable(ctx context.Context) bool {
	h, err := c.Health(ctx)
	return err == nil && h.Status == "ok"
}

// RunModel calls the run_model tool over the MCP streamable HTTP endpoint and
// returns the text of the result.
func (c *Client) RunModel(ctx context.Context, r RunModelRequest) (string, error) {
	mc, err := mcpclient.NewStreamableHttpClient(c.baseURL + "/mcp")
	if err != nil {
		return "", fmt.Errorf("mcp client: %w", err)
	}
	defer func() { _ = mc.Close() }()
	if err := mc.Start(ctx); err != nil {
		return "", fmt.Errorf("mcp start: %w", err)
	}

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "ccp-client", Version: "1"}
	if _, err := mc.Initialize(ctx, init); err != nil {
		return "", fmt.Errorf("mcp initialize: %w", err)
	}

	args := map[string]any{"prompt": r.Prompt}
	if r.ModelAlias != "" {
		args["model_alias"] = r.ModelAlias
	}
	if r.SystemPrompt != "" {
		args["system_prompt"] = r.SystemPrompt
	}
	call := mcp.CallToolRequest{}
	call.Params.Name = "run_model"
	call.Params.Arguments = args
	res, err := mc.CallTool(ctx, call)
	if err != nil {
		return "", fmt.Errorf("call run_model: %w", err)
	}

	var sb strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return "", fmt.Errorf("%w: %s", ErrToolFailed, sb.String())
	}
	return sb.String(), nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}
