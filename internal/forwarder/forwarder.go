// Package forwarder exposes the run_model tool over MCP. Model aliases are
// resolved against the runtime settings before the completion call.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/loykin/ccp/internal/alias"
	"github.com/loykin/ccp/internal/config"
	"github.com/loykin/ccp/internal/metrics"
)

const (
	ServerName = "ccp"
	ToolName   = "run_model"

	DefaultAlias = "sonnet"

	noContentText = "Error: No content in response."
)

// Forwarder owns the MCP server and the completion client.
type Forwarder struct {
	rt        config.Runtime
	completer Completer
	log       *slog.Logger
	mcp       *server.MCPServer
}

// New builds a Forwarder. version is reported to MCP clients.
func New(rt config.Runtime, c Completer, log *slog.Logger, version string) *Forwarder {
	if log == nil {
		log = slog.Default()
	}
	f := &Forwarder{rt: rt, completer: c, log: log}
	s := server.NewMCPServer(ServerName, version)
	s.AddTool(mcp.Tool{
		Name:        ToolName,
		Description: "Runs a prompt against a model alias ('sonnet' for the big model, 'haiku' for the small model). Other names are passed through unchanged.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "The main text prompt to send to the language model.",
				},
				"model_alias": map[string]any{
					"type":        "string",
					"description": "Model alias: 'sonnet', 'haiku', or an explicit provider/model.",
					"default":     DefaultAlias,
				},
				"system_prompt": map[string]any{
					"type":        "string",
					"description": "Optional system message to guide the model's behavior.",
				},
			},
			Required: []string{"prompt"},
		},
	}, f.handleRunModel)
	f.mcp = s
	return f
}

// MCPServer returns the underlying MCP server for transport wiring.
func (f *Forwarder) MCPServer() *server.MCPServer { return f.mcp }

// Runtime returns the configuration the forwarder was built with.
func (f *Forwarder) Runtime() config.Runtime { return f.rt }

// Resolve maps an alias to a qualified model and counts the resolution.
func (f *Forwarder) Resolve(name string) string {
	class := "passthrough"
	if slot, ok := alias.Match(name); ok {
		class = slot.String()
	}
	metrics.IncAliasResolution(class)
	return alias.Resolve(name, f.rt.Aliases())
}

// RunModel resolves modelAlias and returns the trimmed completion text.
// An empty completion yields the no-content message rather than an error.
func (f *Forwarder) RunModel(ctx context.Context, prompt, modelAlias, systemPrompt string) (string, error) {
	if modelAlias == "" {
		modelAlias = DefaultAlias
	}
	model := f.Resolve(modelAlias)
	f.log.Info("running model", "model", model, "alias", modelAlias)

	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	done := metrics.TrackInflight()
	start := time.Now()
	text, err := f.completer.Complete(ctx, model, messages)
	done()
	provider := Provider(model)
	if err != nil {
		metrics.ObserveCompletion(provider, metrics.OutcomeError, time.Since(start))
		f.log.Error("model call failed", "alias", modelAlias, "model", model, "error", err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.ObserveCompletion(provider, metrics.OutcomeEmpty, time.Since(start))
		return noContentText, nil
	}
	metrics.ObserveCompletion(provider, metrics.OutcomeOK, time.Since(start))
	return text, nil
}

func (f *Forwarder) handleRunModel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("An error occurred: invalid arguments"), nil
	}
	prompt, _ := args["prompt"].(string)
	if prompt == "" {
		return errResult("An error occurred: 'prompt' is required"), nil
	}
	modelAlias, _ := args["model_alias"].(string)
	systemPrompt, _ := args["system_prompt"].(string)

	text, err := f.RunModel(ctx, prompt, modelAlias, systemPrompt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return errResult(fmt.Sprintf("An error occurred: %v", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}, nil
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}

// ServeStdio serves MCP over standard input and output until EOF or signal.
func (f *Forwarder) ServeStdio() error { return server.ServeStdio(f.mcp) }
