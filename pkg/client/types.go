package client

// Health is the forwarder's /healthz payload.
type Health struct {
	Status     string `json:"status"`
	Provider   string `json:"provider"`
	BigModel   string `json:"big_model"`
	SmallModel string `json:"small_model"`
}

// RunModelRequest mirrors the run_model tool arguments.
type RunModelRequest struct {
	Prompt       string
	ModelAlias   string
	SystemPrompt string
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
