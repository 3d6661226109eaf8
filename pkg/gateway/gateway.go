package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"conversa-hq/orbit/pkg/config"
)

// Gateway is the external completion collaborator. The orchestrator invokes
// it once per failover attempt with the chosen backend's model, the ordered
// conversation history, and a token-budget hint.
//
// Implementations must respect context cancellation and return immediately
// when the context deadline is exceeded; the per-attempt deadline is the
// core's only defense against a slow backend stalling a turn.
type Gateway interface {
	// Complete sends one completion request and returns the normalized
	// completion. Returns a *TimeoutError when the context deadline is
	// exceeded and a *TransportError for every other failure.
	Complete(ctx context.Context, backend string, req *Request) (*Completion, error)
}

// HTTPGateway is the production Gateway backed by an OpenAI-compatible
// chat-completions endpoint. It pools connections and normalizes responses;
// retry and failover live in the orchestrator, not here.
type HTTPGateway struct {
	cfg    config.GatewayConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPGateway creates a gateway client with connection pooling.
// The client carries no overall timeout; each call is bounded by the
// caller's context instead.
func NewHTTPGateway(cfg config.GatewayConfig) *HTTPGateway {
	transport := &http.Transport{
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
		logger: slog.Default().With("component", "gateway"),
	}
}

// wireRequest is the upstream chat-completions request body.
type wireRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// wireResponse is the subset of the upstream response the core consumes.
type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Complete implements Gateway.
func (g *HTTPGateway) Complete(ctx context.Context, backend string, req *Request) (*Completion, error) {
	body, err := json.Marshal(wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, &TransportError{Backend: backend, Message: "failed to encode request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Backend: backend, Message: "failed to build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, g.timeoutError(ctx, backend)
		}
		return nil, &TransportError{Backend: backend, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, g.timeoutError(ctx, backend)
		}
		return nil, &TransportError{Backend: backend, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Backend:    backend,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(raw), 200),
		}
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &TransportError{Backend: backend, Message: "failed to decode response", Cause: err}
	}
	if len(wire.Choices) == 0 {
		return nil, &TransportError{Backend: backend, Message: "response contained no choices"}
	}

	latency := time.Since(start)
	g.logger.Debug("completion received",
		"backend", backend,
		"model", req.Model,
		"latency", latency,
		"input_tokens", wire.Usage.InputTokens,
		"output_tokens", wire.Usage.OutputTokens,
	)

	return &Completion{
		Text:    wire.Choices[0].Message.Content,
		Usage:   wire.Usage,
		Latency: latency,
	}, nil
}

// timeoutError builds a TimeoutError carrying the context's deadline.
func (g *HTTPGateway) timeoutError(ctx context.Context, backend string) *TimeoutError {
	timeout := time.Duration(0)
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout < 0 {
			timeout = -timeout
		}
	}
	return &TimeoutError{Backend: backend, Timeout: timeout}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
