package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"conversa-hq/orbit/pkg/config"
)

func completionBody(text string, input, output int) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": text}},
		},
		"usage": map[string]any{
			"prompt_tokens":     input,
			"completion_tokens": output,
		},
	})
	return string(body)
}

// ====== Wire Round Trip ======

func TestComplete_Success(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody wireRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(completionBody("Hello! How can I help?", 42, 12)))
	}))
	defer srv.Close()

	g := NewHTTPGateway(config.GatewayConfig{BaseURL: srv.URL, APIKey: "sk-test", MaxTokens: 300})
	comp, err := g.Complete(context.Background(), "chat-mini", &Request{
		Model:     "openai/gpt-4o-mini",
		Messages:  []Message{{Role: "user", Content: "hello"}},
		MaxTokens: 300,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if comp.Text != "Hello! How can I help?" {
		t.Errorf("unexpected text: %q", comp.Text)
	}
	if comp.Usage.InputTokens != 42 || comp.Usage.OutputTokens != 12 {
		t.Errorf("usage not parsed: %+v", comp.Usage)
	}
	if comp.Latency <= 0 {
		t.Error("latency must be measured")
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("authorization header wrong: %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type wrong: %q", gotContentType)
	}
	if gotBody.Model != "openai/gpt-4o-mini" || len(gotBody.Messages) != 1 {
		t.Errorf("request body wrong: %+v", gotBody)
	}
	if gotBody.MaxTokens != 300 {
		t.Errorf("max_tokens not sent: %d", gotBody.MaxTokens)
	}
}

func TestComplete_NoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(completionBody("ok", 1, 1)))
	}))
	defer srv.Close()

	g := NewHTTPGateway(config.GatewayConfig{BaseURL: srv.URL})
	if _, err := g.Complete(context.Background(), "chat-mini", &Request{Model: "m"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("no key configured but authorization sent: %q", gotAuth)
	}
}

// ====== Failure Paths ======

func TestComplete_RemoteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited upstream"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewHTTPGateway(config.GatewayConfig{BaseURL: srv.URL})
	_, err := g.Complete(context.Background(), "chat-mini", &Request{Model: "m"})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status code not carried: %d", te.StatusCode)
	}
	if te.Backend != "chat-mini" {
		t.Errorf("backend not attributed: %s", te.Backend)
	}
	if IsTimeout(err) {
		t.Error("status error must not read as a timeout")
	}
}

func TestComplete_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	g := NewHTTPGateway(config.GatewayConfig{BaseURL: srv.URL})
	_, err := g.Complete(context.Background(), "chat-mini", &Request{Model: "m"})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway(config.GatewayConfig{BaseURL: srv.URL})
	if _, err := g.Complete(context.Background(), "chat-mini", &Request{Model: "m"}); err == nil {
		t.Error("expected error for a response with no choices")
	}
}

func TestComplete_DeadlineExceeded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	g := NewHTTPGateway(config.GatewayConfig{BaseURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.Complete(ctx, "chat-mini", &Request{Model: "m"})
	if !IsTimeout(err) {
		t.Fatalf("expected a timeout error, got %v", err)
	}

	var te *TimeoutError
	if !errors.As(err, &te) || te.Backend != "chat-mini" {
		t.Errorf("timeout not attributed to the backend: %v", err)
	}
}

func TestComplete_ConnectionRefused(t *testing.T) {
	// Reserve an address, then close it so nothing listens there.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := NewHTTPGateway(config.GatewayConfig{BaseURL: url})
	_, err := g.Complete(context.Background(), "chat-mini", &Request{Model: "m"})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if IsTimeout(err) {
		t.Error("connection failure must not read as a timeout")
	}
}

// ====== Error Helpers ======

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(&TimeoutError{Backend: "b", Timeout: time.Second}) {
		t.Error("direct timeout error not recognized")
	}
	if IsTimeout(&TransportError{Backend: "b"}) {
		t.Error("transport error misread as timeout")
	}
	if IsTimeout(nil) {
		t.Error("nil error misread as timeout")
	}
}

// ====== Mock ======

func TestMockGateway_RecordsCalls(t *testing.T) {
	m := NewMockGateway()
	m.Succeed("a", "text", 10, 5, time.Millisecond)
	m.Fail("b")

	if _, err := m.Complete(context.Background(), "a", &Request{}); err != nil {
		t.Errorf("scripted success failed: %v", err)
	}
	if _, err := m.Complete(context.Background(), "b", &Request{}); err == nil {
		t.Error("scripted failure succeeded")
	}
	if _, err := m.Complete(context.Background(), "unscripted", &Request{}); err == nil {
		t.Error("unscripted backend should fail")
	}

	if m.CallCount("a") != 1 || m.CallCount("b") != 1 {
		t.Errorf("call counts wrong: %v", m.Calls)
	}
}

func TestMockGateway_TimeoutScript(t *testing.T) {
	m := NewMockGateway()
	m.Timeout("slow")

	_, err := m.Complete(context.Background(), "slow", &Request{})
	if !IsTimeout(err) {
		t.Errorf("expected timeout, got %v", err)
	}
}
