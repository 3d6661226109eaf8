package gateway

import (
	"context"
	"sync"
	"time"
)

// MockGateway is a scriptable Gateway implementation for testing. Each
// backend can be scripted to succeed, fail, or time out, and every call is
// recorded in order.
type MockGateway struct {
	mu sync.Mutex

	// scripts maps backend id to its scripted behavior.
	scripts map[string]mockScript

	// Calls records the backend ids invoked, in order.
	Calls []string
}

type mockScript struct {
	completion *Completion
	err        error
	delay      time.Duration
}

// NewMockGateway creates a mock gateway with no scripted backends.
// Unscripted backends fail with a TransportError.
func NewMockGateway() *MockGateway {
	return &MockGateway{scripts: make(map[string]mockScript)}
}

// Succeed scripts a backend to return the given text and usage.
func (m *MockGateway) Succeed(backend, text string, inputTokens, outputTokens int, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[backend] = mockScript{
		completion: &Completion{
			Text:    text,
			Usage:   Usage{InputTokens: inputTokens, OutputTokens: outputTokens},
			Latency: latency,
		},
	}
}

// Fail scripts a backend to return a transport error.
func (m *MockGateway) Fail(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[backend] = mockScript{
		err: &TransportError{Backend: backend, StatusCode: 502, Message: "scripted failure"},
	}
}

// Timeout scripts a backend to return a timeout error with no usage.
func (m *MockGateway) Timeout(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[backend] = mockScript{
		err: &TimeoutError{Backend: backend, Timeout: time.Second},
	}
}

// Delay scripts a backend to block for d before honoring the context
// deadline or returning its scripted result.
func (m *MockGateway) Delay(backend string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	script := m.scripts[backend]
	script.delay = d
	m.scripts[backend] = script
}

// Complete implements Gateway.
func (m *MockGateway) Complete(ctx context.Context, backend string, req *Request) (*Completion, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, backend)
	script, ok := m.scripts[backend]
	m.mu.Unlock()

	if script.delay > 0 {
		select {
		case <-time.After(script.delay):
		case <-ctx.Done():
			return nil, &TimeoutError{Backend: backend, Timeout: script.delay}
		}
	}

	if !ok {
		return nil, &TransportError{Backend: backend, Message: "backend not scripted"}
	}
	if script.err != nil {
		return nil, script.err
	}
	return script.completion, nil
}

// CallCount returns how many times the given backend was invoked.
func (m *MockGateway) CallCount(backend string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.Calls {
		if call == backend {
			count++
		}
	}
	return count
}
