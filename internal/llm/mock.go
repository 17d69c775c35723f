package llm

import (
	"context"
	"sync"
)

// MockClient is an in-memory Client for tests. Handler, when set, decides the
// reply; otherwise Text and Err are returned for every call.
type MockClient struct {
	Text    string
	Err     error
	Handler func(ctx context.Context, req Request) (*Response, error)

	mu       sync.Mutex
	requests []Request
	closed   bool
}

// Complete records req and returns the configured reply.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Handler != nil {
		return m.Handler(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &Response{Text: m.Text, Model: "mock"}, nil
}

// GetModel returns a fixed model name.
func (m *MockClient) GetModel(ModelTier) string {
	return "mock"
}

// Close marks the client closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Requests returns a copy of every request received so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Closed reports whether Close has been called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
