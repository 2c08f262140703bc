package transport

import (
	"context"
	"sync"

	xerrors "CarMania-Agent/internal/errors"
)

// Outbound records one message delivered through the memory transport.
type Outbound struct {
	ConversationID string
	Address        string
	Text           string
	Payload        any
	Tag            ContentTag
}

// MemoryClient is an in-process transport used by tests and local runs. It
// fans inbound messages out to registered handlers synchronously and records
// everything sent.
type MemoryClient struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	sent     []Outbound

	// FailStructured makes SendStructured return an error, to exercise the
	// plain-text fallback path.
	FailStructured bool
}

// NewMemoryClient creates an empty memory transport.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{handlers: make(map[string]Handler)}
}

// RegisterHandler implements Client.
func (m *MemoryClient) RegisterHandler(id string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[id] = handler
}

// UnregisterHandler implements Client.
func (m *MemoryClient) UnregisterHandler(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, id)
}

// Deliver pushes an inbound message to every registered handler.
func (m *MemoryClient) Deliver(ctx context.Context, msg Message) {
	m.mu.RLock()
	handlers := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, msg)
	}
}

// Send implements Client.
func (m *MemoryClient) Send(_ context.Context, conversationID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Outbound{ConversationID: conversationID, Text: text})
	return nil
}

// SendStructured implements Client.
func (m *MemoryClient) SendStructured(_ context.Context, conversationID, text string, payload any, tag ContentTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStructured {
		return xerrors.New(xerrors.CodeTransportFailure, "structured content rejected")
	}
	m.sent = append(m.sent, Outbound{ConversationID: conversationID, Text: text, Payload: payload, Tag: tag})
	return nil
}

// SendDirect implements Client.
func (m *MemoryClient) SendDirect(_ context.Context, address, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Outbound{Address: address, Text: text})
	return nil
}

// Sent returns a copy of everything delivered so far.
func (m *MemoryClient) Sent() []Outbound {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Outbound, len(m.sent))
	copy(out, m.sent)
	return out
}
