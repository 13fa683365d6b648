package scheduler

import (
	"context"
	"sync"

	"murmur/internal/store"
	"murmur/internal/types"
)

// mockSignals implements SignalSource.
type mockSignals struct {
	mu        sync.Mutex
	fetchFunc func(ctx context.Context, limit int) ([]types.Signal, error)
	calls     int
}

func (m *mockSignals) FetchRecentSignals(ctx context.Context, limit int) ([]types.Signal, error) {
	m.mu.Lock()
	m.calls++
	fn := m.fetchFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, limit)
}

func (m *mockSignals) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockTransmitter implements Transmitter.
type mockTransmitter struct {
	mu       sync.Mutex
	sendFunc func(ctx context.Context, kind types.OutboundKind, text, threadRoot string) (SendReceipt, error)
	sent     []string
}

func (m *mockTransmitter) Send(ctx context.Context, kind types.OutboundKind, text, threadRoot string) (SendReceipt, error) {
	m.mu.Lock()
	m.sent = append(m.sent, text)
	fn := m.sendFunc
	n := len(m.sent)
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, kind, text, threadRoot)
	}
	return SendReceipt{ID: "sent-" + kind.String() + "-" + itoa(n)}, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func (m *mockTransmitter) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// mockGenerator implements Generator.
type mockGenerator struct {
	mu      sync.Mutex
	genFunc func(ctx context.Context, prompt string) (string, error)
	calls   int
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	fn := m.genFunc
	n := m.calls
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, prompt)
	}
	return "generated text " + itoa(n), nil
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSession implements SessionProvider.
type mockSession struct {
	ensureFunc func(ctx context.Context) (bool, error)
}

func (m *mockSession) EnsureValidSession(ctx context.Context) (bool, error) {
	if m.ensureFunc == nil {
		return true, nil
	}
	return m.ensureFunc(ctx)
}

// mockEngagement implements EngagementSource.
type mockEngagement struct {
	fetchFunc func(ctx context.Context, postRef string) (store.OutcomeRow, error)
}

func (m *mockEngagement) FetchEngagement(ctx context.Context, postRef string) (store.OutcomeRow, error) {
	if m.fetchFunc == nil {
		return store.OutcomeRow{PostRef: postRef}, nil
	}
	return m.fetchFunc(ctx, postRef)
}
