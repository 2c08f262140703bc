package history

import (
	"context"
	"sync"
	"time"

	xerrors "CarMania-Agent/internal/errors"
)

// Record summarises one processed interaction.
type Record struct {
	MessageID     string  `json:"message_id"`
	SenderAddress string  `json:"sender_address"`
	IntentType    string  `json:"intent_type"`
	Confidence    float64 `json:"confidence"`
	AccessTier    string  `json:"access_tier"`
	NFTVerified   bool    `json:"nft_verified"`
	ResponseChars int     `json:"response_chars"`
	CreatedAt     int64   `json:"created_at"`
}

// Store persists interaction records.
type Store interface {
	Save(ctx context.Context, record Record) error
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// MemoryStore keeps records in memory, mainly for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, record Record) error {
	if record.MessageID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "message id is required")
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// ListRecent implements Store, newest first.
func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
