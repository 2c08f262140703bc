package notify

import (
	"context"
	"time"
)

// Kind labels the event being reported on the side channel.
type Kind string

const (
	KindMessageProcessed  Kind = "message_processed"
	KindActionExecuted    Kind = "action_executed"
	KindVerificationError Kind = "verification_error"
)

// Event is a best-effort observation of agent activity. Delivery failures
// are logged by callers and never escalated or retried.
type Event struct {
	Kind       Kind              `json:"kind"`
	Address    string            `json:"address,omitempty"`
	IntentType string            `json:"intent_type,omitempty"`
	AccessTier string            `json:"access_tier,omitempty"`
	ActionID   string            `json:"action_id,omitempty"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Notifier is the optional side channel for agent activity. The core logic
// never depends on a concrete backend; the default is a no-op.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) error { return nil }

// Close implements Notifier.
func (Nop) Close() error { return nil }
