package transport

import (
	"context"
	"time"

	xerrors "CarMania-Agent/internal/errors"
	"CarMania-Agent/pkg/logger"
)

// ContentTag selects the structured payload envelope used by SendStructured.
type ContentTag string

const (
	// ContentActions carries an action menu payload.
	ContentActions ContentTag = "actions"
	// ContentWalletSendCalls carries an unsigned transaction batch payload.
	ContentWalletSendCalls ContentTag = "walletSendCalls"
)

// Message is an inbound chat message. Immutable once received.
type Message struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	SenderAddress  string    `json:"sender_address"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// Handler consumes one inbound message.
type Handler func(ctx context.Context, msg Message)

// Client is the messaging transport collaborator. Implementations wrap a
// concrete decentralized messaging network client; the agent never talks to
// the network directly.
type Client interface {
	// RegisterHandler subscribes a handler under a stable id.
	RegisterHandler(id string, handler Handler)
	// UnregisterHandler removes a previously registered handler.
	UnregisterHandler(id string)
	// Send delivers plain text into a conversation.
	Send(ctx context.Context, conversationID, text string) error
	// SendStructured delivers text plus a typed payload envelope. Clients
	// that cannot render the payload still receive the text.
	SendStructured(ctx context.Context, conversationID, text string, payload any, tag ContentTag) error
	// SendDirect delivers plain text straight to a wallet address.
	SendDirect(ctx context.Context, address, text string) error
}

// SendStructuredWithFallback tries a structured send and, when it fails,
// degrades to a plain send of the same text. Only a failure of the fallback
// propagates to the caller.
func SendStructuredWithFallback(ctx context.Context, client Client, conversationID, text string, payload any, tag ContentTag) error {
	if client == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "transport client not configured")
	}
	structuredErr := client.SendStructured(ctx, conversationID, text, payload, tag)
	if structuredErr == nil {
		return nil
	}
	logger.L().Warn("structured send failed, falling back to plain text",
		"conversation_id", conversationID,
		"content_tag", string(tag),
		"error", structuredErr)
	if err := client.Send(ctx, conversationID, text); err != nil {
		return xerrors.Wrap(xerrors.CodeTransportFailure, err, "plain-text fallback send failed")
	}
	return nil
}
