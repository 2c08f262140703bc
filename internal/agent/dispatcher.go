package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"CarMania-Agent/internal/access"
	"CarMania-Agent/internal/compose"
	xerrors "CarMania-Agent/internal/errors"
	"CarMania-Agent/internal/intent"
	"CarMania-Agent/internal/notify"
	"CarMania-Agent/internal/transport"
	"CarMania-Agent/internal/txbuilder"
	"CarMania-Agent/pkg/logger"
)

// handlerID identifies the dispatcher's subscription on the transport.
const handlerID = "carmania-main"

// apologyText is what the user sees when any pipeline stage fails.
const apologyText = "Sorry, I encountered an error processing your message. Please try again or contact support if the issue persists."

// stage names the per-message pipeline states, used for logging.
type stage string

const (
	stageReceived   stage = "received"
	stageClassified stage = "classified"
	stageVerified   stage = "verified"
	stageComposed   stage = "composed"
	stageSent       stage = "sent"
	stageError      stage = "error"
)

// Config carries the dispatcher's presentation settings.
type Config struct {
	// SelfAddress is the agent's own wallet address; messages it authored
	// are discarded to avoid reply loops.
	SelfAddress string
	// GalleryBaseURL is the root of the gated gallery site.
	GalleryBaseURL string
	// CommunityInviteURL is the base community invite link.
	CommunityInviteURL string
}

// PipelineResult is the observed output of one processed message.
type PipelineResult struct {
	Message  transport.Message
	Intent   intent.Intent
	Access   access.Result
	Response compose.Response
}

// Observer receives pipeline output for every processed message. Observer
// failures are isolated from each other and from the reply path.
type Observer func(ctx context.Context, result PipelineResult) error

// TransactionBuilder is the slice of the transaction builder the dispatcher
// drives when executing mint actions.
type TransactionBuilder interface {
	BuildMintTransaction(sender string, tier access.Tier, details *txbuilder.CarDetails) (txbuilder.TransactionBatch, error)
}

// Dispatcher orchestrates the per-message decision pipeline and routes
// action-execution requests to domain handlers.
type Dispatcher struct {
	cfg        Config
	classifier *intent.Classifier
	verifier   *access.Verifier
	composer   *compose.Composer
	builder    TransactionBuilder
	transport  transport.Client
	notifier   notify.Notifier

	mu        sync.RWMutex
	observers map[string]Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNotifier attaches the optional activity side channel.
func WithNotifier(notifier notify.Notifier) Option {
	return func(d *Dispatcher) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// New constructs a Dispatcher.
func New(cfg Config, classifier *intent.Classifier, verifier *access.Verifier, composer *compose.Composer, builder TransactionBuilder, client transport.Client, opts ...Option) *Dispatcher {
	if cfg.GalleryBaseURL == "" {
		cfg.GalleryBaseURL = "https://carmania.carculture.com"
	}
	if cfg.CommunityInviteURL == "" {
		cfg.CommunityInviteURL = "https://discord.gg/carculture"
	}
	d := &Dispatcher{
		cfg:        cfg,
		classifier: classifier,
		verifier:   verifier,
		composer:   composer,
		builder:    builder,
		transport:  client,
		notifier:   notify.Nop{},
		observers:  make(map[string]Observer),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Start subscribes the dispatcher to the transport. Each inbound message is
// processed as an independent task; no ordering is guaranteed between them.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.transport == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "transport client not configured")
	}
	d.transport.RegisterHandler(handlerID, func(ctx context.Context, msg transport.Message) {
		go func() {
			if err := d.Process(ctx, msg); err != nil {
				logger.L().Error("message pipeline failed",
					"message_id", msg.ID, "sender", msg.SenderAddress, "error", err)
			}
		}()
	})
	logger.L().Info("dispatcher started", "self_address", d.cfg.SelfAddress)
	return nil
}

// Stop unsubscribes from the transport.
func (d *Dispatcher) Stop() {
	if d.transport != nil {
		d.transport.UnregisterHandler(handlerID)
	}
}

// RegisterObserver adds a pipeline observer under a stable id.
func (d *Dispatcher) RegisterObserver(id string, observer Observer) {
	if observer == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers[id] = observer
}

// UnregisterObserver removes a pipeline observer.
func (d *Dispatcher) UnregisterObserver(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.observers, id)
}

// Process runs the full pipeline for one inbound message: classify, verify,
// compose, send. At most one response is produced per message. Any stage
// failure sends a best-effort apology to the sender.
func (d *Dispatcher) Process(ctx context.Context, msg transport.Message) error {
	if d.cfg.SelfAddress != "" && strings.EqualFold(msg.SenderAddress, d.cfg.SelfAddress) {
		logger.L().Debug("discarding own message", "message_id", msg.ID)
		return nil
	}
	logger.L().Info("message received",
		"stage", string(stageReceived), "message_id", msg.ID, "sender", msg.SenderAddress)

	in := d.classifier.Classify(msg.Content)
	logger.L().Debug("intent classified",
		"stage", string(stageClassified), "message_id", msg.ID,
		"intent", string(in.Type), "confidence", in.Confidence)

	result := d.verifier.VerifyAccess(ctx, msg.SenderAddress)
	if result.Err != "" {
		d.emit(ctx, notify.Event{
			Kind:       notify.KindVerificationError,
			Address:    msg.SenderAddress,
			Error:      result.Err,
			OccurredAt: time.Now(),
		})
	}
	logger.L().Debug("access verified",
		"stage", string(stageVerified), "message_id", msg.ID,
		"has_access", result.HasAccess, "tier", string(result.Tier))

	response := d.composer.Compose(in, result)
	logger.L().Debug("response composed",
		"stage", string(stageComposed), "message_id", msg.ID,
		"content_chars", len(response.Content))

	d.notifyObservers(ctx, PipelineResult{Message: msg, Intent: in, Access: result, Response: response})

	if err := d.send(ctx, msg, response); err != nil {
		logger.L().Error("reply send failed",
			"stage", string(stageError), "message_id", msg.ID, "error", err)
		d.apologize(ctx, msg.ConversationID)
		return err
	}

	logger.Audit().Info("message processed",
		"stage", string(stageSent),
		"message_id", msg.ID,
		"sender", msg.SenderAddress,
		"intent", string(in.Type),
		"tier", string(response.Metadata.AccessTier),
		"nft_verified", response.Metadata.NFTVerified)
	d.emit(ctx, notify.Event{
		Kind:       notify.KindMessageProcessed,
		Address:    msg.SenderAddress,
		IntentType: string(in.Type),
		AccessTier: string(response.Metadata.AccessTier),
		OccurredAt: time.Now(),
	})
	return nil
}

func (d *Dispatcher) send(ctx context.Context, msg transport.Message, response compose.Response) error {
	if response.Menu != nil && len(response.Menu.Actions) > 0 {
		return transport.SendStructuredWithFallback(ctx, d.transport,
			msg.ConversationID, response.Content, response.Menu, transport.ContentActions)
	}
	return d.transport.Send(ctx, msg.ConversationID, response.Content)
}

// apologize delivers the generic error reply. A failure to send even that is
// logged, never re-thrown.
func (d *Dispatcher) apologize(ctx context.Context, conversationID string) {
	if err := d.transport.Send(ctx, conversationID, apologyText); err != nil {
		logger.L().Error("apology send failed", "conversation_id", conversationID, "error", err)
	}
}

func (d *Dispatcher) notifyObservers(ctx context.Context, result PipelineResult) {
	d.mu.RLock()
	observers := make(map[string]Observer, len(d.observers))
	for id, fn := range d.observers {
		observers[id] = fn
	}
	d.mu.RUnlock()

	for id, fn := range observers {
		if err := fn(ctx, result); err != nil {
			logger.L().Warn("pipeline observer failed", "observer", id, "error", err)
		}
	}
}

// emit posts a best-effort event to the side channel; failures are logged
// only, never escalated and never retried.
func (d *Dispatcher) emit(ctx context.Context, event notify.Event) {
	if err := d.notifier.Notify(ctx, event); err != nil {
		logger.L().Warn("notification failed", "kind", string(event.Kind), "error", err)
	}
}
