package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CarMania-Agent/internal/access"
	xerrors "CarMania-Agent/internal/errors"
	"CarMania-Agent/internal/notify"
	"CarMania-Agent/internal/transport"
	"CarMania-Agent/pkg/logger"
)

// ActionCategory is the routing class of a selectable menu action. It is
// derived from the action id exactly once, when the request enters the
// dispatcher; handlers switch on the category, never re-inspect the id for
// routing.
type ActionCategory int

const (
	ActionUnknown ActionCategory = iota
	ActionMint
	ActionGallery
	ActionCommunity
	ActionConcierge
)

// String returns the category name for logs.
func (c ActionCategory) String() string {
	switch c {
	case ActionMint:
		return "mint"
	case ActionGallery:
		return "gallery"
	case ActionCommunity:
		return "community"
	case ActionConcierge:
		return "concierge"
	default:
		return "unknown"
	}
}

// ActionRef pairs a raw action id with its parsed category. The original id
// is retained because handlers still read tier qualifiers from it.
type ActionRef struct {
	ID       string
	Category ActionCategory
}

// ParseActionRef classifies an action id by substring. Ids that match no
// known family parse to ActionUnknown.
func ParseActionRef(id string) ActionRef {
	ref := ActionRef{ID: id, Category: ActionUnknown}
	switch {
	case strings.Contains(id, "mint_nft"):
		ref.Category = ActionMint
	case strings.Contains(id, "view_gallery"):
		ref.Category = ActionGallery
	case strings.Contains(id, "join_community"):
		ref.Category = ActionCommunity
	case strings.Contains(id, "custom_action"):
		ref.Category = ActionConcierge
	}
	return ref
}

// ExecuteAction runs the domain behavior behind a selected menu action and
// delivers the outcome to the sender. An id that matches no registered
// action is an error; a registered id whose category cannot be routed is
// logged and dropped without failing the caller.
func (d *Dispatcher) ExecuteAction(ctx context.Context, actionID, senderAddress string) error {
	action, ok := d.composer.Templates().FindByID(actionID)
	if !ok {
		return xerrors.New(xerrors.CodeActionNotFound,
			fmt.Sprintf("action not found: %s", actionID))
	}

	ref := ParseActionRef(actionID)
	logger.L().Info("executing action",
		"action_id", actionID, "category", ref.Category.String(), "sender", senderAddress)

	var err error
	switch ref.Category {
	case ActionMint:
		err = d.handleMint(ctx, ref, senderAddress)
	case ActionGallery:
		err = d.handleGallery(ctx, ref, senderAddress)
	case ActionCommunity:
		err = d.handleCommunity(ctx, ref, senderAddress)
	case ActionConcierge:
		err = d.handleConcierge(ctx, senderAddress)
	default:
		logger.L().Warn("action has no routable category",
			"action_id", actionID, "label", action.Label)
		return nil
	}
	if err != nil {
		return err
	}

	d.emit(ctx, notify.Event{
		Kind:       notify.KindActionExecuted,
		Address:    senderAddress,
		ActionID:   actionID,
		OccurredAt: time.Now(),
	})
	return nil
}

// handleMint re-verifies the sender's tier before constructing the mint
// transaction. Holding or having held a menu is not proof of access.
func (d *Dispatcher) handleMint(ctx context.Context, ref ActionRef, senderAddress string) error {
	result := d.verifier.VerifyAccess(ctx, senderAddress)
	if !result.HasAccess || !result.Tier.AtLeast(access.TierPremium) {
		return d.transport.SendDirect(ctx, senderAddress,
			"You need premium or VIP access to mint NFTs. Get a CarMania NFT first!")
	}

	tier := access.TierVIP
	if strings.Contains(ref.ID, "premium") {
		tier = access.TierPremium
	}
	if err := d.transport.SendDirect(ctx, senderAddress,
		fmt.Sprintf("Great! You have %s access and can mint NFTs. Review and sign the minting transaction below.", tier)); err != nil {
		return xerrors.Wrap(xerrors.CodeTransportFailure, err, "mint prelude send failed")
	}

	batch, err := d.builder.BuildMintTransaction(senderAddress, tier, nil)
	if err != nil {
		logger.L().Error("mint transaction build failed",
			"sender", senderAddress, "tier", string(tier), "error", err)
		if sendErr := d.transport.SendDirect(ctx, senderAddress, apologyText); sendErr != nil {
			logger.L().Error("apology send failed", "sender", senderAddress, "error", sendErr)
		}
		return nil
	}

	text := fmt.Sprintf("Minting a %s tier CarMania NFT. Approve the transaction in your wallet.", tier)
	return transport.SendStructuredWithFallback(ctx, d.transport,
		senderAddress, text, batch, transport.ContentWalletSendCalls)
}

func (d *Dispatcher) handleGallery(ctx context.Context, ref ActionRef, senderAddress string) error {
	path := "/gallery"
	switch {
	case strings.Contains(ref.ID, "premium"):
		path = "/premium-gallery"
	case strings.Contains(ref.ID, "vip"):
		path = "/vip-gallery"
	}
	text := fmt.Sprintf("Here's your gallery access: %s%s\n\nEnjoy exploring the CarMania collection!",
		d.cfg.GalleryBaseURL, path)
	return d.transport.SendDirect(ctx, senderAddress, text)
}

func (d *Dispatcher) handleCommunity(ctx context.Context, ref ActionRef, senderAddress string) error {
	invite := d.cfg.CommunityInviteURL
	switch {
	case strings.Contains(ref.ID, "premium"):
		invite += "-premium"
	case strings.Contains(ref.ID, "vip"):
		invite += "-vip"
	}
	text := fmt.Sprintf("Welcome to the CarCulture community! Join us here: %s", invite)
	return d.transport.SendDirect(ctx, senderAddress, text)
}

func (d *Dispatcher) handleConcierge(ctx context.Context, senderAddress string) error {
	return d.transport.SendDirect(ctx, senderAddress,
		"You have VIP access! I'll connect you with our VIP concierge service shortly.")
}
