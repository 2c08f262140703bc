package compose

import (
	"fmt"
	"strings"
	"time"

	"CarMania-Agent/internal/access"
	"CarMania-Agent/internal/intent"
)

// menuLifetime is how long an action menu stays selectable.
const menuLifetime = 24 * time.Hour

// ActionsContent is the structured action-menu wire shape.
type ActionsContent struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Actions     []Action `json:"actions"`
	ExpiresAt   string   `json:"expiresAt,omitempty"`
}

// Metadata accompanies every agent response.
type Metadata struct {
	NFTVerified    bool        `json:"nft_verified"`
	CollectionName string      `json:"collection_name,omitempty"`
	AccessTier     access.Tier `json:"access_tier"`
}

// Response is the composed reply for one inbound message.
type Response struct {
	Content  string
	Menu     *ActionsContent
	Metadata Metadata
}

// Composer turns an intent and an access result into a tiered response.
// Compose is pure given the injected templates and clock.
type Composer struct {
	templates *ActionTemplates
	now       func() time.Time
}

// Option configures a Composer.
type Option func(*Composer)

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		if now != nil {
			c.now = now
		}
	}
}

// NewComposer constructs a Composer over the given templates.
func NewComposer(templates *ActionTemplates, opts ...Option) *Composer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	c := &Composer{templates: templates, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Templates returns the injected action registry.
func (c *Composer) Templates() *ActionTemplates {
	return c.templates
}

// Compose builds the response for one classified, verified message. The
// fallback enumeration is always appended to the content so plain-text
// clients remain functional even when the structured menu is delivered.
func (c *Composer) Compose(in intent.Intent, result access.Result) Response {
	tier := access.TierBasic
	if result.HasAccess {
		tier = result.Tier
	}

	now := c.now()
	menu := &ActionsContent{
		ID:          fmt.Sprintf("%s_%d", in.Type, now.UnixMilli()),
		Description: describeMenu(in.Type, tier),
		Actions:     c.templates.ForTier(tier),
		ExpiresAt:   now.Add(menuLifetime).UTC().Format(time.RFC3339),
	}

	content := contentFor(in.Type, result, tier) + "\n\n" + fallbackText(menu)

	return Response{
		Content: content,
		Menu:    menu,
		Metadata: Metadata{
			NFTVerified:    result.HasAccess,
			CollectionName: result.CollectionName,
			AccessTier:     tier,
		},
	}
}

func describeMenu(category intent.Category, tier access.Tier) string {
	switch category {
	case intent.CategoryGalleryAccess:
		return fmt.Sprintf("Choose your %s gallery access option:", tier)
	case intent.CategoryMinting:
		return fmt.Sprintf("Select your %s minting option:", tier)
	case intent.CategoryCommunity:
		return fmt.Sprintf("Choose your %s community access:", tier)
	default:
		return "Select an action:"
	}
}

// fallbackText renders the menu as numbered plain text. Line numbers match
// the action order exactly.
func fallbackText(menu *ActionsContent) string {
	var b strings.Builder
	b.WriteString(menu.Description)
	b.WriteString("\n\n")
	for i, action := range menu.Actions {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, action.Label)
	}
	b.WriteString("\nReply with the number to select")
	return b.String()
}

func contentFor(category intent.Category, result access.Result, tier access.Tier) string {
	hasAccess := result.HasAccess
	switch category {
	case intent.CategoryGreeting:
		if hasAccess {
			return fmt.Sprintf("Hey there! Welcome to CarMania! I can see you have %s access. What would you like to do today?", tier)
		}
		return "Hey there! Welcome to CarMania! To unlock all features, you'll need to own one of our NFTs. What would you like to know?"
	case intent.CategoryNFTInquiry:
		if hasAccess {
			return fmt.Sprintf("Great! You have access to our %s collection with %s privileges. You own %d NFT(s). What would you like to do?",
				result.CollectionName, tier, len(result.TokenIDs))
		}
		return "You don't have any CarMania NFTs yet. Check out our collections to get started and unlock premium features!"
	case intent.CategoryGalleryAccess:
		if hasAccess {
			return fmt.Sprintf("Perfect! You have %s access to our galleries. Choose from the options below:", tier)
		}
		return "Our galleries are NFT-gated. Get a CarMania NFT to unlock access to exclusive car content and features!"
	case intent.CategoryMinting:
		switch {
		case hasAccess && tier != access.TierBasic:
			return fmt.Sprintf("Awesome! You have %s access and can mint new NFTs. Choose from the options below:", tier)
		case hasAccess:
			return "You have basic access. Upgrade to premium or VIP to unlock minting capabilities!"
		default:
			return "Minting is available to NFT holders. Get your first CarMania NFT to start minting!"
		}
	case intent.CategoryCommunity:
		if hasAccess {
			return fmt.Sprintf("Great! You have %s access to our community. Choose from the options below:", tier)
		}
		return "Join our community by getting a CarMania NFT! Different tiers unlock different community access levels."
	default: // help and anything unclassified
		if hasAccess {
			return fmt.Sprintf("I'm your CarMania assistant! You have %s access. I can help you with galleries, minting, community access, and more. What would you like to know?", tier)
		}
		return "I'm your CarMania assistant! I can help you learn about our NFTs, galleries, and community. To unlock all features, you'll need to own one of our NFTs. What would you like to know?"
	}
}
