package compose

import "CarMania-Agent/internal/access"

// Action is one selectable entry in an action menu.
type Action struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ImageURL string `json:"imageUrl,omitempty"`
	Style    string `json:"style,omitempty"`
}

// ActionTemplates holds the immutable per-tier action sets. Built once and
// injected; never mutated afterwards.
type ActionTemplates struct {
	byTier map[access.Tier][]Action
}

// NewActionTemplates builds an action registry from explicit per-tier sets.
// The input is copied so later mutation of the caller's slices has no effect.
func NewActionTemplates(byTier map[access.Tier][]Action) *ActionTemplates {
	copied := make(map[access.Tier][]Action, len(byTier))
	for tier, actions := range byTier {
		copied[tier] = append([]Action(nil), actions...)
	}
	return &ActionTemplates{byTier: copied}
}

// DefaultTemplates returns the built-in action sets.
func DefaultTemplates() *ActionTemplates {
	return NewActionTemplates(map[access.Tier][]Action{
		access.TierBasic: {
			{
				ID:       "view_gallery_basic",
				Label:    "View Gallery",
				ImageURL: "https://carmania.carculture.com/gallery-icon.png",
				Style:    "primary",
			},
			{
				ID:       "join_community_basic",
				Label:    "Join Community",
				ImageURL: "https://carmania.carculture.com/community-icon.png",
				Style:    "secondary",
			},
		},
		access.TierPremium: {
			{
				ID:       "mint_nft_premium",
				Label:    "Mint Premium NFT",
				ImageURL: "https://carmania.carculture.com/mint-icon.png",
				Style:    "primary",
			},
			{
				ID:       "view_gallery_premium",
				Label:    "Premium Gallery Access",
				ImageURL: "https://carmania.carculture.com/premium-icon.png",
				Style:    "primary",
			},
			{
				ID:       "join_community_premium",
				Label:    "Premium Community",
				ImageURL: "https://carmania.carculture.com/premium-community-icon.png",
				Style:    "secondary",
			},
		},
		access.TierVIP: {
			{
				ID:       "mint_nft_vip",
				Label:    "Mint VIP NFT",
				ImageURL: "https://carmania.carculture.com/vip-mint-icon.png",
				Style:    "primary",
			},
			{
				ID:       "view_gallery_vip",
				Label:    "VIP Gallery Access",
				ImageURL: "https://carmania.carculture.com/vip-gallery-icon.png",
				Style:    "primary",
			},
			{
				ID:       "join_community_vip",
				Label:    "VIP Community",
				ImageURL: "https://carmania.carculture.com/vip-community-icon.png",
				Style:    "primary",
			},
			{
				ID:       "custom_action_vip",
				Label:    "Custom Action",
				ImageURL: "https://carmania.carculture.com/custom-icon.png",
				Style:    "secondary",
			},
		},
	})
}

// ForTier resolves the action list for a tier. Basic actions are always
// included; premium and vip extend them.
func (t *ActionTemplates) ForTier(tier access.Tier) []Action {
	basic := t.byTier[access.TierBasic]
	if tier == access.TierBasic {
		return append([]Action(nil), basic...)
	}
	extra := t.byTier[tier]
	out := make([]Action, 0, len(basic)+len(extra))
	out = append(out, basic...)
	out = append(out, extra...)
	return out
}

// FindByID looks an action up across every tier. This is the global action
// registry used when executing a selected action.
func (t *ActionTemplates) FindByID(id string) (Action, bool) {
	for _, tier := range []access.Tier{access.TierBasic, access.TierPremium, access.TierVIP} {
		for _, action := range t.byTier[tier] {
			if action.ID == id {
				return action, true
			}
		}
	}
	return Action{}, false
}
