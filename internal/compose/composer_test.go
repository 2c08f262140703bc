package compose

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"CarMania-Agent/internal/access"
	"CarMania-Agent/internal/intent"
)

var fixedTime = time.Unix(1_700_000_000, 0)

func fixedComposer() *Composer {
	return NewComposer(DefaultTemplates(), WithClock(func() time.Time { return fixedTime }))
}

func TestComposeGreetingWithAccess(t *testing.T) {
	c := fixedComposer()

	resp := c.Compose(
		intent.Intent{Type: intent.CategoryGreeting, Confidence: 0.7},
		access.Result{HasAccess: true, Tier: access.TierVIP, CollectionName: "CarMania Gold Pass"},
	)

	if !strings.Contains(resp.Content, "you have vip access") {
		t.Fatalf("expected tier mention in content, got %q", resp.Content)
	}
	if resp.Menu == nil {
		t.Fatalf("expected a menu on every response")
	}
	wantID := fmt.Sprintf("greeting_%d", fixedTime.UnixMilli())
	if resp.Menu.ID != wantID {
		t.Fatalf("expected menu id %q, got %q", wantID, resp.Menu.ID)
	}
	wantExpiry := fixedTime.Add(24 * time.Hour).UTC().Format(time.RFC3339)
	if resp.Menu.ExpiresAt != wantExpiry {
		t.Fatalf("expected expiry %q, got %q", wantExpiry, resp.Menu.ExpiresAt)
	}
	if !resp.Metadata.NFTVerified || resp.Metadata.AccessTier != access.TierVIP {
		t.Fatalf("unexpected metadata: %+v", resp.Metadata)
	}
}

func TestComposeWithoutAccessForcesBasic(t *testing.T) {
	c := fixedComposer()

	// A stale tier in a no-access result must not leak privileges.
	resp := c.Compose(
		intent.Intent{Type: intent.CategoryGalleryAccess},
		access.Result{HasAccess: false, Tier: access.TierVIP},
	)

	if resp.Metadata.AccessTier != access.TierBasic {
		t.Fatalf("expected basic tier without access, got %s", resp.Metadata.AccessTier)
	}
	if len(resp.Menu.Actions) != len(DefaultTemplates().ForTier(access.TierBasic)) {
		t.Fatalf("expected basic menu, got %d actions", len(resp.Menu.Actions))
	}
	if !strings.Contains(resp.Content, "NFT-gated") {
		t.Fatalf("expected gated-gallery copy, got %q", resp.Content)
	}
}

func TestComposeBasicActionsAreAlwaysIncluded(t *testing.T) {
	templates := DefaultTemplates()
	basic := templates.ForTier(access.TierBasic)

	for _, tier := range []access.Tier{access.TierPremium, access.TierVIP} {
		actions := templates.ForTier(tier)
		if len(actions) <= len(basic) {
			t.Fatalf("%s menu should extend the basic menu", tier)
		}
		for i, want := range basic {
			if actions[i].ID != want.ID {
				t.Fatalf("%s menu missing basic action %q at %d", tier, want.ID, i)
			}
		}
	}
}

func TestComposeFallbackNumbering(t *testing.T) {
	c := fixedComposer()

	resp := c.Compose(
		intent.Intent{Type: intent.CategoryCommunity},
		access.Result{HasAccess: true, Tier: access.TierPremium},
	)

	for i, action := range resp.Menu.Actions {
		line := fmt.Sprintf("[%d] %s", i+1, action.Label)
		if !strings.Contains(resp.Content, line) {
			t.Fatalf("fallback text missing line %q:\n%s", line, resp.Content)
		}
	}
	if !strings.Contains(resp.Content, "Reply with the number to select") {
		t.Fatalf("fallback text missing selection hint")
	}
}

func TestComposeMintingBranches(t *testing.T) {
	c := fixedComposer()

	cases := []struct {
		result access.Result
		want   string
	}{
		{access.Result{HasAccess: true, Tier: access.TierVIP}, "can mint new NFTs"},
		{access.Result{HasAccess: true, Tier: access.TierBasic}, "Upgrade to premium or VIP"},
		{access.Result{HasAccess: false}, "available to NFT holders"},
	}
	for _, tc := range cases {
		resp := c.Compose(intent.Intent{Type: intent.CategoryMinting}, tc.result)
		if !strings.Contains(resp.Content, tc.want) {
			t.Fatalf("expected %q in minting reply for %+v, got %q", tc.want, tc.result, resp.Content)
		}
	}
}

func TestComposeNFTInquiryCountsTokens(t *testing.T) {
	c := fixedComposer()

	resp := c.Compose(
		intent.Intent{Type: intent.CategoryNFTInquiry},
		access.Result{
			HasAccess:      true,
			Tier:           access.TierPremium,
			TokenIDs:       []string{"1", "2", "3"},
			CollectionName: "CarMania Silver",
		},
	)
	if !strings.Contains(resp.Content, "You own 3 NFT(s)") {
		t.Fatalf("expected holdings count, got %q", resp.Content)
	}
	if !strings.Contains(resp.Content, "CarMania Silver") {
		t.Fatalf("expected collection name, got %q", resp.Content)
	}
}

func TestFindByIDCoversEveryTier(t *testing.T) {
	templates := DefaultTemplates()

	for _, id := range []string{"view_gallery_basic", "mint_nft_premium", "custom_action_vip"} {
		if _, ok := templates.FindByID(id); !ok {
			t.Fatalf("expected to find action %q", id)
		}
	}
	if _, ok := templates.FindByID("no_such_action"); ok {
		t.Fatalf("expected lookup miss for unknown id")
	}
}
