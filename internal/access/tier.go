package access

import "strings"

// Tier is the access level a holder is granted. Tiers are totally ordered:
// basic < premium < vip.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

func (t Tier) rank() int {
	switch t {
	case TierVIP:
		return 2
	case TierPremium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether t grants at least the other tier.
func (t Tier) AtLeast(other Tier) bool {
	return t.rank() >= other.rank()
}

// MaxTier returns the higher of two tiers.
func MaxTier(a, b Tier) Tier {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// TierForCollection derives a tier from a collection display name.
func TierForCollection(name string) Tier {
	lowered := strings.ToLower(name)
	switch {
	case strings.Contains(lowered, "vip") || strings.Contains(lowered, "gold"):
		return TierVIP
	case strings.Contains(lowered, "premium") || strings.Contains(lowered, "silver"):
		return TierPremium
	default:
		return TierBasic
	}
}
