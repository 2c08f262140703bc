package access

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"CarMania-Agent/internal/chain"
)

const (
	holderAddress = "0x1111111111111111111111111111111111111111"
	goldContract  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	basicContract = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type stubReader struct {
	balances map[string]int64
	tokens   map[string][]int64
	errs     map[string]error
	calls    int
}

func (s *stubReader) BalanceOf(_ context.Context, _ string, collection string) (*big.Int, error) {
	s.calls++
	if err := s.errs[collection]; err != nil {
		return nil, err
	}
	return big.NewInt(s.balances[collection]), nil
}

func (s *stubReader) TokenOfOwnerByIndex(_ context.Context, _ string, collection string, index int64) (*big.Int, error) {
	ids := s.tokens[collection]
	if index >= int64(len(ids)) {
		return nil, errors.New("index out of range")
	}
	return big.NewInt(ids[index]), nil
}

type hugeBalanceReader struct {
	balance    *big.Int
	indexCalls int64
}

func (r *hugeBalanceReader) BalanceOf(context.Context, string, string) (*big.Int, error) {
	return r.balance, nil
}

func (r *hugeBalanceReader) TokenOfOwnerByIndex(_ context.Context, _, _ string, index int64) (*big.Int, error) {
	r.indexCalls++
	return big.NewInt(index), nil
}

type stubRegistry struct {
	names map[string]string
	errs  map[string]error
}

func (s *stubRegistry) Lookup(_ context.Context, collection string) (chain.CollectionMetadata, error) {
	if err := s.errs[collection]; err != nil {
		return chain.CollectionMetadata{}, err
	}
	return chain.CollectionMetadata{Name: s.names[collection]}, nil
}

func TestVerifyAccessHolder(t *testing.T) {
	reader := &stubReader{
		balances: map[string]int64{goldContract: 2},
		tokens:   map[string][]int64{goldContract: {7, 9}},
	}
	registry := &stubRegistry{names: map[string]string{goldContract: "CarMania Gold Pass"}}
	v := NewVerifier(reader, registry, []string{goldContract})

	result := v.VerifyAccess(context.Background(), holderAddress)
	if !result.HasAccess {
		t.Fatalf("expected access, got %+v", result)
	}
	if result.Tier != TierVIP {
		t.Fatalf("expected vip tier for gold collection, got %s", result.Tier)
	}
	if len(result.TokenIDs) != 2 || result.TokenIDs[0] != "7" || result.TokenIDs[1] != "9" {
		t.Fatalf("unexpected token ids: %v", result.TokenIDs)
	}
	if result.CollectionName != "CarMania Gold Pass" {
		t.Fatalf("unexpected collection name: %q", result.CollectionName)
	}
}

func TestVerifyAccessNonHolder(t *testing.T) {
	reader := &stubReader{balances: map[string]int64{goldContract: 0}}
	v := NewVerifier(reader, &stubRegistry{}, []string{goldContract})

	result := v.VerifyAccess(context.Background(), holderAddress)
	if result.HasAccess {
		t.Fatalf("expected no access, got %+v", result)
	}
	if result.Tier != TierBasic {
		t.Fatalf("expected basic tier, got %s", result.Tier)
	}
	if result.Err != "" {
		t.Fatalf("no-access is not an error, got %q", result.Err)
	}
}

func TestVerifyAccessAggregatesHighestTier(t *testing.T) {
	reader := &stubReader{
		balances: map[string]int64{goldContract: 1, basicContract: 1},
		tokens:   map[string][]int64{goldContract: {1}, basicContract: {2}},
	}
	registry := &stubRegistry{names: map[string]string{
		goldContract:  "CarMania Gold Pass",
		basicContract: "CarMania Starter",
	}}
	v := NewVerifier(reader, registry, []string{basicContract, goldContract})

	result := v.VerifyAccess(context.Background(), holderAddress)
	if result.Tier != TierVIP {
		t.Fatalf("expected vip from highest tier, got %s", result.Tier)
	}
	if len(result.TokenIDs) != 2 {
		t.Fatalf("expected tokens from both collections, got %v", result.TokenIDs)
	}
	if result.CollectionName != "CarMania Starter, CarMania Gold Pass" {
		t.Fatalf("unexpected joined names: %q", result.CollectionName)
	}

	// The aggregated tier must not depend on collection order.
	reversed := NewVerifier(reader, registry, []string{goldContract, basicContract})
	if got := reversed.VerifyAccess(context.Background(), holderAddress); got.Tier != TierVIP {
		t.Fatalf("expected vip regardless of order, got %s", got.Tier)
	}
}

func TestVerifyAccessOneCollectionFailing(t *testing.T) {
	reader := &stubReader{
		balances: map[string]int64{goldContract: 1},
		tokens:   map[string][]int64{goldContract: {3}},
		errs:     map[string]error{basicContract: errors.New("rpc down")},
	}
	registry := &stubRegistry{names: map[string]string{goldContract: "CarMania Gold Pass"}}
	v := NewVerifier(reader, registry, []string{basicContract, goldContract})

	result := v.VerifyAccess(context.Background(), holderAddress)
	if !result.HasAccess || result.Tier != TierVIP {
		t.Fatalf("failing collection must not abort the check, got %+v", result)
	}
}

func TestVerifyAccessRegistryFailureFallsBack(t *testing.T) {
	reader := &stubReader{
		balances: map[string]int64{goldContract: 1},
		tokens:   map[string][]int64{goldContract: {1}},
	}
	registry := &stubRegistry{errs: map[string]error{goldContract: errors.New("registry down")}}
	v := NewVerifier(reader, registry, []string{goldContract})

	result := v.VerifyAccess(context.Background(), holderAddress)
	if !result.HasAccess {
		t.Fatalf("expected access despite registry failure, got %+v", result)
	}
	if result.CollectionName != "Unknown Collection" {
		t.Fatalf("expected metadata fallback, got %q", result.CollectionName)
	}
	if result.Tier != TierBasic {
		t.Fatalf("unknown collection name maps to basic, got %s", result.Tier)
	}
}

func TestVerifyAccessClampsTokenEnumeration(t *testing.T) {
	// A balance wider than int64 must not drive the enumeration loop.
	reader := &hugeBalanceReader{balance: new(big.Int).Lsh(big.NewInt(1), 80)}
	registry := &stubRegistry{names: map[string]string{goldContract: "CarMania Gold Pass"}}
	v := NewVerifier(reader, registry, []string{goldContract})

	result := v.VerifyAccess(context.Background(), holderAddress)
	if !result.HasAccess || result.Tier != TierVIP {
		t.Fatalf("oversized balance must still grant access, got %+v", result)
	}
	if len(result.TokenIDs) != maxTokenEnumeration {
		t.Fatalf("expected %d enumerated ids, got %d", maxTokenEnumeration, len(result.TokenIDs))
	}
	if reader.indexCalls != maxTokenEnumeration {
		t.Fatalf("expected %d index reads, got %d", maxTokenEnumeration, reader.indexCalls)
	}
}

func TestVerifyAccessMalformedAddress(t *testing.T) {
	reader := &stubReader{balances: map[string]int64{goldContract: 1}}
	v := NewVerifier(reader, &stubRegistry{}, []string{goldContract})

	result := v.VerifyAccess(context.Background(), "not-an-address")
	if result.HasAccess {
		t.Fatalf("expected no access for malformed address")
	}
	if result.Err == "" {
		t.Fatalf("expected error to be reported in the result")
	}
	// Failed verifications are never cached.
	if stats := v.CacheStats(context.Background()); stats.Size != 0 {
		t.Fatalf("expected empty cache after failure, got %+v", stats)
	}
}

func TestVerifyAccessUsesCache(t *testing.T) {
	reader := &stubReader{
		balances: map[string]int64{goldContract: 1},
		tokens:   map[string][]int64{goldContract: {1}},
	}
	registry := &stubRegistry{names: map[string]string{goldContract: "CarMania Gold Pass"}}
	v := NewVerifier(reader, registry, []string{goldContract})

	v.VerifyAccess(context.Background(), holderAddress)
	callsAfterFirst := reader.calls
	v.VerifyAccess(context.Background(), holderAddress)
	if reader.calls != callsAfterFirst {
		t.Fatalf("expected second verification served from cache, calls %d -> %d",
			callsAfterFirst, reader.calls)
	}

	v.ClearCache(context.Background())
	v.VerifyAccess(context.Background(), holderAddress)
	if reader.calls == callsAfterFirst {
		t.Fatalf("expected chain reads after cache clear")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache()
	current := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return current }

	cache.Set(context.Background(), holderAddress, Result{HasAccess: true, Tier: TierVIP}, CacheTTL)
	if _, ok := cache.Get(context.Background(), holderAddress); !ok {
		t.Fatalf("expected live entry")
	}

	current = current.Add(CacheTTL + time.Second)
	if _, ok := cache.Get(context.Background(), holderAddress); ok {
		t.Fatalf("expected entry to expire after ttl")
	}
	if stats := cache.Stats(context.Background()); stats.Size != 0 {
		t.Fatalf("expected expired entry purged, got %+v", stats)
	}
}

func TestTierForCollection(t *testing.T) {
	cases := []struct {
		name string
		want Tier
	}{
		{"CarMania Gold Pass", TierVIP},
		{"VIP Motors Club", TierVIP},
		{"Silver Collection", TierPremium},
		{"Premium Garage", TierPremium},
		{"CarMania Starter", TierBasic},
		{"", TierBasic},
	}
	for _, tc := range cases {
		if got := TierForCollection(tc.name); got != tc.want {
			t.Fatalf("TierForCollection(%q) = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestMaxTier(t *testing.T) {
	if got := MaxTier(TierBasic, TierPremium); got != TierPremium {
		t.Fatalf("expected premium, got %s", got)
	}
	if got := MaxTier(TierVIP, TierPremium); got != TierVIP {
		t.Fatalf("expected vip, got %s", got)
	}
	if !TierVIP.AtLeast(TierPremium) || TierBasic.AtLeast(TierPremium) {
		t.Fatalf("tier ordering broken")
	}
}
