package access

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"CarMania-Agent/internal/chain"
	"CarMania-Agent/pkg/logger"
)

// Result is the outcome of one access verification. A "no access" outcome is
// a valid result, not an error; Err is populated only when verification
// itself failed.
type Result struct {
	HasAccess      bool     `json:"has_access"`
	Tier           Tier     `json:"access_tier"`
	TokenIDs       []string `json:"token_ids,omitempty"`
	CollectionName string   `json:"collection_name,omitempty"`
	Err            string   `json:"error,omitempty"`
}

// maxTokenEnumeration caps how many token ids are read per collection. A
// balance is chain-supplied data and may be arbitrarily large; tier and
// access decisions only need the ids actually enumerated.
const maxTokenEnumeration = 50

// Verifier checks NFT holdings across the configured collections and derives
// an access tier, caching results per sender address.
type Verifier struct {
	reader      chain.Reader
	registry    chain.Registry
	collections []string
	cache       Cache
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithCache replaces the default in-process cache.
func WithCache(cache Cache) Option {
	return func(v *Verifier) {
		if cache != nil {
			v.cache = cache
		}
	}
}

// NewVerifier constructs a Verifier over the given collections. Collection
// order is preserved and checked sequentially.
func NewVerifier(reader chain.Reader, registry chain.Registry, collections []string, opts ...Option) *Verifier {
	v := &Verifier{
		reader:      reader,
		registry:    registry,
		collections: append([]string(nil), collections...),
		cache:       NewMemoryCache(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// VerifyAccess returns the access result for an address, served from cache
// when a live entry exists. Verification failures are reported in the result
// rather than returned as errors; failed lookups are not cached, so the next
// message retries them.
func (v *Verifier) VerifyAccess(ctx context.Context, address string) Result {
	if cached, ok := v.cache.Get(ctx, address); ok {
		return cached
	}

	result, err := v.check(ctx, address)
	if err != nil {
		logger.L().Error("access verification failed", "address", address, "error", err)
		return Result{HasAccess: false, Tier: TierBasic, Err: err.Error()}
	}

	v.cache.Set(ctx, address, result, CacheTTL)
	return result
}

// ClearCache drops every cached verification result.
func (v *Verifier) ClearCache(ctx context.Context) {
	v.cache.Clear(ctx)
}

// CacheStats reports the live cache content.
func (v *Verifier) CacheStats(ctx context.Context) CacheStats {
	return v.cache.Stats(ctx)
}

func (v *Verifier) check(ctx context.Context, address string) (Result, error) {
	if v.reader == nil {
		return Result{}, fmt.Errorf("chain reader not configured")
	}
	if !common.IsHexAddress(address) {
		return Result{}, fmt.Errorf("malformed address %q", address)
	}

	granted := make([]Result, 0, len(v.collections))
	for _, collection := range v.collections {
		collectionResult, err := v.checkCollection(ctx, address, collection)
		if err != nil {
			// One collection failing must not abort the whole check.
			logger.L().Warn("collection check failed, excluding from aggregation",
				"address", address, "collection", collection, "error", err)
			continue
		}
		if collectionResult.HasAccess {
			granted = append(granted, collectionResult)
		}
	}

	if len(granted) == 0 {
		return Result{HasAccess: false, Tier: TierBasic}, nil
	}

	aggregate := Result{HasAccess: true, Tier: TierBasic}
	names := make([]string, 0, len(granted))
	for _, r := range granted {
		aggregate.Tier = MaxTier(aggregate.Tier, r.Tier)
		aggregate.TokenIDs = append(aggregate.TokenIDs, r.TokenIDs...)
		if r.CollectionName != "" {
			names = append(names, r.CollectionName)
		}
	}
	aggregate.CollectionName = strings.Join(names, ", ")
	return aggregate, nil
}

func (v *Verifier) checkCollection(ctx context.Context, address, collection string) (Result, error) {
	balance, err := v.reader.BalanceOf(ctx, address, collection)
	if err != nil {
		return Result{}, err
	}
	if balance == nil || balance.Sign() <= 0 {
		return Result{HasAccess: false, Tier: TierBasic}, nil
	}

	count := int64(maxTokenEnumeration)
	if balance.IsInt64() && balance.Int64() < count {
		count = balance.Int64()
	}
	tokenIDs := make([]string, 0, count)
	for i := int64(0); i < count; i++ {
		tokenID, err := v.reader.TokenOfOwnerByIndex(ctx, address, collection, i)
		if err != nil {
			// Tolerate individual index failures; the holder still counts.
			logger.L().Warn("token index lookup failed",
				"address", address, "collection", collection, "index", i, "error", err)
			continue
		}
		tokenIDs = append(tokenIDs, tokenID.String())
	}

	meta := chain.UnknownCollection()
	if v.registry != nil {
		if looked, err := v.registry.Lookup(ctx, collection); err == nil {
			meta = looked
		} else {
			logger.L().Warn("collection metadata lookup failed",
				"collection", collection, "error", err)
		}
	}

	return Result{
		HasAccess:      true,
		Tier:           TierForCollection(meta.Name),
		TokenIDs:       tokenIDs,
		CollectionName: meta.Name,
	}, nil
}
