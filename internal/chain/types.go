package chain

import (
	"context"
	"math/big"
)

// Reader exposes the two ERC-721 views the access layer needs. Failures are
// reported per call and must be handled at the call site, never escalated
// wholesale.
type Reader interface {
	// BalanceOf returns how many tokens of the collection the owner holds.
	BalanceOf(ctx context.Context, owner, collection string) (*big.Int, error)
	// TokenOfOwnerByIndex returns the owner's token id at the given index.
	TokenOfOwnerByIndex(ctx context.Context, owner, collection string, index int64) (*big.Int, error)
}

// CollectionMetadata is the display metadata for one NFT collection.
type CollectionMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry looks up display metadata for a collection contract.
type Registry interface {
	Lookup(ctx context.Context, collection string) (CollectionMetadata, error)
}

// UnknownCollection is the metadata substituted when a registry lookup fails.
func UnknownCollection() CollectionMetadata {
	return CollectionMetadata{Name: "Unknown Collection", Description: ""}
}
