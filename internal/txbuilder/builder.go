package txbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
	"github.com/google/uuid"

	"CarMania-Agent/internal/access"
	xerrors "CarMania-Agent/internal/errors"
)

// batchLifetime is how long an unsigned batch stays signable.
const batchLifetime = 24 * time.Hour

// WalletCall is one unsigned transaction payload presented for signing.
type WalletCall struct {
	ID          string `json:"id"`
	To          string `json:"to"`
	Data        string `json:"data"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

// TransactionBatch is the walletSendCalls wire shape.
type TransactionBatch struct {
	ID        string       `json:"id"`
	Calls     []WalletCall `json:"calls"`
	ExpiresAt string       `json:"expiresAt,omitempty"`
}

// CarDetails identifies the vehicle behind a story or mint.
type CarDetails struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  uint64 `json:"year"`
	VIN   string `json:"vin,omitempty"`
}

// ProvenanceRecords is the documented history of a car.
type ProvenanceRecords struct {
	OwnershipHistory   []string `json:"ownership_history"`
	MaintenanceRecords []string `json:"maintenance_records"`
	Modifications      []string `json:"modifications"`
}

// CarStory is a provenance submission tied to an NFT.
type CarStory struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Details     CarDetails        `json:"car_details"`
	Provenance  ProvenanceRecords `json:"provenance"`
}

// CommunityAction is the kind of community transaction to encode.
type CommunityAction string

const (
	CommunityVote    CommunityAction = "vote"
	CommunityPropose CommunityAction = "propose"
	CommunityStake   CommunityAction = "stake"
)

// Contracts lists the fixed target addresses per action category.
type Contracts struct {
	Provenance string
	Minting    string
	Community  string
}

// ReceiptVerifier reports whether a transaction was mined successfully.
type ReceiptVerifier interface {
	TransactionSucceeded(ctx context.Context, txHash string) bool
}

// Builder encodes typed application actions into unsigned wallet calls.
type Builder struct {
	contracts Contracts
	receipts  ReceiptVerifier
	prices    map[access.Tier]*big.Int
	now       func() time.Time

	provenanceArgs abi.Arguments
	mintArgs       abi.Arguments
	communityArgs  abi.Arguments
	payloadArgs    abi.Arguments
}

// Option configures a Builder.
type Option func(*Builder)

// WithReceiptVerifier attaches a chain client for VerifyTransaction.
func WithReceiptVerifier(receipts ReceiptVerifier) Option {
	return func(b *Builder) {
		b.receipts = receipts
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder constructs a Builder with its ABI encoders prepared once.
func NewBuilder(contracts Contracts, opts ...Option) (*Builder, error) {
	for name, addr := range map[string]string{
		"provenance": contracts.Provenance,
		"minting":    contracts.Minting,
		"community":  contracts.Community,
	} {
		if !common.IsHexAddress(addr) {
			return nil, xerrors.New(xerrors.CodeInvalidArgument,
				fmt.Sprintf("invalid %s contract address %q", name, addr))
		}
	}

	b := &Builder{
		contracts: contracts,
		now:       time.Now,
		prices: map[access.Tier]*big.Int{
			access.TierPremium: big.NewInt(params.Ether / 100),     // 0.01 ETH
			access.TierVIP:     big.NewInt(5 * params.Ether / 100), // 0.05 ETH
		},
	}
	if err := b.buildEncoders(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

func (b *Builder) buildEncoders() error {
	stringT, err := abi.NewType("string", "", nil)
	if err != nil {
		return err
	}
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return err
	}
	uint8T, err := abi.NewType("uint8", "", nil)
	if err != nil {
		return err
	}
	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return err
	}
	detailsT, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "make", Type: "string"},
		{Name: "model", Type: "string"},
		{Name: "year", Type: "uint256"},
		{Name: "vin", Type: "string"},
	})
	if err != nil {
		return err
	}
	recordsT, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "ownershipHistory", Type: "string[]"},
		{Name: "maintenanceRecords", Type: "string[]"},
		{Name: "modifications", Type: "string[]"},
	})
	if err != nil {
		return err
	}

	b.provenanceArgs = abi.Arguments{
		{Type: stringT},  // title
		{Type: stringT},  // description
		{Type: detailsT}, // car details
		{Type: recordsT}, // provenance records
		{Type: stringT},  // nft token id
		{Type: uint256T}, // timestamp
	}
	b.mintArgs = abi.Arguments{
		{Type: uint8T},   // tier code
		{Type: detailsT}, // car details
	}
	b.communityArgs = abi.Arguments{
		{Type: uint8T}, // action code
		{Type: bytesT}, // opaque payload
	}
	b.payloadArgs = abi.Arguments{{Type: stringT}}
	return nil
}

type abiCarDetails struct {
	Make  string
	Model string
	Year  *big.Int
	Vin   string
}

type abiProvenanceRecords struct {
	OwnershipHistory   []string
	MaintenanceRecords []string
	Modifications      []string
}

func toABIDetails(d CarDetails) abiCarDetails {
	return abiCarDetails{
		Make:  d.Make,
		Model: d.Model,
		Year:  new(big.Int).SetUint64(d.Year),
		Vin:   d.VIN,
	}
}

// BuildProvenanceTransaction encodes a car-story submission for the
// provenance contract. Provenance writes carry no native value.
func (b *Builder) BuildProvenanceTransaction(sender string, story CarStory, tokenID, collectionAddress string) (TransactionBatch, error) {
	now := b.now()
	data, err := b.provenanceArgs.Pack(
		story.Title,
		story.Description,
		toABIDetails(story.Details),
		abiProvenanceRecords{
			OwnershipHistory:   emptyIfNil(story.Provenance.OwnershipHistory),
			MaintenanceRecords: emptyIfNil(story.Provenance.MaintenanceRecords),
			Modifications:      emptyIfNil(story.Provenance.Modifications),
		},
		tokenID,
		big.NewInt(now.UnixMilli()),
	)
	if err != nil {
		return TransactionBatch{}, xerrors.Wrap(xerrors.CodeEncodingFailure, err, "encode car story")
	}

	call := WalletCall{
		ID:          fmt.Sprintf("car_story_%s", uuid.NewString()),
		To:          b.contracts.Provenance,
		Data:        hexutil.Encode(data),
		Value:       "0",
		Description: fmt.Sprintf("Store car story for NFT #%s", tokenID),
	}
	return b.wrap("provenance", call, now), nil
}

// BuildMintTransaction encodes a tiered mint. Only premium and vip tiers can
// mint; the native value is the tier's mint price.
func (b *Builder) BuildMintTransaction(sender string, tier access.Tier, details *CarDetails) (TransactionBatch, error) {
	price, ok := b.prices[tier]
	if !ok {
		return TransactionBatch{}, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("tier %q cannot mint", tier))
	}

	tierCode := uint8(1)
	if tier == access.TierVIP {
		tierCode = 2
	}
	abiDetails := abiCarDetails{Year: big.NewInt(0)}
	if details != nil {
		abiDetails = toABIDetails(*details)
	}

	now := b.now()
	data, err := b.mintArgs.Pack(tierCode, abiDetails)
	if err != nil {
		return TransactionBatch{}, xerrors.Wrap(xerrors.CodeEncodingFailure, err, "encode mint")
	}

	call := WalletCall{
		ID:          fmt.Sprintf("mint_%s_%s", tier, uuid.NewString()),
		To:          b.contracts.Minting,
		Data:        hexutil.Encode(data),
		Value:       price.String(),
		Description: fmt.Sprintf("Mint %s tier CarMania NFT", tier),
	}
	return b.wrap("mint", call, now), nil
}

// BuildCommunityTransaction encodes a vote, proposal or stake. Community
// actions carry no native value.
func (b *Builder) BuildCommunityTransaction(sender string, action CommunityAction, payload map[string]any) (TransactionBatch, error) {
	var code uint8
	switch action {
	case CommunityVote:
		code = 1
	case CommunityPropose:
		code = 2
	case CommunityStake:
		code = 3
	default:
		return TransactionBatch{}, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("unknown community action %q", action))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return TransactionBatch{}, xerrors.Wrap(xerrors.CodeEncodingFailure, err, "marshal community payload")
	}
	inner, err := b.payloadArgs.Pack(string(raw))
	if err != nil {
		return TransactionBatch{}, xerrors.Wrap(xerrors.CodeEncodingFailure, err, "encode community payload")
	}
	data, err := b.communityArgs.Pack(code, inner)
	if err != nil {
		return TransactionBatch{}, xerrors.Wrap(xerrors.CodeEncodingFailure, err, "encode community action")
	}

	now := b.now()
	call := WalletCall{
		ID:          fmt.Sprintf("community_%s_%s", action, uuid.NewString()),
		To:          b.contracts.Community,
		Data:        hexutil.Encode(data),
		Value:       "0",
		Description: fmt.Sprintf("%s in CarMania community", capitalize(string(action))),
	}
	return b.wrap("community", call, now), nil
}

// VerifyTransaction polls the receipt status of a sent transaction. Any read
// failure reports false rather than an error.
func (b *Builder) VerifyTransaction(ctx context.Context, txHash string) bool {
	if b.receipts == nil {
		return false
	}
	return b.receipts.TransactionSucceeded(ctx, txHash)
}

func (b *Builder) wrap(kind string, call WalletCall, now time.Time) TransactionBatch {
	return TransactionBatch{
		ID:        fmt.Sprintf("%s_%s", kind, uuid.NewString()),
		Calls:     []WalletCall{call},
		ExpiresAt: now.Add(batchLifetime).UTC().Format(time.RFC3339),
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
