package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// erc721ViewABI covers the two read-only entry points the agent uses.
const erc721ViewABI = `[
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"name":"tokenOfOwnerByIndex","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// contractCaller mirrors the subset of ethclient used for view calls so the
// client can run against a simulated backend in tests.
type contractCaller interface {
	CallContract(ctx context.Context, call gethcore.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// receiptReader mirrors the receipt lookup used for transaction verification.
type receiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error)
}

// Config describes how to construct an EVM client.
type Config struct {
	RPCURL string
	Notes  string
}

// Client implements Reader against an EVM compatible chain.
type Client struct {
	notes     string
	rpcClient *gethrpc.Client
	eth       *ethclient.Client
	caller    contractCaller
	receipts  receiptReader
	erc721    abi.ABI
}

// NewClient dials the configured RPC endpoint and returns a ready client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("chain rpc url is required")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	eth := ethclient.NewClient(rpcClient)

	parsed, err := abi.JSON(strings.NewReader(erc721ViewABI))
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("parse erc721 abi: %w", err)
	}

	return &Client{
		notes:     cfg.Notes,
		rpcClient: rpcClient,
		eth:       eth,
		caller:    eth,
		receipts:  eth,
		erc721:    parsed,
	}, nil
}

// NewClientWithBackend wraps an existing backend, used with simulated chains
// in tests.
func NewClientWithBackend(caller contractCaller, receipts receiptReader) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721ViewABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc721 abi: %w", err)
	}
	return &Client{caller: caller, receipts: receipts, erc721: parsed, notes: "test backend"}, nil
}

// Close releases network connections held by the client.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	if c.rpcClient != nil {
		c.rpcClient.Close()
		c.rpcClient = nil
	}
}

// BalanceOf implements Reader.
func (c *Client) BalanceOf(ctx context.Context, owner, collection string) (*big.Int, error) {
	out, err := c.view(ctx, collection, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", collection, err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf %s: unexpected return type", collection)
	}
	return balance, nil
}

// TokenOfOwnerByIndex implements Reader.
func (c *Client) TokenOfOwnerByIndex(ctx context.Context, owner, collection string, index int64) (*big.Int, error) {
	out, err := c.view(ctx, collection, "tokenOfOwnerByIndex", common.HexToAddress(owner), big.NewInt(index))
	if err != nil {
		return nil, fmt.Errorf("tokenOfOwnerByIndex %s[%d]: %w", collection, index, err)
	}
	tokenID, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("tokenOfOwnerByIndex %s[%d]: unexpected return type", collection, index)
	}
	return tokenID, nil
}

// TransactionSucceeded reports whether the transaction was mined with a
// success status. Any read failure reports false rather than an error.
func (c *Client) TransactionSucceeded(ctx context.Context, txHash string) bool {
	if c == nil || c.receipts == nil {
		return false
	}
	receipt, err := c.receipts.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil || receipt == nil {
		return false
	}
	return receipt.Status == coretypes.ReceiptStatusSuccessful
}

func (c *Client) view(ctx context.Context, collection, method string, args ...any) ([]any, error) {
	if c == nil || c.caller == nil {
		return nil, errors.New("chain client not initialised")
	}
	if !common.IsHexAddress(collection) {
		return nil, fmt.Errorf("invalid collection address %q", collection)
	}

	input, err := c.erc721.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	contract := common.HexToAddress(collection)
	raw, err := c.caller.CallContract(ctx, gethcore.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, err
	}

	out, err := c.erc721.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}
