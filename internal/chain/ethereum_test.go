package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	testOwner      = "0x1111111111111111111111111111111111111111"
	testCollection = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

// stubBackend answers view calls with pre-encoded return values keyed by
// method selector.
type stubBackend struct {
	abi      abi.ABI
	balance  int64
	tokenIDs []int64
	callErr  error

	receipt    *coretypes.Receipt
	receiptErr error
}

func newStubBackend(t *testing.T) *stubBackend {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(erc721ViewABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return &stubBackend{abi: parsed}
}

func (s *stubBackend) CallContract(_ context.Context, call gethcore.CallMsg, _ *big.Int) ([]byte, error) {
	if s.callErr != nil {
		return nil, s.callErr
	}
	balanceSel := s.abi.Methods["balanceOf"].ID
	tokenSel := s.abi.Methods["tokenOfOwnerByIndex"].ID

	switch {
	case len(call.Data) >= 4 && string(call.Data[:4]) == string(balanceSel):
		return s.abi.Methods["balanceOf"].Outputs.Pack(big.NewInt(s.balance))
	case len(call.Data) >= 4 && string(call.Data[:4]) == string(tokenSel):
		args, err := s.abi.Methods["tokenOfOwnerByIndex"].Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		index := args[1].(*big.Int).Int64()
		if index >= int64(len(s.tokenIDs)) {
			return nil, errors.New("index out of range")
		}
		return s.abi.Methods["tokenOfOwnerByIndex"].Outputs.Pack(big.NewInt(s.tokenIDs[index]))
	default:
		return nil, errors.New("unexpected call")
	}
}

func (s *stubBackend) TransactionReceipt(context.Context, common.Hash) (*coretypes.Receipt, error) {
	if s.receiptErr != nil {
		return nil, s.receiptErr
	}
	return s.receipt, nil
}

func TestClientBalanceOf(t *testing.T) {
	backend := newStubBackend(t)
	backend.balance = 3

	client, err := NewClientWithBackend(backend, backend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, err := client.BalanceOf(context.Background(), testOwner, testCollection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.Int64() != 3 {
		t.Fatalf("expected balance 3, got %s", balance)
	}
}

func TestClientTokenOfOwnerByIndex(t *testing.T) {
	backend := newStubBackend(t)
	backend.balance = 2
	backend.tokenIDs = []int64{11, 22}

	client, err := NewClientWithBackend(backend, backend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokenID, err := client.TokenOfOwnerByIndex(context.Background(), testOwner, testCollection, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokenID.Int64() != 22 {
		t.Fatalf("expected token 22, got %s", tokenID)
	}

	if _, err := client.TokenOfOwnerByIndex(context.Background(), testOwner, testCollection, 5); err == nil {
		t.Fatalf("expected error for out-of-range index")
	}
}

func TestClientRejectsInvalidCollection(t *testing.T) {
	client, err := NewClientWithBackend(newStubBackend(t), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.BalanceOf(context.Background(), testOwner, "not-a-contract"); err == nil {
		t.Fatalf("expected error for invalid collection address")
	}
}

func TestTransactionSucceeded(t *testing.T) {
	backend := newStubBackend(t)
	client, err := NewClientWithBackend(backend, backend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	backend.receipt = &coretypes.Receipt{Status: coretypes.ReceiptStatusSuccessful}
	if !client.TransactionSucceeded(context.Background(), "0xabc") {
		t.Fatalf("expected success for successful receipt")
	}

	backend.receipt = &coretypes.Receipt{Status: coretypes.ReceiptStatusFailed}
	if client.TransactionSucceeded(context.Background(), "0xabc") {
		t.Fatalf("expected failure for reverted receipt")
	}

	backend.receipt = nil
	backend.receiptErr = errors.New("not found")
	if client.TransactionSucceeded(context.Background(), "0xabc") {
		t.Fatalf("expected failure when receipt lookup errors")
	}
}
