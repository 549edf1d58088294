package scheduler

import (
	"context"
	"fmt"
	"sync"
)

// TokenSend records one SendToken call on the mock chain.
type TokenSend struct {
	ToAddress string
	Amount    int64
}

// NftSend records one TransferNft call on the mock chain.
type NftSend struct {
	ToAddress string
	NftID     string
}

// MockChain provides a scripted ChainClient for testing.
type MockChain struct {
	mu         sync.Mutex
	tokenSends []TokenSend
	nftSends   []NftSend
	txCounter  int

	TokenCode int64
	NftCode   int64
	TokenErr  error
	NftErr    error
}

// NewMockChain creates a chain mock whose transfers all succeed.
func NewMockChain() *MockChain {
	return &MockChain{}
}

func (m *MockChain) SendToken(ctx context.Context, toAddress string, amount int64) (TxResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TokenErr != nil {
		return TxResult{}, m.TokenErr
	}
	m.tokenSends = append(m.tokenSends, TokenSend{ToAddress: toAddress, Amount: amount})
	m.txCounter++
	return TxResult{Code: m.TokenCode, TransactionHash: fmt.Sprintf("TX%04d", m.txCounter)}, nil
}

func (m *MockChain) TransferNft(ctx context.Context, toAddress, nftID string) (TxResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NftErr != nil {
		return TxResult{}, m.NftErr
	}
	m.nftSends = append(m.nftSends, NftSend{ToAddress: toAddress, NftID: nftID})
	m.txCounter++
	return TxResult{Code: m.NftCode, TransactionHash: fmt.Sprintf("TX%04d", m.txCounter)}, nil
}

// TokenSends returns the recorded SendToken calls.
func (m *MockChain) TokenSends() []TokenSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TokenSend(nil), m.tokenSends...)
}

// NftSends returns the recorded TransferNft calls.
func (m *MockChain) NftSends() []NftSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NftSend(nil), m.nftSends...)
}

// MockNotifier collects notification messages.
type MockNotifier struct {
	mu       sync.Mutex
	messages []string

	Err error
}

func (m *MockNotifier) Notify(ctx context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, message)
	return nil
}

// Messages returns the collected notifications.
func (m *MockNotifier) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}
