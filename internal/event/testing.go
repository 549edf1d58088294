package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockRelay provides a scripted RelayClient for testing. Sign URIs are
// generated from a counter so request keys are deterministic.
type MockRelay struct {
	mu      sync.Mutex
	counter int

	ArbitraryValid bool
	DirectValid    bool
	Pubkey         string

	ConnectErr error
	QRCodeErr  error
	ImageErr   error
}

// NewMockRelay creates a relay mock that accepts every signature.
func NewMockRelay() *MockRelay {
	return &MockRelay{ArbitraryValid: true, DirectValid: true, Pubkey: "mock-pubkey"}
}

func (m *MockRelay) nextKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("request-%d", m.counter)
}

func (m *MockRelay) Connect(ctx context.Context, projectSecret string) (Session, error) {
	if m.ConnectErr != nil {
		return Session{}, m.ConnectErr
	}
	return Session{ID: "mock-session"}, nil
}

func (m *MockRelay) SignDoc(ctx context.Context, signer, pubkey string, msgs []TransferMessage) (string, error) {
	doc, err := json.Marshal(map[string]interface{}{
		"signer": signer,
		"pubkey": pubkey,
		"msgs":   msgs,
	})
	if err != nil {
		return "", err
	}
	return string(doc), nil
}

func (m *MockRelay) QRCodeForArbitrarySign(ctx context.Context, session Session, message, info string) (string, error) {
	if m.QRCodeErr != nil {
		return "", m.QRCodeErr
	}
	return SignURIScheme + m.nextKey(), nil
}

func (m *MockRelay) QRCodeForDirectSign(ctx context.Context, session Session, signer, signDoc, info string, fee FeeOptions) (string, error) {
	if m.QRCodeErr != nil {
		return "", m.QRCodeErr
	}
	return SignURIScheme + m.nextKey(), nil
}

func (m *MockRelay) VerifyArbitrarySignature(ctx context.Context, rawData, originalMessage string) (bool, error) {
	return m.ArbitraryValid, nil
}

func (m *MockRelay) VerifyDirectSignature(ctx context.Context, address, signature, signDoc string) (bool, error) {
	return m.DirectValid, nil
}

func (m *MockRelay) SignerPubkeyFromRaw(rawData string) (string, error) {
	return m.Pubkey, nil
}

func (m *MockRelay) NftImageURI(ctx context.Context, nftID string) (string, error) {
	if m.ImageErr != nil {
		return "", m.ImageErr
	}
	return "https://images.example/nft/" + nftID, nil
}

// TestingKeys returns a key set for tests.
func TestingKeys() Keys {
	return Keys{
		Request:      "test:request:",
		TicketResult: "test:ticket:result",
		RewardQueue:  "test:reward:queue",
		RewardResult: "test:reward:result",
		NftData:      "test:reward:nft:data",
		NftQueue:     "test:reward:nft:queue:",
		TokenQueue:   "test:reward:token:queue",
		AddressBook:  "test:addressbook",
	}
}
