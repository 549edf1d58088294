package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmachain/nft-event-server/internal/store"
	"github.com/firmachain/nft-event-server/pkg/logger"
)

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *MockRelay) {
	t.Helper()

	mem := store.NewMemoryStore()
	relay := NewMockRelay()
	cfg := EngineConfig{
		ProjectSecret: "project-secret",
		WalletAddress: "firma1eventwallet",
		TicketAmount:  "1000000",
		LoginInfo:     "EVENT LOGIN",
		PlayInfo:      "EVENT PLAY",
	}
	engine := NewEngine(mem, TestingKeys(), time.Minute, relay, cfg, logger.NewDefault("event-test"))
	return engine, mem, relay
}

func seedInventory(t *testing.T, engine *Engine, nftType string, count int) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < count; i++ {
		descriptor := fmt.Sprintf(`{"nftId":"nft-%s-%d","dappNftId":"dapp-%s-%d"}`, nftType, i, nftType, i)
		require.NoError(t, engine.inventory.AddNft(ctx, nftType, descriptor))
		require.NoError(t, engine.inventory.AddToken(ctx, 100))

		metadata := fmt.Sprintf(`{"nftId":"nft-%s-%d","name":"FIRMA 2022 #%d","description":"event nft","attributes":[]}`, nftType, i, i)
		require.NoError(t, engine.inventory.SetNftMetadata(ctx, fmt.Sprintf("dapp-%s-%d", nftType, i), metadata))
	}
}

func TestLoginFlow(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	resp, err := engine.SignForLogin(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RequestKey)
	assert.Equal(t, SignURIScheme+resp.RequestKey, resp.QRCode)

	req, err := engine.Status(ctx, resp.RequestKey)
	require.NoError(t, err)
	assert.Equal(t, TypeLogin, req.Type)
	assert.Equal(t, StatusRequested, req.Status)

	signData := SignData{Address: "firma1player", RawData: "raw-signature"}
	require.NoError(t, engine.Callback(ctx, resp.RequestKey, true, signData))

	req, err = engine.Status(ctx, resp.RequestKey)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, req.Status)
	assert.Equal(t, "firma1player", req.Signer)

	pubkey, known, err := engine.addresses.Pubkey(ctx, "firma1player")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, "mock-pubkey", pubkey)
}

func TestLoginFlow_InvalidSignature(t *testing.T) {
	ctx := context.Background()
	engine, _, relay := newTestEngine(t)
	relay.ArbitraryValid = false

	resp, err := engine.SignForLogin(ctx)
	require.NoError(t, err)

	require.NoError(t, engine.Callback(ctx, resp.RequestKey, true, SignData{Address: "firma1player", RawData: "bad"}))

	req, err := engine.Status(ctx, resp.RequestKey)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, req.Status)
	assert.Empty(t, req.Signer, "signer must stay empty on verification failure")

	_, known, err := engine.addresses.Pubkey(ctx, "firma1player")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestCallbackTerminalOnce(t *testing.T) {
	ctx := context.Background()
	engine, _, relay := newTestEngine(t)

	resp, err := engine.SignForLogin(ctx)
	require.NoError(t, err)

	require.NoError(t, engine.Callback(ctx, resp.RequestKey, true, SignData{Address: "firma1a", RawData: "r"}))

	// A second callback must not move the request out of its terminal
	// status or rebind the signer.
	relay.ArbitraryValid = false
	require.NoError(t, engine.Callback(ctx, resp.RequestKey, true, SignData{Address: "firma1b", RawData: "r2"}))

	req, err := engine.Status(ctx, resp.RequestKey)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, req.Status)
	assert.Equal(t, "firma1a", req.Signer)
}

func TestCallbackRejected(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	resp, err := engine.SignForLogin(ctx)
	require.NoError(t, err)

	require.NoError(t, engine.Callback(ctx, resp.RequestKey, false, SignData{}))

	req, err := engine.Status(ctx, resp.RequestKey)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, req.Status)
}

func TestCallbackUnknownKey(t *testing.T) {
	ctx := context.Background()
	engine, mem, _ := newTestEngine(t)

	require.NoError(t, engine.Callback(ctx, "expired-or-unknown", true, SignData{Address: "firma1a", RawData: "r"}))

	// Nothing was created or mutated.
	req, err := engine.Status(ctx, "expired-or-unknown")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, req.Status)

	length, err := mem.LLen(ctx, TestingKeys().RewardQueue)
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestPlayFlow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	engine, mem, _ := newTestEngine(t)
	seedInventory(t, engine, "0", 1)

	require.NoError(t, engine.addresses.Register(ctx, "firma1xyz", "pubkey-xyz"))

	// Mirror of the reference scenario: one ticket left for type 0.
	require.NoError(t, engine.requests.Create(ctx, TypePlay, "abc123", "sign-doc", "firma1xyz", "0"))

	require.NoError(t, engine.Callback(ctx, "abc123", true, SignData{Address: "firma1xyz", RawData: "sig"}))

	req, err := engine.Status(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, req.Status)
	assert.NotEmpty(t, req.SignData)

	// Ticket ledger holds exactly one reward for the signer.
	descriptor, played, err := engine.tickets.Reward(ctx, "firma1xyz")
	require.NoError(t, err)
	require.True(t, played)

	var reward RewardDescriptor
	require.NoError(t, json.Unmarshal([]byte(descriptor), &reward))
	assert.True(t, reward.IsQueue)
	assert.Equal(t, int64(100), reward.TokenData)
	assert.Equal(t, "FIRMA 2022 #0", reward.Name)
	assert.Equal(t, "https://images.example/nft/nft-0-0", reward.ImageURL)

	// One delivery job queued for the signer.
	entries, err := mem.LRange(ctx, TestingKeys().RewardQueue, 0, -1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var entry QueueEntry
	require.NoError(t, json.Unmarshal([]byte(entries[0]), &entry))
	assert.Equal(t, "firma1xyz", entry.Address)
	assert.Equal(t, descriptor, entry.RewardData)

	// The drawn type is now sold out.
	remaining, err := engine.inventory.RemainingCount(ctx, "0")
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestPlayFlow_SecondAttemptRejected(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	seedInventory(t, engine, "0", 2)

	require.NoError(t, engine.addresses.Register(ctx, "firma1xyz", "pubkey-xyz"))
	require.NoError(t, engine.requests.Create(ctx, TypePlay, "first", "sign-doc", "firma1xyz", "0"))
	require.NoError(t, engine.Callback(ctx, "first", true, SignData{Address: "firma1xyz", RawData: "sig"}))

	_, err := engine.SignForPlay(ctx, "firma1xyz", "0")
	assert.ErrorIs(t, err, ErrNotPlayable)

	// Inventory was not drawn again.
	remaining, err := engine.inventory.RemainingCount(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}

func TestPlayFlow_SoldOut(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	require.NoError(t, engine.addresses.Register(ctx, "firma1xyz", "pubkey-xyz"))

	_, err := engine.SignForPlay(ctx, "firma1xyz", "0")
	assert.ErrorIs(t, err, ErrNotPlayable)
}

func TestPlayFlow_UnknownSigner(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	seedInventory(t, engine, "0", 1)

	_, err := engine.SignForPlay(ctx, "firma1unknown", "0")
	assert.ErrorIs(t, err, ErrUnknownSigner)
}

func TestPlayFlow_SignRequest(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	seedInventory(t, engine, "1", 1)

	require.NoError(t, engine.addresses.Register(ctx, "firma1xyz", "pubkey-xyz"))

	resp, err := engine.SignForPlay(ctx, "firma1xyz", "1")
	require.NoError(t, err)

	req, err := engine.Status(ctx, resp.RequestKey)
	require.NoError(t, err)
	assert.Equal(t, TypePlay, req.Type)
	assert.Equal(t, "firma1xyz", req.Signer)
	assert.Equal(t, "1", req.Extra)

	// The stored message is the sign doc over the ticket payment.
	assert.Contains(t, req.Message, "firma1eventwallet")
	assert.Contains(t, req.Message, "1000000")
}

func TestPlayCallback_SoldOutDuringCallback(t *testing.T) {
	ctx := context.Background()
	engine, mem, _ := newTestEngine(t)

	// Request passed the gate earlier but the inventory drained since.
	require.NoError(t, engine.addresses.Register(ctx, "firma1xyz", "pubkey-xyz"))
	require.NoError(t, engine.requests.Create(ctx, TypePlay, "late", "sign-doc", "firma1xyz", "0"))

	require.NoError(t, engine.Callback(ctx, "late", true, SignData{Address: "firma1xyz", RawData: "sig"}))

	req, err := engine.Status(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, req.Status)

	_, played, err := engine.tickets.Reward(ctx, "firma1xyz")
	require.NoError(t, err)
	assert.False(t, played)

	length, err := mem.LLen(ctx, TestingKeys().RewardQueue)
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestPlayCallback_ConcurrentSingleGrant(t *testing.T) {
	ctx := context.Background()
	engine, mem, _ := newTestEngine(t)

	const attempts = 16
	seedInventory(t, engine, "0", attempts)
	require.NoError(t, engine.addresses.Register(ctx, "firma1xyz", "pubkey-xyz"))

	for i := 0; i < attempts; i++ {
		key := "race-" + strconv.Itoa(i)
		require.NoError(t, engine.requests.Create(ctx, TypePlay, key, "sign-doc", "firma1xyz", "0"))
	}

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "race-" + strconv.Itoa(i)
			_ = engine.Callback(ctx, key, true, SignData{Address: "firma1xyz", RawData: "sig"})
		}(i)
	}
	wg.Wait()

	// Exactly one reward persists and exactly one delivery job exists,
	// no matter how many callbacks raced.
	_, played, err := engine.tickets.Reward(ctx, "firma1xyz")
	require.NoError(t, err)
	assert.True(t, played)

	entries, err := mem.LRange(ctx, TestingKeys().RewardQueue, 0, -1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRewardFlowDisabled(t *testing.T) {
	ctx := context.Background()
	engine, mem, _ := newTestEngine(t)
	seedInventory(t, engine, "0", 1)

	resp, err := engine.SignForReward(ctx, "firma1xyz")
	require.NoError(t, err)
	assert.Empty(t, resp.RequestKey)
	assert.Empty(t, resp.QRCode)
	assert.Empty(t, resp.NftName)
	assert.Empty(t, resp.NftImageURI)

	// No mutation: inventory and ledger untouched.
	remaining, err := engine.inventory.RemainingCount(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)

	length, err := mem.LLen(ctx, TestingKeys().RewardQueue)
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	engine, _, relay := newTestEngine(t)

	require.NoError(t, engine.requests.Create(ctx, TypePlay, "vkey", "sign-doc", "firma1xyz", "0"))

	result, err := engine.Verify(ctx, "vkey", "signature-bytes")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, "vkey", result.RequestKey)

	relay.DirectValid = false
	result, err = engine.Verify(ctx, "vkey", "signature-bytes")
	require.NoError(t, err)
	assert.False(t, result.IsValid)

	// Verify never mutates the request.
	req, err := engine.Status(ctx, "vkey")
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, req.Status)
}

func TestNftList(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	seedInventory(t, engine, "0", 2)
	seedInventory(t, engine, "2", 1)

	list, err := engine.NftListInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 0, 1}, list.NftTicketCountList)
}

func TestNftMetadata(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	seedInventory(t, engine, "0", 1)

	meta, err := engine.NftMetadataInfo(ctx, "dapp-0-0")
	require.NoError(t, err)
	assert.Equal(t, "nft-0-0", meta.NftID)
	assert.Equal(t, "FIRMA EVENT #0", meta.Name, "event year is rewritten for display")
	assert.Equal(t, "event nft", meta.Description)

	_, err = engine.NftMetadataInfo(ctx, "missing")
	assert.ErrorIs(t, err, ErrNftNotFound)
}

func TestUserInfo(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	info, err := engine.UserInfo(ctx, "firma1nobody")
	require.NoError(t, err)
	assert.Empty(t, info.RewardData)

	granted, err := engine.tickets.Grant(ctx, "firma1xyz", `{"isQueue":true}`)
	require.NoError(t, err)
	require.True(t, granted)
	info, err = engine.UserInfo(ctx, "firma1xyz")
	require.NoError(t, err)
	assert.Equal(t, `{"isQueue":true}`, info.RewardData)
}
