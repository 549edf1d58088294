package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/firmachain/nft-event-server/internal/metrics"
	"github.com/firmachain/nft-event-server/internal/store"
	"github.com/firmachain/nft-event-server/pkg/logger"
)

// Errors surfaced by the engine. The API layer collapses all of them to
// the generic rejection envelope; the distinctions exist for logs and
// tests.
var (
	ErrNotPlayable   = errors.New("signer is not playable")
	ErrSoldOut       = errors.New("reward inventory sold out")
	ErrUnknownSigner = errors.New("signer not registered")
	ErrNftNotFound   = errors.New("nft metadata not found")
)

// EngineConfig holds the event parameters.
type EngineConfig struct {
	ProjectSecret string
	WalletAddress string
	TicketAmount  string
	TokenDenom    string
	LoginInfo     string
	PlayInfo      string
	RewardInfo    string
}

// Engine orchestrates the login, play and reward flows over the store
// components and the relay collaborator.
type Engine struct {
	requests  *RequestStore
	addresses *AddressBook
	tickets   *TicketLedger
	inventory *Inventory
	queue     *RewardQueue
	relay     RelayClient
	cfg       EngineConfig
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewEngine constructs the engine and its store components.
func NewEngine(s store.Store, keys Keys, requestTTL time.Duration, relay RelayClient, cfg EngineConfig, log *logger.Logger) *Engine {
	if cfg.TokenDenom == "" {
		cfg.TokenDenom = "ufct"
	}

	return &Engine{
		requests:  NewRequestStore(s, keys.Request, requestTTL),
		addresses: NewAddressBook(s, keys.AddressBook),
		tickets:   NewTicketLedger(s, keys.TicketResult),
		inventory: NewInventory(s, keys.NftQueue, keys.TokenQueue, keys.NftData),
		queue:     NewRewardQueue(s, keys.RewardQueue, keys.RewardResult),
		relay:     relay,
		cfg:       cfg,
		log:       log,
	}
}

// WithMetrics attaches prometheus collectors.
func (e *Engine) WithMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// SignResponse is returned by the login and play flows.
type SignResponse struct {
	RequestKey string `json:"requestKey"`
	QRCode     string `json:"qrcode"`
}

// RewardSignResponse is returned by the reward flow.
type RewardSignResponse struct {
	RequestKey  string `json:"requestKey"`
	QRCode      string `json:"qrcode"`
	NftName     string `json:"nftName"`
	NftImageURI string `json:"nftImageURI"`
}

// VerifyResult reports a signature check without mutating any state.
type VerifyResult struct {
	RequestKey string `json:"requestKey"`
	Signature  string `json:"signature"`
	IsValid    bool   `json:"isValid"`
}

// UserInfo carries the signer's granted reward, empty if none.
type UserInfo struct {
	RewardData string `json:"rewardData"`
}

// NftList carries the remaining ticket count per NFT type.
type NftList struct {
	NftTicketCountList []int64 `json:"nftTicketCountList"`
}

// NftMetadata is the display metadata of one NFT.
type NftMetadata struct {
	NftID       string          `json:"nftId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Attributes  json.RawMessage `json:"attributes"`
}

// Status returns the request for a key. Expired or unknown keys come
// back with StatusInvalid.
func (e *Engine) Status(ctx context.Context, requestKey string) (Request, error) {
	return e.requests.Get(ctx, requestKey)
}

// UserInfo returns the reward granted to the signer, if any.
func (e *Engine) UserInfo(ctx context.Context, signer string) (UserInfo, error) {
	descriptor, _, err := e.tickets.Reward(ctx, signer)
	if err != nil {
		return UserInfo{}, err
	}
	return UserInfo{RewardData: descriptor}, nil
}

// SignForLogin starts a login flow: a fresh random challenge wrapped in
// an arbitrary-sign request on a new relay session.
func (e *Engine) SignForLogin(ctx context.Context) (SignResponse, error) {
	challenge := uuid.NewString()

	session, err := e.relay.Connect(ctx, e.cfg.ProjectSecret)
	if err != nil {
		return SignResponse{}, fmt.Errorf("connect relay: %w", err)
	}

	qrcode, err := e.relay.QRCodeForArbitrarySign(ctx, session, challenge, e.cfg.LoginInfo)
	if err != nil {
		return SignResponse{}, fmt.Errorf("request login qrcode: %w", err)
	}
	requestKey := strings.TrimPrefix(qrcode, SignURIScheme)

	if err := e.requests.Create(ctx, TypeLogin, requestKey, challenge, "", ""); err != nil {
		return SignResponse{}, err
	}

	e.log.WithField("request_key", requestKey).Info("login sign requested")
	e.metrics.RecordSignRequest(string(TypeLogin))

	return SignResponse{RequestKey: requestKey, QRCode: qrcode}, nil
}

// SignForPlay starts a play flow for a known signer: a direct-sign
// request over a ticket payment to the event wallet. The playability
// gate rejects signers that already played and sold-out types before
// anything is mutated.
func (e *Engine) SignForPlay(ctx context.Context, signer, nftType string) (SignResponse, error) {
	playable, err := e.isPlayable(ctx, signer, nftType)
	if err != nil {
		return SignResponse{}, err
	}
	if !playable {
		return SignResponse{}, ErrNotPlayable
	}

	pubkey, known, err := e.addresses.Pubkey(ctx, signer)
	if err != nil {
		return SignResponse{}, err
	}
	if !known {
		return SignResponse{}, ErrUnknownSigner
	}

	msgs := []TransferMessage{{
		FromAddress: signer,
		ToAddress:   e.cfg.WalletAddress,
		Denom:       e.cfg.TokenDenom,
		Amount:      e.cfg.TicketAmount,
	}}
	signDoc, err := e.relay.SignDoc(ctx, signer, pubkey, msgs)
	if err != nil {
		return SignResponse{}, fmt.Errorf("build sign doc: %w", err)
	}

	session, err := e.relay.Connect(ctx, e.cfg.ProjectSecret)
	if err != nil {
		return SignResponse{}, fmt.Errorf("connect relay: %w", err)
	}

	qrcode, err := e.relay.QRCodeForDirectSign(ctx, session, signer, signDoc, e.cfg.PlayInfo, FeeOptions{FctPrice: 1})
	if err != nil {
		return SignResponse{}, fmt.Errorf("request play qrcode: %w", err)
	}
	requestKey := strings.TrimPrefix(qrcode, SignURIScheme)

	if err := e.requests.Create(ctx, TypePlay, requestKey, signDoc, signer, nftType); err != nil {
		return SignResponse{}, err
	}

	e.log.WithField("request_key", requestKey).
		WithField("signer", signer).
		WithField("nft_type", nftType).
		Info("play sign requested")
	e.metrics.RecordSignRequest(string(TypePlay))

	return SignResponse{RequestKey: requestKey, QRCode: qrcode}, nil
}

// SignForReward is the reward claim flow. The claim phase is disabled:
// the endpoint stays for client compatibility and returns empty fields
// without touching the ledger or the inventory.
func (e *Engine) SignForReward(ctx context.Context, signer string) (RewardSignResponse, error) {
	return RewardSignResponse{}, nil
}

// Callback consumes the relay's signature delivery for a request. A
// request that is missing, expired or already terminal is left untouched.
// Flow errors are normalized to a StatusInvalid transition.
func (e *Engine) Callback(ctx context.Context, requestKey string, approve bool, signData SignData) error {
	req, err := e.requests.Get(ctx, requestKey)
	if err != nil {
		return err
	}

	if req.Status != StatusRequested {
		e.log.WithField("request_key", requestKey).
			WithField("status", int(req.Status)).
			Warn("callback for non-pending request ignored")
		e.metrics.RecordCallback(string(req.Type), "ignored")
		return nil
	}

	if !approve {
		if err := e.requests.SetStatus(ctx, requestKey, StatusInvalid); err != nil {
			return err
		}
		e.metrics.RecordCallback(string(req.Type), "rejected")
		return nil
	}

	var flowErr error
	switch req.Type {
	case TypeLogin:
		flowErr = e.callbackLogin(ctx, requestKey, req, signData)
	case TypePlay:
		flowErr = e.callbackPlay(ctx, requestKey, req, signData)
	case TypeReward:
		// Claim phase disabled, see SignForReward.
	default:
		flowErr = fmt.Errorf("unknown request type %q", req.Type)
	}

	if flowErr != nil {
		e.log.WithError(flowErr).
			WithField("request_key", requestKey).
			WithField("type", string(req.Type)).
			Error("callback failed")
		e.metrics.RecordCallback(string(req.Type), "invalid")
		return e.requests.SetStatus(ctx, requestKey, StatusInvalid)
	}
	return nil
}

func (e *Engine) callbackLogin(ctx context.Context, requestKey string, req Request, signData SignData) error {
	valid, err := e.relay.VerifyArbitrarySignature(ctx, signData.RawData, req.Message)
	if err != nil {
		return fmt.Errorf("verify arbitrary signature: %w", err)
	}
	if !valid {
		e.metrics.RecordCallback(string(TypeLogin), "invalid")
		return e.requests.SetStatus(ctx, requestKey, StatusInvalid)
	}

	if err := e.requests.SetStatus(ctx, requestKey, StatusSuccess); err != nil {
		return err
	}
	if err := e.requests.SetSigner(ctx, requestKey, signData.Address); err != nil {
		return err
	}

	known, err := e.addresses.IsKnown(ctx, signData.Address)
	if err != nil {
		return err
	}
	if !known {
		pubkey, err := e.relay.SignerPubkeyFromRaw(signData.RawData)
		if err != nil {
			return fmt.Errorf("extract signer pubkey: %w", err)
		}
		if err := e.addresses.Register(ctx, signData.Address, pubkey); err != nil {
			return err
		}
	}

	e.log.WithField("request_key", requestKey).
		WithField("signer", signData.Address).
		Info("login verified")
	e.metrics.RecordCallback(string(TypeLogin), "success")
	return nil
}

func (e *Engine) callbackPlay(ctx context.Context, requestKey string, req Request, signData SignData) error {
	if err := e.requests.SetStatus(ctx, requestKey, StatusSuccess); err != nil {
		return err
	}
	raw, err := json.Marshal(signData)
	if err != nil {
		return fmt.Errorf("marshal sign data: %w", err)
	}
	if err := e.requests.SetSignData(ctx, requestKey, string(raw)); err != nil {
		return err
	}

	reward, err := e.currentReward(ctx, req.Extra)
	if err != nil {
		return err
	}
	encoded, err := reward.Encode()
	if err != nil {
		return err
	}

	granted, err := e.tickets.Grant(ctx, req.Signer, encoded)
	if err != nil {
		return err
	}
	if !granted {
		// A concurrent play callback won the grant; the drawn inventory
		// is lost but no second reward is issued or queued.
		e.log.WithField("signer", req.Signer).Warn("reward already granted, skipping enqueue")
		e.metrics.RecordCallback(string(TypePlay), "duplicate")
		return nil
	}

	if err := e.queue.Enqueue(ctx, QueueEntry{Address: req.Signer, RewardData: encoded}); err != nil {
		return err
	}

	e.log.WithField("request_key", requestKey).
		WithField("signer", req.Signer).
		WithField("nft_type", req.Extra).
		Info("reward granted and queued")
	e.metrics.RecordCallback(string(TypePlay), "success")
	e.metrics.RecordRewardQueued()
	return nil
}

// currentReward draws one NFT of the type and one token amount and
// assembles the reward descriptor. Draws are destructive; they run only
// after the playability gate passed.
func (e *Engine) currentReward(ctx context.Context, nftType string) (RewardDescriptor, error) {
	nftData, ok, err := e.inventory.DrawNft(ctx, nftType)
	if err != nil {
		return RewardDescriptor{}, err
	}
	if !ok {
		return RewardDescriptor{}, fmt.Errorf("nft type %s: %w", nftType, ErrSoldOut)
	}

	amount, ok, err := e.inventory.DrawToken(ctx)
	if err != nil {
		return RewardDescriptor{}, err
	}
	if !ok {
		return RewardDescriptor{}, fmt.Errorf("token queue: %w", ErrSoldOut)
	}

	nftID := gjson.Get(nftData, "nftId").String()
	imageURL, err := e.relay.NftImageURI(ctx, nftID)
	if err != nil {
		return RewardDescriptor{}, fmt.Errorf("resolve nft image: %w", err)
	}

	dappNftID := gjson.Get(nftData, "dappNftId").String()
	metadata, ok, err := e.inventory.NftMetadata(ctx, dappNftID)
	if err != nil {
		return RewardDescriptor{}, err
	}
	if !ok {
		return RewardDescriptor{}, fmt.Errorf("dapp nft %s: %w", dappNftID, ErrNftNotFound)
	}

	return RewardDescriptor{
		NftData:   nftData,
		TokenData: amount,
		ImageURL:  imageURL,
		Name:      gjson.Get(metadata, "name").String(),
		IsQueue:   true,
	}, nil
}

// Verify re-checks a signature against the request's sign document and
// recorded signer. No state changes.
func (e *Engine) Verify(ctx context.Context, requestKey, signature string) (VerifyResult, error) {
	result := VerifyResult{RequestKey: requestKey, Signature: signature}

	req, err := e.requests.Get(ctx, requestKey)
	if err != nil {
		return result, err
	}

	valid, err := e.relay.VerifyDirectSignature(ctx, req.Signer, signature, req.Message)
	if err != nil {
		return result, fmt.Errorf("verify direct signature: %w", err)
	}
	result.IsValid = valid
	return result, nil
}

// NftListInfo returns the remaining ticket count for every NFT type.
func (e *Engine) NftListInfo(ctx context.Context) (NftList, error) {
	counts := make([]int64, 0, NftTypeCount)
	for i := 0; i < NftTypeCount; i++ {
		nftType := strconv.Itoa(i)
		count, err := e.inventory.RemainingCount(ctx, nftType)
		if err != nil {
			return NftList{}, err
		}
		counts = append(counts, count)
		e.metrics.SetInventoryRemaining(nftType, count)
	}
	return NftList{NftTicketCountList: counts}, nil
}

// NftMetadataInfo returns the display metadata for a dapp NFT id. The
// stored collection name carries the original event year; it is rewritten
// for display.
func (e *Engine) NftMetadataInfo(ctx context.Context, dappNftID string) (NftMetadata, error) {
	raw, ok, err := e.inventory.NftMetadata(ctx, dappNftID)
	if err != nil {
		return NftMetadata{}, err
	}
	if !ok {
		return NftMetadata{}, ErrNftNotFound
	}

	var meta NftMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return NftMetadata{}, fmt.Errorf("parse nft metadata: %w", err)
	}
	meta.Name = strings.ReplaceAll(meta.Name, "2022", "EVENT")
	return meta, nil
}

func (e *Engine) isPlayable(ctx context.Context, signer, nftType string) (bool, error) {
	_, played, err := e.tickets.Reward(ctx, signer)
	if err != nil {
		return false, err
	}
	if played {
		return false, nil
	}

	count, err := e.inventory.RemainingCount(ctx, nftType)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
