package event

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/firmachain/nft-event-server/internal/store"
)

// Inventory manages the finite reward pools: one NFT descriptor queue per
// type, one shared token amount queue, and the NFT metadata hash. Draws
// are destructive pops; a drawn item belongs to whoever triggered the
// draw and is never returned.
type Inventory struct {
	store          store.Store
	nftQueuePrefix string
	tokenQueueKey  string
	nftDataKey     string
}

// NewInventory creates an inventory manager.
func NewInventory(s store.Store, nftQueuePrefix, tokenQueueKey, nftDataKey string) *Inventory {
	return &Inventory{
		store:          s,
		nftQueuePrefix: nftQueuePrefix,
		tokenQueueKey:  tokenQueueKey,
		nftDataKey:     nftDataKey,
	}
}

func (i *Inventory) nftQueueKey(nftType string) string {
	return i.nftQueuePrefix + nftType
}

// RemainingCount returns how many NFTs of the type are still available.
func (i *Inventory) RemainingCount(ctx context.Context, nftType string) (int64, error) {
	count, err := i.store.LLen(ctx, i.nftQueueKey(nftType))
	if err != nil {
		return 0, fmt.Errorf("count nft queue %s: %w", nftType, err)
	}
	return count, nil
}

// DrawNft pops the next NFT descriptor of the type. The second return is
// false when the type is sold out.
func (i *Inventory) DrawNft(ctx context.Context, nftType string) (string, bool, error) {
	descriptor, err := i.store.LPop(ctx, i.nftQueueKey(nftType))
	if errors.Is(err, store.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pop nft queue %s: %w", nftType, err)
	}
	return descriptor, true, nil
}

// DrawToken pops the next token amount from the shared queue.
func (i *Inventory) DrawToken(ctx context.Context) (int64, bool, error) {
	raw, err := i.store.LPop(ctx, i.tokenQueueKey)
	if errors.Is(err, store.ErrNil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("pop token queue: %w", err)
	}

	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse token amount %q: %w", raw, err)
	}
	return amount, true, nil
}

// NftMetadata returns the stored metadata json for a dapp NFT id.
func (i *Inventory) NftMetadata(ctx context.Context, dappNftID string) (string, bool, error) {
	metadata, err := i.store.HGet(ctx, i.nftDataKey, dappNftID)
	if errors.Is(err, store.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read nft metadata: %w", err)
	}
	return metadata, true, nil
}

// Provisioning operations, used by the seeding CLI.

// AddNft appends an NFT descriptor to the type's queue.
func (i *Inventory) AddNft(ctx context.Context, nftType, descriptor string) error {
	if err := i.store.RPush(ctx, i.nftQueueKey(nftType), descriptor); err != nil {
		return fmt.Errorf("push nft queue %s: %w", nftType, err)
	}
	return nil
}

// AddToken appends a token amount to the shared queue.
func (i *Inventory) AddToken(ctx context.Context, amount int64) error {
	if err := i.store.RPush(ctx, i.tokenQueueKey, strconv.FormatInt(amount, 10)); err != nil {
		return fmt.Errorf("push token queue: %w", err)
	}
	return nil
}

// SetNftMetadata stores display metadata for a dapp NFT id.
func (i *Inventory) SetNftMetadata(ctx context.Context, dappNftID, metadata string) error {
	if err := i.store.HSet(ctx, i.nftDataKey, dappNftID, metadata); err != nil {
		return fmt.Errorf("write nft metadata: %w", err)
	}
	return nil
}
