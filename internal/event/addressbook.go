package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/firmachain/nft-event-server/internal/store"
)

// AddressBook maps verified signer addresses to their public keys. An
// entry is written once on first successful login and never changed;
// presence of an entry is the "returning user" signal.
type AddressBook struct {
	store store.Store
	key   string
}

// NewAddressBook creates an address book over the given hash key.
func NewAddressBook(s store.Store, key string) *AddressBook {
	return &AddressBook{store: s, key: key}
}

// IsKnown reports whether the signer has logged in before.
func (b *AddressBook) IsKnown(ctx context.Context, signer string) (bool, error) {
	_, err := b.store.HGet(ctx, b.key, signer)
	if errors.Is(err, store.ErrNil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read address book: %w", err)
	}
	return true, nil
}

// Pubkey returns the registered public key for the signer.
func (b *AddressBook) Pubkey(ctx context.Context, signer string) (string, bool, error) {
	pubkey, err := b.store.HGet(ctx, b.key, signer)
	if errors.Is(err, store.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read address book: %w", err)
	}
	return pubkey, true, nil
}

// Register stores the signer's public key. Callers check IsKnown first;
// no dedupe is enforced here.
func (b *AddressBook) Register(ctx context.Context, signer, pubkey string) error {
	if err := b.store.HSet(ctx, b.key, signer, pubkey); err != nil {
		return fmt.Errorf("register signer: %w", err)
	}
	return nil
}
