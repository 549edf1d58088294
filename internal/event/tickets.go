package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/firmachain/nft-event-server/internal/store"
)

// TicketLedger records the one reward ever granted to each signer. The
// ledger entry is the sole defense against double-claiming.
type TicketLedger struct {
	store store.Store
	key   string
}

// NewTicketLedger creates a ticket ledger over the given hash key.
func NewTicketLedger(s store.Store, key string) *TicketLedger {
	return &TicketLedger{store: s, key: key}
}

// Reward returns the serialized reward descriptor for the signer.
// Absence means the signer has not played.
func (l *TicketLedger) Reward(ctx context.Context, signer string) (string, bool, error) {
	descriptor, err := l.store.HGet(ctx, l.key, signer)
	if errors.Is(err, store.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read ticket ledger: %w", err)
	}
	return descriptor, true, nil
}

// Grant writes the reward descriptor only if the signer has none yet and
// reports whether the grant happened. The conditional write is what keeps
// concurrent play callbacks from issuing two rewards to one signer.
func (l *TicketLedger) Grant(ctx context.Context, signer, descriptor string) (bool, error) {
	granted, err := l.store.HSetNX(ctx, l.key, signer, descriptor)
	if err != nil {
		return false, fmt.Errorf("grant ticket: %w", err)
	}
	return granted, nil
}
