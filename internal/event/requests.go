package event

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/firmachain/nft-event-server/internal/store"
)

// RequestStore persists sign requests as store hashes with TTL expiry.
// An absent key reads back as StatusInvalid, which is how expired or
// unknown requests are rejected.
type RequestStore struct {
	store     store.Store
	keyPrefix string
	ttl       time.Duration
}

// NewRequestStore creates a request store. Requests live for ttl from
// creation regardless of status.
func NewRequestStore(s store.Store, keyPrefix string, ttl time.Duration) *RequestStore {
	return &RequestStore{store: s, keyPrefix: keyPrefix, ttl: ttl}
}

func (r *RequestStore) key(requestKey string) string {
	return r.keyPrefix + requestKey
}

// Create writes a new request in StatusRequested. Callers guarantee key
// uniqueness; an existing key is overwritten field by field.
func (r *RequestStore) Create(ctx context.Context, typ RequestType, requestKey, message, signer, extra string) error {
	key := r.key(requestKey)

	fields := []struct {
		name  string
		value interface{}
	}{
		{"type", string(typ)},
		{"message", message},
		{"status", int(StatusRequested)},
		{"signer", signer},
		{"signData", ""},
		{"extra", extra},
		{"addedAt", nowUTC()},
	}
	for _, f := range fields {
		if err := r.store.HSet(ctx, key, f.name, f.value); err != nil {
			return fmt.Errorf("write request %s: %w", f.name, err)
		}
	}

	if err := r.store.Expire(ctx, key, r.ttl); err != nil {
		return fmt.Errorf("expire request: %w", err)
	}
	return nil
}

// Get returns the request for the key. A missing or expired key yields a
// request with StatusInvalid, never an error.
func (r *RequestStore) Get(ctx context.Context, requestKey string) (Request, error) {
	values, err := r.store.HGetAll(ctx, r.key(requestKey))
	if err != nil {
		return Request{}, fmt.Errorf("read request: %w", err)
	}

	rawStatus, ok := values["status"]
	if !ok {
		return Request{Status: StatusInvalid}, nil
	}
	status, err := strconv.Atoi(rawStatus)
	if err != nil {
		return Request{Status: StatusInvalid}, nil
	}

	return Request{
		Type:     RequestType(values["type"]),
		Message:  values["message"],
		Status:   Status(status),
		Signer:   values["signer"],
		SignData: values["signData"],
		Extra:    values["extra"],
		AddedAt:  values["addedAt"],
	}, nil
}

// SetStatus updates the status field.
func (r *RequestStore) SetStatus(ctx context.Context, requestKey string, status Status) error {
	return r.store.HSet(ctx, r.key(requestKey), "status", int(status))
}

// SetSigner binds the signer address to the request.
func (r *RequestStore) SetSigner(ctx context.Context, requestKey, signer string) error {
	return r.store.HSet(ctx, r.key(requestKey), "signer", signer)
}

// SetSignData records the raw signature payload.
func (r *RequestStore) SetSignData(ctx context.Context, requestKey, signData string) error {
	return r.store.HSet(ctx, r.key(requestKey), "signData", signData)
}
