package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firmachain/nft-event-server/internal/store"
)

// RewardQueue carries pending delivery jobs from the play flow to the
// distribution worker, and the append-only result records of completed
// transfers.
//
// A dequeue moves the job onto a processing list instead of discarding
// it; the worker acknowledges it only after both transfer legs finished.
// Jobs stranded on the processing list by a crash are requeued at worker
// startup instead of being lost.
type RewardQueue struct {
	store         store.Store
	queueKey      string
	processingKey string
	resultKey     string
}

// NewRewardQueue creates a reward queue over the given keys.
func NewRewardQueue(s store.Store, queueKey, resultKey string) *RewardQueue {
	return &RewardQueue{
		store:         s,
		queueKey:      queueKey,
		processingKey: queueKey + ":processing",
		resultKey:     resultKey,
	}
}

// Enqueue hands a delivery job to the worker. Ownership of the reward
// transfers here; the engine never touches the job again.
func (q *RewardQueue) Enqueue(ctx context.Context, entry QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal queue entry: %w", err)
	}
	if err := q.store.RPush(ctx, q.queueKey, string(data)); err != nil {
		return fmt.Errorf("push reward queue: %w", err)
	}
	return nil
}

// Dequeue moves the next job to the processing list and returns its raw
// payload. The second return is false when the queue is empty.
func (q *RewardQueue) Dequeue(ctx context.Context) (string, bool, error) {
	raw, err := q.store.LMove(ctx, q.queueKey, q.processingKey)
	if errors.Is(err, store.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pop reward queue: %w", err)
	}
	return raw, true, nil
}

// Ack removes a delivered job from the processing list.
func (q *RewardQueue) Ack(ctx context.Context, raw string) error {
	if err := q.store.LRem(ctx, q.processingKey, raw); err != nil {
		return fmt.Errorf("ack reward job: %w", err)
	}
	return nil
}

// RequeueInFlight moves jobs left on the processing list back onto the
// queue and returns how many were recovered.
func (q *RewardQueue) RequeueInFlight(ctx context.Context) (int, error) {
	recovered := 0
	for {
		_, err := q.store.LMove(ctx, q.processingKey, q.queueKey)
		if errors.Is(err, store.ErrNil) {
			return recovered, nil
		}
		if err != nil {
			return recovered, fmt.Errorf("requeue in-flight job: %w", err)
		}
		recovered++
	}
}

// Length returns the number of pending jobs.
func (q *RewardQueue) Length(ctx context.Context) (int64, error) {
	return q.store.LLen(ctx, q.queueKey)
}

// WriteResult appends a delivery result record, scored by current time.
func (q *RewardQueue) WriteResult(ctx context.Context, address, transactionHash string) error {
	record, err := json.Marshal(ResultRecord{Address: address, TransactionHash: transactionHash})
	if err != nil {
		return fmt.Errorf("marshal result record: %w", err)
	}
	if err := q.store.ZAdd(ctx, q.resultKey, float64(time.Now().UTC().Unix()), string(record)); err != nil {
		return fmt.Errorf("write result record: %w", err)
	}
	return nil
}
