package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmachain/nft-event-server/internal/store"
)

func TestRewardQueueDequeueMovesToProcessing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	queue := NewRewardQueue(mem, "test:queue", "test:result")

	require.NoError(t, queue.Enqueue(ctx, QueueEntry{Address: "firma1xyz", RewardData: "{}"}))

	raw, ok, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// The job left the queue but survives on the processing list until
	// it is acknowledged.
	pending, err := queue.Length(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	inflight, err := mem.LLen(ctx, "test:queue:processing")
	require.NoError(t, err)
	assert.EqualValues(t, 1, inflight)

	require.NoError(t, queue.Ack(ctx, raw))
	inflight, err = mem.LLen(ctx, "test:queue:processing")
	require.NoError(t, err)
	assert.Zero(t, inflight)
}

func TestRewardQueueDequeueEmpty(t *testing.T) {
	queue := NewRewardQueue(store.NewMemoryStore(), "test:queue", "test:result")

	_, ok, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRewardQueueRequeueInFlight(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	queue := NewRewardQueue(mem, "test:queue", "test:result")

	require.NoError(t, queue.Enqueue(ctx, QueueEntry{Address: "firma1a", RewardData: "{}"}))
	require.NoError(t, queue.Enqueue(ctx, QueueEntry{Address: "firma1b", RewardData: "{}"}))

	_, _, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	_, _, err = queue.Dequeue(ctx)
	require.NoError(t, err)

	recovered, err := queue.RequeueInFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, recovered)

	pending, err := queue.Length(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pending)
}

func TestTicketLedgerGrantOnce(t *testing.T) {
	ctx := context.Background()
	ledger := NewTicketLedger(store.NewMemoryStore(), "test:ledger")

	granted, err := ledger.Grant(ctx, "firma1xyz", `{"first":true}`)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = ledger.Grant(ctx, "firma1xyz", `{"second":true}`)
	require.NoError(t, err)
	assert.False(t, granted)

	// The first grant stays.
	descriptor, found, err := ledger.Reward(ctx, "firma1xyz")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"first":true}`, descriptor)
}

func TestInventoryDrawOrder(t *testing.T) {
	ctx := context.Background()
	inventory := NewInventory(store.NewMemoryStore(), "test:nft:", "test:token", "test:data")

	require.NoError(t, inventory.AddNft(ctx, "0", `{"nftId":"a"}`))
	require.NoError(t, inventory.AddNft(ctx, "0", `{"nftId":"b"}`))
	require.NoError(t, inventory.AddToken(ctx, 100))

	// Draws come out in provisioning order.
	descriptor, ok, err := inventory.DrawNft(ctx, "0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"nftId":"a"}`, descriptor)

	amount, ok, err := inventory.DrawToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 100, amount)

	// Sold-out queues report absence, not errors.
	_, ok, err = inventory.DrawToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
