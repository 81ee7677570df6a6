package healer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobmux/internal/core/storage/memory"
	"blobmux/internal/core/storage/types"
	"blobmux/internal/ratelimit"
)

func TestDryRunTopology(t *testing.T) {
	ctx := context.Background()
	value := types.NewBlobValue([]byte("payload"))

	t.Run("reads pass through", func(t *testing.T) {
		alpha := memory.NewBlobStore()
		require.NoError(t, alpha.Put(ctx, "k1", value))

		replicas, queue, _ := NewDryRunTopology(
			[]types.Replica{{ID: "alpha", Store: alpha}},
			memory.NewSyncQueue(),
			discardLogger(),
		)

		got, err := replicas[0].Store.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, value.Checksum, got.Checksum)

		ok, err := replicas[0].Store.Contains(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, ok)

		batch, err := queue.FetchBatch(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, batch)
	})

	t.Run("writes are suppressed and counted", func(t *testing.T) {
		alpha := memory.NewBlobStore()
		inner := memory.NewSyncQueue()
		replicas, queue, rec := NewDryRunTopology(
			[]types.Replica{{ID: "alpha", Store: alpha}},
			inner,
			discardLogger(),
		)

		require.NoError(t, replicas[0].Store.Put(ctx, "k1", value))
		status, err := replicas[0].Store.PutExplicit(ctx, "k2", value, types.OverwriteIfMissing)
		require.NoError(t, err)
		assert.Equal(t, types.StatusWritten, status)

		require.NoError(t, queue.Add(ctx, []types.SyncQueueEntry{{ID: "e1", StoreID: "alpha", Key: "k1"}}))
		require.NoError(t, queue.Acknowledge(ctx, []types.SyncQueueEntry{{ID: "e1", StoreID: "alpha", Key: "k1"}}))

		assert.Equal(t, 0, alpha.Len())
		assert.Equal(t, 0, inner.Len())
		assert.Equal(t, int64(2), rec.Puts())
		assert.Equal(t, int64(1), rec.Adds())
		assert.Equal(t, int64(1), rec.Acks())
		assert.Equal(t, int64(4), rec.Total())
	})
}

func TestDryRunPass(t *testing.T) {
	ctx := context.Background()
	value := types.NewBlobValue([]byte("payload"))

	alpha, beta := memory.NewBlobStore(), memory.NewBlobStore()
	require.NoError(t, alpha.Put(ctx, "k1", value))

	inner := memory.NewSyncQueue()
	require.NoError(t, inner.Add(ctx, []types.SyncQueueEntry{queueEntry("e1", "beta", "k1")}))

	replicas, queue, rec := NewDryRunTopology(
		[]types.Replica{
			{ID: "alpha", Store: alpha},
			{ID: "beta", Store: beta},
		},
		inner,
		discardLogger(),
	)

	cfg := testConfig()
	cfg.DryRun = true
	h := New(replicas, queue, ratelimit.Unlimited(), cfg, discardLogger())

	var stats PassStats
	h.OnPass(func(ctx context.Context, s PassStats) { stats = s })
	require.NoError(t, h.Run(ctx))

	// The pass reports what it would have done without doing it.
	assert.Equal(t, 1, stats.Reconciled)
	assert.Equal(t, 1, stats.Copies)
	assert.Equal(t, 0, beta.Len())
	assert.Equal(t, 1, inner.Len())
	assert.Equal(t, int64(1), rec.Puts())
	assert.Equal(t, int64(1), rec.Acks())
}
