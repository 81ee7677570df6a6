package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pubsubmem "blobmux/internal/core/pubsub/memory"
	storagemem "blobmux/internal/core/storage/memory"
	"blobmux/internal/core/storage/mux"
	"blobmux/internal/core/storage/scrub"
	"blobmux/internal/core/storage/types"
	"blobmux/internal/healer"
)

var _ scrub.Handler = (*RepairReporter)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRepairReporter(t *testing.T) {
	ctx := context.Background()
	pub := pubsubmem.NewPublisher()
	reporter := NewRepairReporter(pub, discardLogger())

	reporter.OnRepair(ctx, "beta", "k1", true)
	reporter.OnRepair(ctx, "gamma", "k2", false)

	messages := pub.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, SubjectRepair, messages[0].Subject)

	var ev RepairEvent
	require.NoError(t, json.Unmarshal(messages[0].Data, &ev))
	assert.Equal(t, "beta", string(ev.StoreID))
	assert.Equal(t, "k1", ev.Key)
	assert.True(t, ev.Repaired)
	assert.NotZero(t, ev.Timestamp)

	require.NoError(t, json.Unmarshal(messages[1].Data, &ev))
	assert.False(t, ev.Repaired)
}

func TestRepairReporterAsScrubHandler(t *testing.T) {
	ctx := context.Background()
	value := types.NewBlobValue([]byte("payload"))

	alpha, beta := storagemem.NewBlobStore(), storagemem.NewBlobStore()
	require.NoError(t, alpha.Put(ctx, "k1", value))

	queue := storagemem.NewSyncQueue()
	inner := mux.NewStore([]types.Replica{
		{ID: "alpha", Store: alpha},
		{ID: "beta", Store: beta},
	}, queue, mux.NewTelemetry(0, 1), discardLogger())

	pub := pubsubmem.NewPublisher()
	store := scrub.NewStore(inner, queue, scrub.Repair, NewRepairReporter(pub, discardLogger()), discardLogger())

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, value.Checksum, got.Checksum)

	messages := pub.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, SubjectRepair, messages[0].Subject)

	var ev RepairEvent
	require.NoError(t, json.Unmarshal(messages[0].Data, &ev))
	assert.Equal(t, types.StoreID("beta"), ev.StoreID)
	assert.Equal(t, "k1", ev.Key)
	assert.True(t, ev.Repaired)
}

func TestPassObserver(t *testing.T) {
	ctx := context.Background()
	pub := pubsubmem.NewPublisher()
	observe := NewPassObserver(pub, true, discardLogger())

	observe(ctx, healer.PassStats{
		Entries:    5,
		Keys:       3,
		Reconciled: 2,
		Copies:     2,
		Stuck:      1,
		Failures:   0,
	})

	messages := pub.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, SubjectHeal, messages[0].Subject)

	var ev HealEvent
	require.NoError(t, json.Unmarshal(messages[0].Data, &ev))
	assert.Equal(t, 5, ev.Entries)
	assert.Equal(t, 3, ev.Keys)
	assert.Equal(t, 2, ev.Reconciled)
	assert.Equal(t, 1, ev.Stuck)
	assert.True(t, ev.DryRun)
	assert.NotZero(t, ev.Timestamp)
}
