package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
)

func TestMemoryStoreRingBuffer(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Append(ctx, Record{ActionID: id}))
	}
	assert.Equal(t, 3, store.Len())

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b"}, actionIDs(recent))

	recent, err = store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c"}, actionIDs(recent))
}

func TestMemoryStoreEmpty(t *testing.T) {
	store := NewMemoryStore(0)
	recent, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
	assert.Equal(t, 0, store.Len())
}

func TestJournalRecordsActionEvents(t *testing.T) {
	bus := events.NewBus(logger.Discard())
	store := NewMemoryStore(8)
	j := New(store, bus, logger.Discard())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.Publish(events.ActionExecuted{InvocationID: "inv-1", ActionID: "basicactions.map", Success: true, Message: "ok", Kind: "success", At: at, Duration: 12 * time.Millisecond})

	recent, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.NotEmpty(t, recent[0].ID)
	assert.Equal(t, "inv-1", recent[0].InvocationID)
	assert.Equal(t, at, recent[0].At)

	require.NoError(t, j.Close())
	bus.Publish(events.ActionExecuted{ActionID: "after.close"})
	assert.Equal(t, 1, store.Len())
}

type failingStore struct{ MemoryStore }

func (*failingStore) Append(context.Context, Record) error { return errors.New("disk full") }

func TestJournalStoreFailureDoesNotPanic(t *testing.T) {
	bus := events.NewBus(logger.Discard())
	New(&failingStore{}, bus, logger.Discard())
	assert.NotPanics(t, func() { bus.Publish(events.ActionExecuted{ActionID: "x"}) })
}

func actionIDs(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ActionID)
	}
	return out
}
