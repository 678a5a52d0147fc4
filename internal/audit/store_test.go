package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(tool, outcome string, at time.Time) *Invocation {
	return &Invocation{
		ID:         uuid.NewString(),
		Timestamp:  at,
		Tool:       tool,
		Mode:       "strict",
		Outcome:    outcome,
		DurationMS: 12,
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, store.Record(ctx, record("echo", "success", base)))
	require.NoError(t, store.Record(ctx, record("notify", "failed", base.Add(time.Second))))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "notify", got[0].Tool, "newest first")
	assert.Equal(t, "failed", got[0].Outcome)
	assert.Equal(t, "echo", got[1].Tool)
}

func TestStore_ByTool(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, store.Record(ctx, record("echo", "success", base)))
	require.NoError(t, store.Record(ctx, record("echo", "failed", base.Add(time.Second))))
	require.NoError(t, store.Record(ctx, record("notify", "success", base)))

	got, err := store.ByTool(ctx, "echo", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, inv := range got {
		assert.Equal(t, "echo", inv.Tool)
	}
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, record("echo", "success", base.Add(time.Duration(i)*time.Second))))
	}

	got, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
