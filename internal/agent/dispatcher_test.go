package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetherhq/tether/internal/agent/tools"
	"github.com/tetherhq/tether/internal/testutil"
)

func echoTool(name string) tools.Tool {
	return tools.NewFuncTool(name, "echoes params", nil,
		func(_ context.Context, params map[string]any) (map[string]any, error) {
			return params, nil
		})
}

func failingTool(name string, err error) tools.Tool {
	return tools.NewFuncTool(name, "always fails", nil,
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, err
		})
}

func TestDispatchStrictSuccess(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(echoTool("echo"))
	d := NewDispatcher(registry, ModeStrict)

	result, err := d.Dispatch(context.Background(), "echo", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1}, result)
}

func TestDispatchStrictPropagatesInvocationError(t *testing.T) {
	boom := errors.New("backend exploded")
	registry := tools.NewRegistry()
	registry.Register(failingTool("broken", boom))
	d := NewDispatcher(registry, ModeStrict)

	result, err := d.Dispatch(context.Background(), "broken", nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
}

func TestDispatchSoftConvertsInvocationError(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(failingTool("broken", errors.New("backend exploded")))
	d := NewDispatcher(registry, ModeSoft)

	result, err := d.Dispatch(context.Background(), "broken", nil)
	require.NoError(t, err)
	assert.Equal(t, "failed", result["status"])
	assert.Equal(t, "backend exploded", result["error"])
}

func TestDispatchUnknownToolFailsInBothModes(t *testing.T) {
	for _, mode := range []Mode{ModeStrict, ModeSoft} {
		t.Run(mode.String(), func(t *testing.T) {
			registry := tools.NewRegistry()
			registry.Register(echoTool("echo"))
			d := NewDispatcher(registry, mode)

			result, err := d.Dispatch(context.Background(), "missing", nil)
			assert.Nil(t, result)

			var notFound *tools.NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, "missing", notFound.Name)
			assert.Equal(t, []string{"echo"}, notFound.Known)
		})
	}
}

func TestDispatchUnknownToolEmptyRegistry(t *testing.T) {
	d := NewDispatcher(tools.NewRegistry(), ModeSoft)

	_, err := d.Dispatch(context.Background(), "anything", nil)
	var notFound *tools.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, notFound.Known)
}

func TestDispatchRecordsAudit(t *testing.T) {
	store := testutil.NewTestAuditStore(t)

	registry := tools.NewRegistry()
	registry.Register(echoTool("echo"))
	registry.Register(failingTool("broken", errors.New("backend exploded")))
	d := NewDispatcher(registry, ModeSoft, WithAuditStore(store))

	_, err := d.Dispatch(context.Background(), "echo", map[string]any{"x": 1})
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), "broken", nil)
	require.NoError(t, err)

	records, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "broken", records[0].Tool)
	assert.Equal(t, "failed", records[0].Outcome)
	assert.Equal(t, "backend exploded", records[0].Error)
	assert.Equal(t, "soft", records[0].Mode)
	assert.Equal(t, "echo", records[1].Tool)
	assert.Equal(t, "success", records[1].Outcome)
}

func TestTruncateParams(t *testing.T) {
	small := truncateParams(map[string]any{"a": "b"})
	assert.Equal(t, `{"a":"b"}`, small)

	big := make([]byte, 1024)
	for i := range big {
		big[i] = 'z'
	}
	long := truncateParams(map[string]any{"blob": string(big)})
	assert.LessOrEqual(t, len(long), maxParamsLogBytes+len("...(truncated)"))
	assert.Contains(t, long, "...(truncated)")
}
