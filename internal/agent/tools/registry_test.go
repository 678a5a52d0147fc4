package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return NewFuncTool(name, "echoes its params", nil,
		func(_ context.Context, params map[string]any) (map[string]any, error) {
			return params, nil
		})
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFuncTool("search", "Search tool", nil, nil))

	tool, err := r.Resolve("search")
	require.NoError(t, err)
	assert.Equal(t, "search", tool.Name())
	assert.Equal(t, "Search tool", tool.Description())
}

func TestRegistry_ResolveMissing(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("alpha"))
	r.Register(echoTool("beta"))

	_, err := r.Resolve("gamma")
	var nfe *NotFoundError
	require.Error(t, err)
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "gamma", nfe.Name)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, nfe.Known)
}

func TestRegistry_ResolveMissingEmpty(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("anything")
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Empty(t, nfe.Known)
}

func TestRegistry_NamesPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("zeta"))
	r.Register(echoTool("alpha"))
	r.Register(echoTool("mid"))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Names())
}

func TestRegistry_OverwriteListsNameOnce(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFuncTool("search", "v1", nil, nil))
	r.Register(echoTool("other"))
	r.Register(NewFuncTool("search", "v2", nil, nil))

	assert.Equal(t, []string{"search", "other"}, r.Names())

	desc, ok := r.Description("search")
	require.True(t, ok)
	assert.Equal(t, "v2", desc)
}

func TestRegistry_DescriptionMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Description("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_All(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a"))
	r.Register(echoTool("b"))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name())
	assert.Equal(t, "b", all[1].Name())
}

func TestFuncTool_Invoke(t *testing.T) {
	tool := NewFuncTool("fail", "always fails", nil,
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, errors.New("boom")
		})

	_, err := tool.Invoke(context.Background(), map[string]any{})
	assert.EqualError(t, err, "boom")
}

func TestHTTPTool_ForwardsParamsVerbatim(t *testing.T) {
	var got map[string]any
	tool := NewHTTPTool("fn", "forwards", nil,
		func(_ context.Context, params map[string]any) (map[string]any, error) {
			got = params
			return map[string]any{"ok": true}, nil
		})

	result, err := tool.Invoke(context.Background(), map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1}, got)
	assert.Equal(t, map[string]any{"ok": true}, result)
}

func TestHTTPTool_DefaultSchemaIsPayloadObject(t *testing.T) {
	tool := NewHTTPTool("fn", "d", nil, nil)
	schema := tool.InputSchema()
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "payload")
}
