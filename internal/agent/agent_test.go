package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetherhq/tether/internal/azure"
	"github.com/tetherhq/tether/internal/foundry"
	"github.com/tetherhq/tether/internal/identity"
	"github.com/tetherhq/tether/internal/testutil"
)

// fakeFoundry records calls and drives the tool dispatcher like a real run
// with a requires_action step.
type fakeFoundry struct {
	createdSpec foundry.AgentSpec
	deletedID   string
	toolCalls   []string
	reply       string
}

func (f *fakeFoundry) CreateAgent(_ context.Context, spec foundry.AgentSpec) (string, error) {
	f.createdSpec = spec
	return "agent-123", nil
}

func (f *fakeFoundry) RunAgent(ctx context.Context, _, _, threadID string, dispatch foundry.ToolDispatcher) (string, string, error) {
	for _, name := range f.toolCalls {
		result, err := dispatch(ctx, name, map[string]any{"payload": map[string]any{}})
		if err != nil {
			return "", "", err
		}
		if result == nil {
			return "", "", errors.New("nil tool result")
		}
	}
	if threadID == "" {
		threadID = "thread-456"
	}
	return f.reply, threadID, nil
}

func (f *fakeFoundry) DeleteAgent(_ context.Context, agentID string) error {
	f.deletedID = agentID
	return nil
}

func TestNewAppliesDefaults(t *testing.T) {
	a := New(Config{ProjectEndpoint: "https://proj.example.com"})

	assert.Equal(t, DefaultModel, a.cfg.Model)
	assert.Equal(t, DefaultInstructions, a.cfg.Instructions)
	assert.Empty(t, a.ListTools())
}

func TestRegisterFunctionTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(azure.FunctionKeyHeader))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	a := New(Config{})
	err := a.RegisterFunctionTool("fn", azure.FunctionConfig{URL: srv.URL, Key: "secret"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"fn"}, a.ListTools())

	desc, ok := a.Registry().Description("fn")
	require.True(t, ok)
	assert.Contains(t, desc, "Azure Function tool: fn")
	assert.Contains(t, desc, srv.URL)

	result, err := a.Dispatch(context.Background(), "fn", map[string]any{"q": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, result)
}

func TestRegisterFunctionToolInvalidConfig(t *testing.T) {
	a := New(Config{})
	err := a.RegisterFunctionTool("bad", azure.FunctionConfig{URL: "ftp://nope"}, "")

	var cfgErr *azure.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, a.ListTools())
}

func TestRegisterWorkflowTool(t *testing.T) {
	srv := testutil.MockWorkflowServer(t)

	a := New(Config{})
	err := a.RegisterWorkflowTool("wf", azure.WorkflowConfig{URL: srv.URL}, "approval flow")
	require.NoError(t, err)

	desc, ok := a.Registry().Description("wf")
	require.True(t, ok)
	assert.Equal(t, "approval flow", desc)

	result, err := a.Dispatch(context.Background(), "wf", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "triggered", result["status"])
}

func TestFunctionToolBackendFailure(t *testing.T) {
	srv := testutil.MockFunctionServer(t, http.StatusInternalServerError, map[string]any{"detail": "boom"})

	a := New(Config{})
	require.NoError(t, a.RegisterFunctionTool("flaky", azure.FunctionConfig{URL: srv.URL}, ""))

	_, err := a.Dispatch(context.Background(), "flaky", map[string]any{})
	var httpErr *azure.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
}

func TestRegisterCustomTool(t *testing.T) {
	a := New(Config{})
	a.RegisterCustomTool("add", "adds two numbers", nil,
		func(_ context.Context, params map[string]any) (map[string]any, error) {
			x, _ := params["x"].(float64)
			y, _ := params["y"].(float64)
			return map[string]any{"sum": x + y}, nil
		})

	result, err := a.Dispatch(context.Background(), "add", map[string]any{"x": 2.0, "y": 3.0})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"sum": 5.0}, result)
}

func TestCreateAgentAdvertisesRegisteredTools(t *testing.T) {
	fake := &fakeFoundry{reply: "done"}
	a := New(Config{Model: "gpt-4o"}, WithFoundryClient(fake))
	a.RegisterCustomTool("first", "first tool", nil, nil)
	a.RegisterCustomTool("second", "second tool", nil, nil)

	id, err := a.CreateAgent(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "agent-123", id)
	assert.Equal(t, DefaultAgentName, fake.createdSpec.Name)
	assert.Equal(t, "gpt-4o", fake.createdSpec.Model)
	assert.Equal(t, DefaultInstructions, fake.createdSpec.Instructions)

	require.Len(t, fake.createdSpec.Tools, 2)
	assert.Equal(t, "first", fake.createdSpec.Tools[0].Name)
	assert.Equal(t, "second", fake.createdSpec.Tools[1].Name)
	assert.NotNil(t, fake.createdSpec.Tools[0].Schema)
}

func TestRunAgentServicesToolCallsSoftly(t *testing.T) {
	fake := &fakeFoundry{reply: "all good", toolCalls: []string{"broken"}}
	a := New(Config{}, WithFoundryClient(fake))
	a.RegisterCustomTool("broken", "always fails", nil,
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, errors.New("backend exploded")
		})

	// Tool failure must not abort the run; the soft facade turns it
	// into a structured result.
	reply, threadID, err := a.RunAgent(context.Background(), "agent-123", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "all good", reply)
	assert.Equal(t, "thread-456", threadID)
}

func TestRunAgentKeepsThreadID(t *testing.T) {
	fake := &fakeFoundry{reply: "again"}
	a := New(Config{}, WithFoundryClient(fake))

	_, threadID, err := a.RunAgent(context.Background(), "agent-123", "hi", "thread-existing")
	require.NoError(t, err)
	assert.Equal(t, "thread-existing", threadID)
}

func TestDeleteAgent(t *testing.T) {
	fake := &fakeFoundry{}
	a := New(Config{}, WithFoundryClient(fake))

	require.NoError(t, a.DeleteAgent(context.Background(), "agent-123"))
	assert.Equal(t, "agent-123", fake.deletedID)
}

func TestFoundryClientRequiresEndpoint(t *testing.T) {
	a := New(Config{})

	_, err := a.CreateAgent(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project endpoint")
}

func TestFoundryClientManagedIdentityNeedsProvider(t *testing.T) {
	a := New(Config{ProjectEndpoint: "https://proj.example.com", UseManagedIdentity: true})

	_, err := a.CreateAgent(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token provider")
}

func TestFoundryClientManagedIdentityUsesProvider(t *testing.T) {
	a := New(Config{ProjectEndpoint: "https://proj.example.com", UseManagedIdentity: true},
		WithTokenProvider(identity.NewStaticTokenProvider("tok-abc")))

	client, err := a.foundryClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
}
