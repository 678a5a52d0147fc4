package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflowTestServer(t *testing.T, handler http.HandlerFunc, opts ...WorkflowOption) *WorkflowClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	opts = append(opts, WithWorkflowHTTPClient(ts.Client()))
	client, err := NewWorkflowClient(WorkflowConfig{URL: ts.URL}, opts...)
	require.NoError(t, err)
	return client
}

func TestWorkflowConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WorkflowConfig
		wantErr bool
	}{
		{"https url", WorkflowConfig{URL: "https://prod-123.eastus.logic.azure.com/workflows/abc"}, false},
		{"bad scheme", WorkflowConfig{URL: "ftp://bad"}, true},
		{"timeout upper bound", WorkflowConfig{URL: "https://x", Timeout: 600}, false},
		{"timeout too high", WorkflowConfig{URL: "https://x", Timeout: 601}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWorkflowClient(tt.cfg)
			if tt.wantErr {
				var cfgErr *ConfigError
				require.Error(t, err)
				assert.ErrorAs(t, err, &cfgErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkflowConfig_TimeoutDefault(t *testing.T) {
	client, err := NewWorkflowClient(WorkflowConfig{URL: "https://prod-1.logic.azure.com/wf"})
	require.NoError(t, err)
	assert.Equal(t, 60, client.Config().Timeout)
}

func TestWorkflowTrigger_JSONResponse(t *testing.T) {
	client := newWorkflowTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "process", payload["action"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"run_id": "run-42"})
	})

	result, err := client.Trigger(context.Background(), map[string]any{"action": "process"})
	require.NoError(t, err)
	assert.Equal(t, "run-42", result["run_id"])
}

func TestWorkflowTrigger_EmptyBodyIsSoftSuccess(t *testing.T) {
	client := newWorkflowTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	result, err := client.Trigger(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "triggered", result["status"])
	assert.Equal(t, http.StatusAccepted, result["status_code"])
}

func TestWorkflowTrigger_NonJSONBodyIsSoftSuccess(t *testing.T) {
	client := newWorkflowTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("accepted"))
	})

	result, err := client.Trigger(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "triggered", result["status"])
	assert.Equal(t, http.StatusOK, result["status_code"])
}

func TestWorkflowTrigger_HTTPError(t *testing.T) {
	client := newWorkflowTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	_, err := client.Trigger(context.Background(), map[string]any{})
	var herr *HTTPError
	require.Error(t, err)
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusBadGateway, herr.StatusCode)
}

func TestWorkflowTrigger_KeyHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "wf-key", r.Header.Get(WorkflowKeyHeader))
		assert.Empty(t, r.Header.Get(FunctionKeyHeader))
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(ts.Close)

	client, err := NewWorkflowClient(
		WorkflowConfig{URL: ts.URL, Key: "wf-key"},
		WithWorkflowHTTPClient(ts.Client()),
	)
	require.NoError(t, err)

	_, err = client.Trigger(context.Background(), map[string]any{})
	require.NoError(t, err)
}

func TestWorkflowTriggerAsync_DeliversResult(t *testing.T) {
	client := newWorkflowTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	res := <-client.TriggerAsync(context.Background(), map[string]any{})
	require.NoError(t, res.Err)
	assert.Equal(t, "triggered", res.Result["status"])
}
