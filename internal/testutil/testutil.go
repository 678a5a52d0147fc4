// Package testutil provides shared helpers for tests: a temp-dir audit store
// and mock Azure backend servers.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/tetherhq/tether/internal/audit"
)

// NewTestAuditStore creates an audit store in a temp dir and registers
// t.Cleanup to close it.
func NewTestAuditStore(t *testing.T) *audit.Store {
	t.Helper()
	store, err := audit.NewStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// MockFunctionServer returns an httptest server that answers every request
// with the given JSON body and status and registers t.Cleanup to close it.
func MockFunctionServer(t *testing.T, status int, body map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// MockWorkflowServer returns an httptest server that accepts trigger posts
// with 202 and an empty body, the way Logic App triggers commonly respond.
func MockWorkflowServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)
	return srv
}
