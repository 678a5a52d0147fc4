package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tetherhq/tether/internal/identity"
)

const (
	// WorkflowKeyHeader carries the static workflow key. Kept distinct from
	// FunctionKeyHeader so per-backend auth schemes stay explicit.
	WorkflowKeyHeader = "x-workflow-key"

	defaultWorkflowTimeout = 60
	maxWorkflowTimeout     = 600
)

// WorkflowStatus is a Logic App workflow run status as reported by the
// management API.
type WorkflowStatus string

const (
	WorkflowRunning   WorkflowStatus = "Running"
	WorkflowSucceeded WorkflowStatus = "Succeeded"
	WorkflowFailed    WorkflowStatus = "Failed"
	WorkflowCancelled WorkflowStatus = "Cancelled"
	WorkflowWaiting   WorkflowStatus = "Waiting"
)

// WorkflowConfig describes how to reach one Logic App workflow trigger.
// The SubscriptionID/ResourceGroup/WorkflowName triple identifies the
// workflow for management operations and is informational here.
type WorkflowConfig struct {
	// URL is the workflow's HTTP trigger URL. Must start with http:// or https://.
	URL string
	// Key is the optional workflow key, sent as x-workflow-key.
	Key string
	// UseManagedIdentity attaches a bearer token from the client's TokenProvider.
	UseManagedIdentity bool
	// Timeout is the request timeout in seconds, 1–600. Zero means 60.
	// Workflows get a wider bound than functions because trigger chains can
	// run long before the trigger call returns.
	Timeout int

	SubscriptionID string
	ResourceGroup  string
	WorkflowName   string
}

func (c *WorkflowConfig) validate() error {
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return &ConfigError{Field: "url", Reason: "must start with http:// or https://"}
	}
	if c.Timeout == 0 {
		c.Timeout = defaultWorkflowTimeout
	}
	if c.Timeout < 1 || c.Timeout > maxWorkflowTimeout {
		return &ConfigError{Field: "timeout", Reason: "must be between 1 and 600 seconds"}
	}
	return nil
}

// WorkflowClient triggers a single Logic App workflow.
type WorkflowClient struct {
	cfg        WorkflowConfig
	httpClient *http.Client
	creds      identity.TokenProvider
}

// WorkflowOption configures a WorkflowClient.
type WorkflowOption func(*WorkflowClient)

// WithWorkflowHTTPClient overrides the HTTP client (used by tests).
func WithWorkflowHTTPClient(hc *http.Client) WorkflowOption {
	return func(c *WorkflowClient) { c.httpClient = hc }
}

// WithWorkflowTokenProvider injects the credential source used when
// UseManagedIdentity is set.
func WithWorkflowTokenProvider(tp identity.TokenProvider) WorkflowOption {
	return func(c *WorkflowClient) { c.creds = tp }
}

// NewWorkflowClient validates cfg and returns a client bound to it.
func NewWorkflowClient(cfg WorkflowConfig, opts ...WorkflowOption) (*WorkflowClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &WorkflowClient{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	log.Debug().Str("url", cfg.URL).Bool("managed_identity", cfg.UseManagedIdentity).
		Msg("workflow_client_initialized")
	return c, nil
}

// Config returns the immutable configuration the client was built with.
func (c *WorkflowClient) Config() WorkflowConfig { return c.cfg }

func (c *WorkflowClient) headers(ctx context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if c.cfg.Key != "" {
		h.Set(WorkflowKeyHeader, c.cfg.Key)
	}
	if c.cfg.UseManagedIdentity && c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return nil, &TransportError{URL: c.cfg.URL, Err: err}
		}
		h.Set("Authorization", "Bearer "+token)
	}
	return h, nil
}

// Trigger POSTs payload to the workflow trigger URL. Unlike function
// endpoints, workflow triggers routinely answer 202 Accepted with an empty
// body, so a 2xx response that does not parse as JSON is a soft success of
// the form {"status": "triggered", "status_code": <code>}.
func (c *WorkflowClient) Trigger(ctx context.Context, payload map[string]any) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "azure.workflow.trigger",
		trace.WithAttributes(attribute.String("url.full", c.cfg.URL)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Second)
	defer cancel()

	status, body, err := doJSON(ctx, c.httpClient, http.MethodPost, c.cfg.URL, payload, c.headers)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("url", c.cfg.URL).Msg("workflow_trigger_failed")
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		result = map[string]any{"status": "triggered", "status_code": status}
	}

	log.Info().Str("url", c.cfg.URL).Int("status", status).Msg("workflow_triggered")
	return result, nil
}

// TriggerAsync issues Trigger on a goroutine and delivers the outcome on the
// returned channel. Exactly one value is sent and the channel is then closed.
func (c *WorkflowClient) TriggerAsync(ctx context.Context, payload map[string]any) <-chan InvokeResult {
	out := make(chan InvokeResult, 1)
	go func() {
		defer close(out)
		result, err := c.Trigger(ctx, payload)
		out <- InvokeResult{Result: result, Err: err}
	}()
	return out
}
