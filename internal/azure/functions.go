// Package azure provides HTTP clients for the two Azure backends tether can
// expose as agent tools: HTTP-triggered Functions and Logic App workflow
// triggers. Both clients speak plain JSON over HTTP; authentication is either
// a static key header or a bearer token from an injected identity.TokenProvider.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tetherhq/tether/internal/identity"
	tetherotel "github.com/tetherhq/tether/internal/otel"
)

var tracer = tetherotel.Tracer("github.com/tetherhq/tether/internal/azure")

const (
	// FunctionKeyHeader carries the static function key.
	FunctionKeyHeader = "x-functions-key"

	defaultFunctionTimeout = 30
	maxFunctionTimeout     = 300
)

// FunctionConfig describes how to reach one HTTP-triggered Azure Function.
// Constructed once per backend and immutable afterwards.
type FunctionConfig struct {
	// URL is the function's HTTP endpoint. Must start with http:// or https://.
	URL string
	// Key is the optional function key, sent as x-functions-key.
	Key string
	// UseManagedIdentity attaches a bearer token from the client's
	// TokenProvider instead of (or in addition to) the key.
	UseManagedIdentity bool
	// Timeout is the request timeout in seconds, 1–300. Zero means 30.
	Timeout int
}

func (c *FunctionConfig) validate() error {
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return &ConfigError{Field: "url", Reason: "must start with http:// or https://"}
	}
	if c.Timeout == 0 {
		c.Timeout = defaultFunctionTimeout
	}
	if c.Timeout < 1 || c.Timeout > maxFunctionTimeout {
		return &ConfigError{Field: "timeout", Reason: "must be between 1 and 300 seconds"}
	}
	return nil
}

// FunctionsClient invokes a single Azure Function endpoint.
type FunctionsClient struct {
	cfg        FunctionConfig
	httpClient *http.Client
	creds      identity.TokenProvider
}

// FunctionsOption configures a FunctionsClient.
type FunctionsOption func(*FunctionsClient)

// WithFunctionsHTTPClient overrides the HTTP client (used by tests).
func WithFunctionsHTTPClient(hc *http.Client) FunctionsOption {
	return func(c *FunctionsClient) { c.httpClient = hc }
}

// WithFunctionsTokenProvider injects the credential source used when
// UseManagedIdentity is set.
func WithFunctionsTokenProvider(tp identity.TokenProvider) FunctionsOption {
	return func(c *FunctionsClient) { c.creds = tp }
}

// NewFunctionsClient validates cfg and returns a client bound to it.
func NewFunctionsClient(cfg FunctionConfig, opts ...FunctionsOption) (*FunctionsClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &FunctionsClient{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	log.Debug().Str("url", cfg.URL).Bool("managed_identity", cfg.UseManagedIdentity).
		Msg("functions_client_initialized")
	return c, nil
}

// Config returns the immutable configuration the client was built with.
func (c *FunctionsClient) Config() FunctionConfig { return c.cfg }

func (c *FunctionsClient) headers(ctx context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if c.cfg.Key != "" {
		h.Set(FunctionKeyHeader, c.cfg.Key)
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

// Invoke POSTs payload to the function and returns the parsed JSON response.
// Function endpoints are required to answer 2xx with a JSON object; anything
// else is an error (see InvokeMethod for the error taxonomy).
func (c *FunctionsClient) Invoke(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return c.InvokeMethod(ctx, http.MethodPost, payload)
}

// InvokeMethod performs one request with the given HTTP method. Failures map
// to the package error types: network problems become *TransportError, non-2xx
// responses become *HTTPError, and a 2xx body that is not a JSON object
// becomes *ParseError.
func (c *FunctionsClient) InvokeMethod(ctx context.Context, method string, payload map[string]any) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "azure.function.invoke",
		trace.WithAttributes(attribute.String("url.full", c.cfg.URL)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Second)
	defer cancel()

	status, body, err := doJSON(ctx, c.httpClient, method, c.cfg.URL, payload, c.headers)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("url", c.cfg.URL).Msg("function_invocation_failed")
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		perr := &ParseError{URL: c.cfg.URL, Err: err}
		span.RecordError(perr)
		log.Error().Err(perr).Str("url", c.cfg.URL).Msg("function_response_not_json")
		return nil, perr
	}

	log.Info().Str("url", c.cfg.URL).Int("status", status).Msg("function_invoked")
	return result, nil
}

// InvokeResult carries the outcome of an asynchronous invocation.
type InvokeResult struct {
	Result map[string]any
	Err    error
}

// InvokeAsync issues Invoke on a goroutine and delivers the outcome on the
// returned channel. The contract is identical to Invoke; exactly one value is
// sent and the channel is then closed.
func (c *FunctionsClient) InvokeAsync(ctx context.Context, payload map[string]any) <-chan InvokeResult {
	out := make(chan InvokeResult, 1)
	go func() {
		defer close(out)
		result, err := c.Invoke(ctx, payload)
		out <- InvokeResult{Result: result, Err: err}
	}()
	return out
}

// doJSON executes one JSON request and returns the status code and body for
// any 2xx response. The response body is closed on every path.
func doJSON(ctx context.Context, hc *http.Client, method, url string, payload map[string]any, headers func(context.Context) (http.Header, error)) (int, []byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, &TransportError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(reqBody))
	if err != nil {
		return 0, nil, &TransportError{URL: url, Err: err}
	}
	h, err := headers(ctx)
	if err != nil {
		return 0, nil, err
	}
	req.Header = h

	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, nil, &HTTPError{URL: url, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.StatusCode, body, nil
}
