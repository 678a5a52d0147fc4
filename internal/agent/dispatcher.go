package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tetherhq/tether/internal/agent/tools"
	"github.com/tetherhq/tether/internal/audit"
	tetherotel "github.com/tetherhq/tether/internal/otel"
)

var tracer = tetherotel.Tracer("github.com/tetherhq/tether/internal/agent")

// Mode selects how the dispatcher reports invocation failures.
type Mode int

const (
	// ModeStrict propagates invocation errors unchanged. Used by
	// programmatic callers that handle errors themselves.
	ModeStrict Mode = iota
	// ModeSoft converts invocation errors into a structured
	// {"error": ..., "status": "failed"} result. Used by the LLM
	// tool-calling loop, which cannot tolerate errors crossing the boundary.
	ModeSoft
)

func (m Mode) String() string {
	if m == ModeSoft {
		return "soft"
	}
	return "strict"
}

// maxParamsLogBytes bounds the params view written to the log.
const maxParamsLogBytes = 256

// Dispatcher is the single entry point for executing a registered tool by
// name. Resolution misses always propagate as *tools.NotFoundError in both
// modes; only invocation-time failures are mode-dependent.
type Dispatcher struct {
	registry *tools.Registry
	mode     Mode
	audit    *audit.Store
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithAuditStore persists every dispatch attempt as an invocation record.
func WithAuditStore(store *audit.Store) DispatcherOption {
	return func(d *Dispatcher) { d.audit = store }
}

// NewDispatcher creates a dispatcher over registry with the given failure mode.
func NewDispatcher(registry *tools.Registry, mode Mode, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: registry, mode: mode}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Mode returns the dispatcher's failure mode.
func (d *Dispatcher) Mode() Mode { return d.mode }

// Registry returns the underlying tool registry.
func (d *Dispatcher) Registry() *tools.Registry { return d.registry }

// Dispatch resolves name and invokes the tool with params.
//
// An unknown name fails with *tools.NotFoundError regardless of mode — it is
// a caller bug, not a backend failure. Invocation errors follow the mode:
// strict re-raises them unchanged, soft returns
// {"error": <message>, "status": "failed"} as a normal result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "tool.dispatch",
		trace.WithAttributes(tetherotel.ToolDispatchAttributes(name, d.mode.String())...))
	defer span.End()

	start := time.Now()

	tool, err := d.registry.Resolve(name)
	if err != nil {
		span.SetStatus(codes.Error, "tool not found")
		span.RecordError(err)
		log.Error().Str("tool", name).Func(tetherotel.LogTraceFields(ctx)).
			Msg("tool_not_found")
		d.record(ctx, name, "failed", err.Error(), start)
		return nil, err
	}

	log.Info().Str("tool", name).Str("mode", d.mode.String()).
		Str("params", truncateParams(params)).
		Func(tetherotel.LogTraceFields(ctx)).
		Msg("tool_dispatched")

	result, err := tool.Invoke(ctx, params)
	if err != nil {
		span.SetStatus(codes.Error, "invocation failed")
		span.SetAttributes(tetherotel.ToolDispatchOutcome.String("failed"))
		span.RecordError(err)
		log.Error().Err(err).Str("tool", name).Str("mode", d.mode.String()).
			Func(tetherotel.LogTraceFields(ctx)).
			Msg("tool_invocation_failed")
		d.record(ctx, name, "failed", err.Error(), start)

		if d.mode == ModeSoft {
			return map[string]any{"error": err.Error(), "status": "failed"}, nil
		}
		return nil, err
	}

	span.SetAttributes(tetherotel.ToolDispatchOutcome.String("success"))
	log.Info().Str("tool", name).Func(tetherotel.LogTraceFields(ctx)).
		Msg("tool_invocation_succeeded")
	d.record(ctx, name, "success", "", start)
	return result, nil
}

func (d *Dispatcher) record(ctx context.Context, name, outcome, errMsg string, start time.Time) {
	if d.audit == nil {
		return
	}
	traceID, _ := tetherotel.TraceContextFrom(ctx)
	inv := &audit.Invocation{
		ID:         uuid.NewString(),
		Timestamp:  start.UTC(),
		Tool:       name,
		Mode:       d.mode.String(),
		Outcome:    outcome,
		Error:      errMsg,
		DurationMS: time.Since(start).Milliseconds(),
		TraceID:    traceID,
	}
	if err := d.audit.Record(ctx, inv); err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("audit_record_failed")
	}
}

// truncateParams renders params as JSON bounded to maxParamsLogBytes so
// large payloads never flood the log.
func truncateParams(params map[string]any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		return "<unserializable>"
	}
	if len(raw) > maxParamsLogBytes {
		return string(raw[:maxParamsLogBytes]) + "...(truncated)"
	}
	return string(raw)
}
