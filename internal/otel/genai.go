package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

// GenAI Semantic Conventions for agent and tool observability
// Based on OpenTelemetry GenAI SIG conventions

const (
	// Agent system attributes
	GenAISystem       = attribute.Key("gen_ai.system")        // e.g., "azure_ai_foundry"
	GenAIRequestModel = attribute.Key("gen_ai.request.model") // e.g., "gpt-4"
	GenAIAgentID      = attribute.Key("gen_ai.agent.id")
	GenAIThreadID     = attribute.Key("gen_ai.thread.id")

	// Tool-calling attributes
	GenAIToolName   = attribute.Key("gen_ai.tool.name")
	GenAIToolCallID = attribute.Key("gen_ai.tool.call_id")

	// Dispatch attributes (tether-specific)
	ToolDispatchMode    = attribute.Key("tool.dispatch.mode") // "strict" or "soft"
	ToolDispatchOutcome = attribute.Key("tool.dispatch.outcome")
)

// ToolDispatchAttributes creates standard attributes for a tool dispatch span.
func ToolDispatchAttributes(name, mode string) []attribute.KeyValue {
	return []attribute.KeyValue{
		GenAIToolName.String(name),
		ToolDispatchMode.String(mode),
	}
}
