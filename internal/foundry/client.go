// Package foundry talks to an Azure AI Foundry project through its
// OpenAI-compatible assistants surface: creating hosted agents, running
// threads, and bridging requires_action tool calls back into the local
// tool dispatcher.
package foundry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/trace"

	tetherotel "github.com/tetherhq/tether/internal/otel"
)

var tracer = tetherotel.Tracer("github.com/tetherhq/tether/internal/foundry")

const (
	// defaultPollInterval paces the run status poll loop.
	defaultPollInterval = 500 * time.Millisecond
	// maxRunPolls bounds a single run so a stuck backend cannot hang a
	// caller that forgot a context deadline.
	maxRunPolls = 600
)

// ToolDef is one function tool advertised to the hosted agent.
type ToolDef struct {
	Name        string
	Description string
	Schema      map[string]any
}

// AgentSpec describes the hosted agent to create.
type AgentSpec struct {
	Name         string
	Model        string
	Instructions string
	Tools        []ToolDef
}

// ToolDispatcher executes a tool call requested by a run and returns its
// result. Implementations must not return errors for tool-level failures;
// those belong inside the result so the run can continue.
type ToolDispatcher func(ctx context.Context, name string, params map[string]any) (map[string]any, error)

// Client is the hosted-agent surface the agent core depends on.
type Client interface {
	CreateAgent(ctx context.Context, spec AgentSpec) (string, error)
	RunAgent(ctx context.Context, agentID, message, threadID string, dispatch ToolDispatcher) (reply, outThreadID string, err error)
	DeleteAgent(ctx context.Context, agentID string) error
}

// ProjectClient implements Client against a Foundry project endpoint.
type ProjectClient struct {
	client       *openai.Client
	pollInterval time.Duration
}

// NewProjectClient creates a client for the project endpoint. endpoint is
// scheme+host without path; the client appends /v1 as needed. credential is
// either an API key or a bearer token from managed identity.
func NewProjectClient(endpoint, credential string) *ProjectClient {
	config := openai.DefaultConfig(credential)
	config.BaseURL = endpoint + "/v1"
	return &ProjectClient{
		client:       openai.NewClientWithConfig(config),
		pollInterval: defaultPollInterval,
	}
}

// newProjectClientWithClient injects a pre-configured client. Used in tests
// with httptest-backed servers.
func newProjectClientWithClient(client *openai.Client) *ProjectClient {
	return &ProjectClient{client: client, pollInterval: time.Millisecond}
}

// CreateAgent creates a hosted agent with the given model, instructions, and
// function tools, and returns its ID.
func (c *ProjectClient) CreateAgent(ctx context.Context, spec AgentSpec) (string, error) {
	ctx, span := tracer.Start(ctx, "gen_ai.agent.create",
		trace.WithAttributes(
			tetherotel.GenAISystem.String("azure_ai_foundry"),
			tetherotel.GenAIRequestModel.String(spec.Model),
		))
	defer span.End()

	assistantTools := make([]openai.AssistantTool, len(spec.Tools))
	for i, t := range spec.Tools {
		assistantTools[i] = openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		}
	}

	name := spec.Name
	instructions := spec.Instructions
	assistant, err := c.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        spec.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        assistantTools,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("create agent: %w", err)
	}
	span.SetAttributes(tetherotel.GenAIAgentID.String(assistant.ID))
	return assistant.ID, nil
}

// RunAgent posts message on threadID (creating a thread when empty), runs the
// agent, services requires_action tool calls through dispatch, and returns
// the newest assistant reply plus the thread ID for follow-up turns.
func (c *ProjectClient) RunAgent(ctx context.Context, agentID, message, threadID string, dispatch ToolDispatcher) (string, string, error) {
	ctx, span := tracer.Start(ctx, "gen_ai.agent.run",
		trace.WithAttributes(
			tetherotel.GenAISystem.String("azure_ai_foundry"),
			tetherotel.GenAIAgentID.String(agentID),
		))
	defer span.End()

	if threadID == "" {
		thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
		if err != nil {
			span.RecordError(err)
			return "", "", fmt.Errorf("create thread: %w", err)
		}
		threadID = thread.ID
	}
	span.SetAttributes(tetherotel.GenAIThreadID.String(threadID))

	if _, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: message,
	}); err != nil {
		span.RecordError(err)
		return "", "", fmt.Errorf("post message: %w", err)
	}

	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: agentID})
	if err != nil {
		span.RecordError(err)
		return "", "", fmt.Errorf("create run: %w", err)
	}

	run, err = c.waitForRun(ctx, threadID, run, dispatch)
	if err != nil {
		span.RecordError(err)
		return "", "", err
	}

	reply, err := c.latestAssistantText(ctx, threadID)
	if err != nil {
		span.RecordError(err)
		return "", "", err
	}
	return reply, threadID, nil
}

// waitForRun polls the run until it reaches a terminal state, submitting
// tool outputs whenever the run requires action.
func (c *ProjectClient) waitForRun(ctx context.Context, threadID string, run openai.Run, dispatch ToolDispatcher) (openai.Run, error) {
	for polls := 0; polls < maxRunPolls; polls++ {
		switch run.Status {
		case openai.RunStatusCompleted:
			return run, nil
		case openai.RunStatusRequiresAction:
			next, err := c.submitToolOutputs(ctx, threadID, run, dispatch)
			if err != nil {
				return run, err
			}
			run = next
			continue
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired:
			msg := string(run.Status)
			if run.LastError != nil {
				msg = fmt.Sprintf("%s: %s", run.Status, run.LastError.Message)
			}
			return run, fmt.Errorf("run %s: %s", run.ID, msg)
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		next, err := c.client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return run, fmt.Errorf("retrieve run: %w", err)
		}
		run = next
	}
	return run, fmt.Errorf("run %s: no terminal status after %d polls", run.ID, maxRunPolls)
}

func (c *ProjectClient) submitToolOutputs(ctx context.Context, threadID string, run openai.Run, dispatch ToolDispatcher) (openai.Run, error) {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return run, fmt.Errorf("run %s requires action but carries no tool calls", run.ID)
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		_, callSpan := tracer.Start(ctx, "gen_ai.tool.call",
			trace.WithAttributes(
				tetherotel.GenAIToolName.String(call.Function.Name),
				tetherotel.GenAIToolCallID.String(call.ID),
			))

		var params map[string]any
		if args := call.Function.Arguments; args != "" {
			if err := json.Unmarshal([]byte(args), &params); err != nil {
				callSpan.RecordError(err)
				callSpan.End()
				outputs = append(outputs, openai.ToolOutput{
					ToolCallID: call.ID,
					Output:     fmt.Sprintf(`{"error": "invalid tool arguments: %s"}`, err),
				})
				continue
			}
		}

		result, err := dispatch(ctx, call.Function.Name, params)
		if err != nil {
			// Unknown tool names still surface here; the run gets a
			// structured failure instead of aborting.
			result = map[string]any{"error": err.Error(), "status": "failed"}
		}
		raw, err := json.Marshal(result)
		if err != nil {
			raw = []byte(`{"error": "unserializable tool result"}`)
		}
		callSpan.End()
		outputs = append(outputs, openai.ToolOutput{ToolCallID: call.ID, Output: string(raw)})
	}

	next, err := c.client.SubmitToolOutputs(ctx, threadID, run.ID, openai.SubmitToolOutputsRequest{
		ToolOutputs: outputs,
	})
	if err != nil {
		return run, fmt.Errorf("submit tool outputs: %w", err)
	}
	return next, nil
}

// latestAssistantText returns the newest assistant message's text content.
func (c *ProjectClient) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	limit := 10
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, msg := range list.Messages {
		if msg.Role != string(openai.ThreadMessageRoleAssistant) {
			continue
		}
		for _, content := range msg.Content {
			if content.Text != nil {
				return content.Text.Value, nil
			}
		}
	}
	return "No response generated", nil
}

// DeleteAgent deletes the hosted agent.
func (c *ProjectClient) DeleteAgent(ctx context.Context, agentID string) error {
	ctx, span := tracer.Start(ctx, "gen_ai.agent.delete",
		trace.WithAttributes(tetherotel.GenAIAgentID.String(agentID)))
	defer span.End()

	if _, err := c.client.DeleteAssistant(ctx, agentID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete agent: %w", err)
	}
	return nil
}
