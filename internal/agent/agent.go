// Package agent wires the tool registry, the dispatch facade, and the
// Foundry hosted-agent client into one entry point. Callers register Azure
// backends (or plain Go functions) as named tools, then either dispatch them
// directly or hand the whole toolset to a hosted agent run.
package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tetherhq/tether/internal/agent/tools"
	"github.com/tetherhq/tether/internal/audit"
	"github.com/tetherhq/tether/internal/azure"
	"github.com/tetherhq/tether/internal/foundry"
	"github.com/tetherhq/tether/internal/identity"
)

const (
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "gpt-4"
	// DefaultInstructions seed the hosted agent when none are configured.
	DefaultInstructions = "You are a helpful AI assistant with access to Azure tools."
	// DefaultAgentName is used when CreateAgent is called with an empty name.
	DefaultAgentName = "Azure Tools Agent"
)

// Config configures an Agent.
type Config struct {
	// ProjectEndpoint is the Foundry project endpoint, scheme+host.
	ProjectEndpoint string
	// APIKey authenticates against the project when set.
	APIKey string
	// UseManagedIdentity sources the project credential from the token
	// provider instead of APIKey.
	UseManagedIdentity bool
	// Model for hosted agents. Empty means DefaultModel.
	Model string
	// Instructions for hosted agents. Empty means DefaultInstructions.
	Instructions string
}

// Agent owns the tool registry and both dispatch facades. The strict
// dispatcher serves programmatic callers, the soft dispatcher serves the
// hosted-agent tool loop.
type Agent struct {
	cfg      Config
	registry *tools.Registry
	strict   *Dispatcher
	soft     *Dispatcher
	foundry  foundry.Client
	creds    identity.TokenProvider
}

// Option configures an Agent.
type Option func(*Agent)

// WithFoundryClient overrides the hosted-agent client (used by tests).
func WithFoundryClient(client foundry.Client) Option {
	return func(a *Agent) { a.foundry = client }
}

// WithTokenProvider injects the credential source used when
// UseManagedIdentity is set.
func WithTokenProvider(tp identity.TokenProvider) Option {
	return func(a *Agent) { a.creds = tp }
}

// WithAudit persists every dispatch through both facades to store.
func WithAudit(store *audit.Store) Option {
	return func(a *Agent) {
		a.strict = NewDispatcher(a.registry, ModeStrict, WithAuditStore(store))
		a.soft = NewDispatcher(a.registry, ModeSoft, WithAuditStore(store))
	}
}

// New creates an Agent with an empty registry.
func New(cfg Config, opts ...Option) *Agent {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Instructions == "" {
		cfg.Instructions = DefaultInstructions
	}
	registry := tools.NewRegistry()
	a := &Agent{
		cfg:      cfg,
		registry: registry,
		strict:   NewDispatcher(registry, ModeStrict),
		soft:     NewDispatcher(registry, ModeSoft),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *tools.Registry { return a.registry }

// Dispatcher returns the dispatch facade for the given mode.
func (a *Agent) Dispatcher(mode Mode) *Dispatcher {
	if mode == ModeSoft {
		return a.soft
	}
	return a.strict
}

// RegisterFunctionTool registers an Azure Function endpoint as a named tool.
// An empty description gets a default derived from the endpoint URL.
func (a *Agent) RegisterFunctionTool(name string, cfg azure.FunctionConfig, description string) error {
	var opts []azure.FunctionsOption
	if cfg.UseManagedIdentity && a.creds != nil {
		opts = append(opts, azure.WithFunctionsTokenProvider(a.creds))
	}
	client, err := azure.NewFunctionsClient(cfg, opts...)
	if err != nil {
		return fmt.Errorf("register function tool %q: %w", name, err)
	}
	if description == "" {
		description = fmt.Sprintf("Azure Function tool: %s - invokes the function at %s", name, cfg.URL)
	}
	a.registry.Register(tools.NewHTTPTool(name, description, nil, client.Invoke))
	log.Info().Str("tool", name).Str("backend", "function").Msg("tool_registered")
	return nil
}

// RegisterWorkflowTool registers a Logic App workflow trigger as a named tool.
func (a *Agent) RegisterWorkflowTool(name string, cfg azure.WorkflowConfig, description string) error {
	var opts []azure.WorkflowOption
	if cfg.UseManagedIdentity && a.creds != nil {
		opts = append(opts, azure.WithWorkflowTokenProvider(a.creds))
	}
	client, err := azure.NewWorkflowClient(cfg, opts...)
	if err != nil {
		return fmt.Errorf("register workflow tool %q: %w", name, err)
	}
	if description == "" {
		description = fmt.Sprintf("Logic App workflow tool: %s - triggers the workflow at %s", name, cfg.URL)
	}
	a.registry.Register(tools.NewHTTPTool(name, description, nil, client.Trigger))
	log.Info().Str("tool", name).Str("backend", "workflow").Msg("tool_registered")
	return nil
}

// RegisterCustomTool registers a local Go function as a named tool. schema is
// advisory and may be nil.
func (a *Agent) RegisterCustomTool(name, description string, schema map[string]any, fn tools.InvokeFunc) {
	a.registry.Register(tools.NewFuncTool(name, description, schema, fn))
	log.Info().Str("tool", name).Str("backend", "func").Msg("tool_registered")
}

// ListTools returns the registered tool names in registration order.
func (a *Agent) ListTools() []string { return a.registry.Names() }

// Dispatch invokes a registered tool through the strict facade.
func (a *Agent) Dispatch(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	return a.strict.Dispatch(ctx, name, params)
}

// toolDefs snapshots the registry as hosted-agent tool definitions.
func (a *Agent) toolDefs() []foundry.ToolDef {
	all := a.registry.All()
	defs := make([]foundry.ToolDef, len(all))
	for i, t := range all {
		defs[i] = foundry.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.InputSchema(),
		}
	}
	return defs
}

// foundryClient lazily builds the project client from config, resolving the
// managed-identity credential when configured.
func (a *Agent) foundryClient(ctx context.Context) (foundry.Client, error) {
	if a.foundry != nil {
		return a.foundry, nil
	}
	if a.cfg.ProjectEndpoint == "" {
		return nil, fmt.Errorf("foundry client: project endpoint not configured")
	}
	credential := a.cfg.APIKey
	if a.cfg.UseManagedIdentity {
		if a.creds == nil {
			return nil, fmt.Errorf("foundry client: managed identity requested but no token provider configured")
		}
		token, err := a.creds.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("foundry client: %w", err)
		}
		credential = token
	}
	a.foundry = foundry.NewProjectClient(a.cfg.ProjectEndpoint, credential)
	return a.foundry, nil
}

// CreateAgent creates a hosted agent advertising every registered tool and
// returns its ID. An empty name gets DefaultAgentName.
func (a *Agent) CreateAgent(ctx context.Context, name string) (string, error) {
	client, err := a.foundryClient(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = DefaultAgentName
	}
	id, err := client.CreateAgent(ctx, foundry.AgentSpec{
		Name:         name,
		Model:        a.cfg.Model,
		Instructions: a.cfg.Instructions,
		Tools:        a.toolDefs(),
	})
	if err != nil {
		return "", err
	}
	log.Info().Str("agent_id", id).Str("model", a.cfg.Model).
		Int("tools", a.registry.Len()).Msg("agent_created")
	return id, nil
}

// RunAgent sends message to the hosted agent on threadID (empty starts a new
// thread), servicing tool calls through the soft dispatcher, and returns the
// reply plus the thread ID for follow-up turns.
func (a *Agent) RunAgent(ctx context.Context, agentID, message, threadID string) (string, string, error) {
	client, err := a.foundryClient(ctx)
	if err != nil {
		return "", "", err
	}
	return client.RunAgent(ctx, agentID, message, threadID, a.soft.Dispatch)
}

// DeleteAgent deletes the hosted agent.
func (a *Agent) DeleteAgent(ctx context.Context, agentID string) error {
	client, err := a.foundryClient(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteAgent(ctx, agentID); err != nil {
		return err
	}
	log.Info().Str("agent_id", agentID).Msg("agent_deleted")
	return nil
}
