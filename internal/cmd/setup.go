package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tetherhq/tether/internal/agent"
	"github.com/tetherhq/tether/internal/audit"
	"github.com/tetherhq/tether/internal/azure"
	"github.com/tetherhq/tether/internal/config"
	"github.com/tetherhq/tether/internal/identity"
)

// managedIdentityTokenEnv names the env var holding a pre-acquired bearer
// token for managed-identity backends. Acquisition itself happens outside
// this process (e.g. az cli, IMDS sidecar).
const managedIdentityTokenEnv = "TETHER_MANAGED_IDENTITY_TOKEN"

// buildAgent loads config and the tool manifest and returns a ready agent
// plus the loaded pieces the caller may need for further wiring.
func buildAgent(withAudit bool) (*agent.Agent, *config.Config, *config.Manifest, *audit.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	opts := []agent.Option{
		agent.WithTokenProvider(identity.NewEnvTokenProvider(managedIdentityTokenEnv)),
	}

	var store *audit.Store
	if withAudit {
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
		store, err = audit.NewStore(cfg.AuditDBPath())
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("opening audit store: %w", err)
		}
		opts = append(opts, agent.WithAudit(store))
	}

	a := agent.New(agent.Config{
		ProjectEndpoint:    cfg.ProjectEndpoint,
		APIKey:             cfg.APIKey,
		UseManagedIdentity: cfg.UseManagedIdentity,
		Model:              cfg.Model,
		Instructions:       cfg.Instructions,
	}, opts...)

	var manifest *config.Manifest
	if cfg.ToolManifest != "" {
		manifest, err = config.LoadManifest(cfg.ToolManifest)
		if err != nil {
			closeStore(store)
			return nil, nil, nil, nil, err
		}
		if err := registerManifestTools(a, manifest); err != nil {
			closeStore(store)
			return nil, nil, nil, nil, err
		}
	}

	return a, cfg, manifest, store, nil
}

func registerManifestTools(a *agent.Agent, m *config.Manifest) error {
	for _, f := range m.Tools.Functions {
		err := a.RegisterFunctionTool(f.Name, azure.FunctionConfig{
			URL:                f.URL,
			Key:                f.Key,
			UseManagedIdentity: f.UseManagedIdentity,
			Timeout:            f.Timeout,
		}, f.Description)
		if err != nil {
			return err
		}
	}
	for _, w := range m.Tools.Workflows {
		err := a.RegisterWorkflowTool(w.Name, azure.WorkflowConfig{
			URL:                w.URL,
			Key:                w.Key,
			UseManagedIdentity: w.UseManagedIdentity,
			Timeout:            w.Timeout,
		}, w.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

func closeStore(store *audit.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("audit_store_close_failed")
	}
}
