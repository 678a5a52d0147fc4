package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest declares the tools a tether process registers at startup and the
// schedules that fire them. Loaded from the YAML file named by
// Config.ToolManifest.
type Manifest struct {
	Tools     ManifestTools      `yaml:"tools"`
	Schedules []ScheduleManifest `yaml:"schedules"`
}

// ManifestTools groups declared tools by backend.
type ManifestTools struct {
	Functions []EndpointManifest `yaml:"functions"`
	Workflows []EndpointManifest `yaml:"workflows"`
}

// EndpointManifest declares one HTTP-backed tool.
type EndpointManifest struct {
	Name               string `yaml:"name"`
	Description        string `yaml:"description"`
	URL                string `yaml:"url"`
	Key                string `yaml:"key"`
	UseManagedIdentity bool   `yaml:"use_managed_identity"`
	Timeout            int    `yaml:"timeout"`
}

// ScheduleManifest declares one cron-driven dispatch of a registered tool.
type ScheduleManifest struct {
	Name    string         `yaml:"name"`
	Tool    string         `yaml:"tool"`
	Cron    string         `yaml:"cron"`
	Payload map[string]any `yaml:"payload"`
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse tool manifest: %w", err)
	}
	// Keys may reference env vars ($VAR or ${VAR}) so credentials stay out
	// of the manifest file.
	for i := range m.Tools.Functions {
		m.Tools.Functions[i].Key = os.ExpandEnv(m.Tools.Functions[i].Key)
	}
	for i := range m.Tools.Workflows {
		m.Tools.Workflows[i].Key = os.ExpandEnv(m.Tools.Workflows[i].Key)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("tool manifest %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[string]bool)
	check := func(kind string, e EndpointManifest) error {
		if e.Name == "" {
			return fmt.Errorf("%s tool with empty name", kind)
		}
		if e.URL == "" {
			return fmt.Errorf("%s tool %q: url is required", kind, e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate tool name %q", e.Name)
		}
		seen[e.Name] = true
		return nil
	}
	for _, f := range m.Tools.Functions {
		if err := check("function", f); err != nil {
			return err
		}
	}
	for _, w := range m.Tools.Workflows {
		if err := check("workflow", w); err != nil {
			return err
		}
	}
	for _, s := range m.Schedules {
		if s.Name == "" {
			return fmt.Errorf("schedule with empty name")
		}
		if s.Tool == "" || s.Cron == "" {
			return fmt.Errorf("schedule %q: tool and cron are required", s.Name)
		}
		if !seen[s.Tool] {
			return fmt.Errorf("schedule %q: tool %q is not declared in this manifest", s.Name, s.Tool)
		}
	}
	return nil
}
