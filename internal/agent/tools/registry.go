package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// NotFoundError reports a dispatch to an unregistered tool name. Known lists
// the names registered at the time of the lookup to aid debugging.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("tool %q not found (no tools registered)", e.Name)
	}
	return fmt.Sprintf("tool %q not found (known tools: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Registry maps unique tool names to tools. Registration is expected to
// happen once at startup; lookups may then run concurrently.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its name. Re-registering an existing name
// overwrites the previous tool with a warning; the name keeps its original
// position in registration order so it lists exactly once.
func (r *Registry) Register(tool Tool) {
	name := tool.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		log.Warn().Str("tool", name).Msg("tool_reregistered: overwriting existing tool")
	} else {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Description returns the tool's description, or false when absent.
func (r *Registry) Description(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return "", false
	}
	return tool.Description(), true
}

// Resolve returns the tool registered under name, or a *NotFoundError that
// carries a sorted snapshot of the currently known names.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		known := make([]string, len(r.order))
		copy(known, r.order)
		sort.Strings(known)
		return nil, &NotFoundError{Name: name, Known: known}
	}
	return tool, nil
}

// All returns the registered tools in registration order.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.tools[name])
	}
	return all
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
