package plugin

import (
	"fmt"
	"sync"
)

// StepPlugin is the handshake contract a registered plugin implements.
type StepPlugin interface {
	Name() string
	OnStepRun()
	OnPluginEnable()
	OnPluginDisable()
}

// Registry is the process-wide plugin registry. Hosts populate it
// explicitly during bootstrap; nothing registers itself as a load-time
// side effect.
type Registry struct {
	mu      sync.Mutex
	plugins []StepPlugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a plugin. Names must be unique.
func (r *Registry) Register(p StepPlugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin %q already registered", p.Name())
		}
	}
	r.plugins = append(r.plugins, p)
	return nil
}

// Unregister removes a plugin by name. Unknown names are a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.plugins {
		if p.Name() == name {
			r.plugins = append(r.plugins[:i], r.plugins[i+1:]...)
			return
		}
	}
}

// Plugins returns a snapshot in registration order.
func (r *Registry) Plugins() []StepPlugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StepPlugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}
