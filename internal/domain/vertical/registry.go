package vertical

import (
	"fmt"
	"sort"
	"sync"

	"github.com/backoffice/backend/internal/domain/shared"
)

// Descriptor describes a pluggable business vertical such as a bakery or
// pharmacy extension: the modules its automation depends on and the
// configuration it ships with.
type Descriptor struct {
	// Name is the unique identifier, e.g. "bakery"
	Name string
	// DisplayName is the human-readable name
	DisplayName string
	// RequiredModules lists the subscription modules the vertical needs
	RequiredModules []string
	// DefaultConfig is the configuration applied on activation; activation
	// overrides win key by key
	DefaultConfig map[string]any
	// Attributes declares the entity attributes this vertical validates
	Attributes []AttributeDefinition
}

// Registry holds the verticals known to the system. It is constructed once
// at startup and handed to the composition service; there is no process-wide
// singleton.
type Registry struct {
	mu        sync.RWMutex
	verticals map[string]Descriptor
}

// NewRegistry creates an empty vertical registry
func NewRegistry() *Registry {
	return &Registry{
		verticals: make(map[string]Descriptor),
	}
}

// Register adds a vertical descriptor
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("%w: vertical name cannot be empty", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.verticals[d.Name]; exists {
		return fmt.Errorf("%w: vertical %q already registered", shared.ErrAlreadyExists, d.Name)
	}
	r.verticals[d.Name] = d
	return nil
}

// Unregister removes a vertical descriptor
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.verticals[name]; !exists {
		return fmt.Errorf("%w: vertical %q not registered", shared.ErrNotFound, name)
	}
	delete(r.verticals, name)
	return nil
}

// Get returns the descriptor for a vertical name
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.verticals[name]
	return d, ok
}

// List returns all registered vertical names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.verticals))
	for name := range r.verticals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered verticals
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.verticals)
}
