package scenario

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps scenario names to scenarios
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{scenarios: make(map[string]Scenario)}
}

// Builtins returns a registry holding every built-in scenario
func Builtins() *Registry {
	r := NewRegistry()
	for _, s := range []Scenario{
		newQRPadding(),
		newCode128Aspect(),
		newContextualMessages(),
		newUploadNoBarcode(),
		newTabNavigation(),
		newHumanReadableText(),
		newBarcodeCentering(),
		newDownloadPNG(),
		newEncoderMapping(),
	} {
		// Names are unique literals
		_ = r.Register(s)
	}
	return r
}

// Register adds s; a duplicate name is an error
func (r *Registry) Register(s Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scenarios[s.Name()]; exists {
		return fmt.Errorf("scenario %q already registered", s.Name())
	}
	r.scenarios[s.Name()] = s
	return nil
}

// Lookup returns the scenario registered under name
func (r *Registry) Lookup(name string) (Scenario, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[name]
	return s, ok
}

// Names returns every registered name, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered scenario ordered by name
func (r *Registry) All() []Scenario {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		out = append(out, r.scenarios[name])
	}
	return out
}

// Select resolves names in order. An empty list selects everything.
func (r *Registry) Select(names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	out := make([]Scenario, 0, len(names))
	var unknown []string
	for _, name := range names {
		s, ok := r.Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, s)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown scenarios: %v (available: %v)", unknown, r.Names())
	}
	return out, nil
}
