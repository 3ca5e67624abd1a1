package appstate

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Function is a helper applicability rules can call, for example to ask the
// cart service whether a page may still be patched.
type Function func(args ...any) (any, error)

// FunctionRegistry holds rule helpers. Names are case-insensitive and stored
// lowercased, which is how rules must spell them.
type FunctionRegistry struct {
	mu      sync.RWMutex
	helpers map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{helpers: make(map[string]Function)}
}

// Register adds a rule helper. A name can only be registered once.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	switch {
	case name == "":
		return fmt.Errorf("appstate: rule helper needs a name")
	case fn == nil:
		return fmt.Errorf("appstate: rule helper %q is nil", name)
	}
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.helpers == nil {
		r.helpers = make(map[string]Function)
	}
	if _, taken := r.helpers[key]; taken {
		return fmt.Errorf("appstate: rule helper %q registered twice", name)
	}
	r.helpers[key] = fn
	return nil
}

// Clone copies the registry so a rule engine keeps the helpers it was built
// with.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewFunctionRegistry()
	for name, fn := range r.helpers {
		out.helpers[name] = fn
	}
	return out
}

// Call runs the helper registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	var fn Function
	if r != nil {
		r.mu.RLock()
		fn = r.helpers[strings.ToLower(name)]
		r.mu.RUnlock()
	}
	if fn == nil {
		return nil, fmt.Errorf("appstate: rule helper %q is not registered", name)
	}
	return fn(args...)
}

// Names lists the helper names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// WithFunctionRegistry hands registry's helpers to the applicability rules.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *storeConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

// WithCustomFunction adds one rule helper. A duplicate name keeps the first
// helper.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *storeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}
