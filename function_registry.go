package ocdsmerge

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Function represents a callable exposed to order expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores order expression helpers keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]namedFunction
}

// namedFunction keeps the registered spelling; lookups are case-insensitive.
type namedFunction struct {
	name string
	fn   Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]namedFunction),
	}
}

// DefaultFunctionRegistry returns a registry holding the built-in helpers:
// parseTime(value[, layout]) parses a date string (RFC 3339 by default).
func DefaultFunctionRegistry() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("parseTime", parseTimeFunction)
	return registry
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("ocdsmerge: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("ocdsmerge: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]namedFunction)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("ocdsmerge: function %q already registered", name)
	}
	r.functions[key] = namedFunction{name: name, fn: fn}
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]namedFunction, len(r.functions)),
	}
	for key, entry := range r.functions {
		clone.functions[key] = entry
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("ocdsmerge: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ocdsmerge: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns registered function names, as registered, sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry makes registry's helpers available to order
// expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *mergerConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithOrderFunction registers fn under name for order expressions.
func WithOrderFunction(name string, fn Function) Option {
	return func(cfg *mergerConfig) {
		if cfg.functions == nil {
			cfg.functions = DefaultFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

func parseTimeFunction(args ...any) (any, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, fmt.Errorf("ocdsmerge: parseTime expects 1 or 2 arguments, got %d", len(args))
	}
	value, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("ocdsmerge: parseTime value must be a string, got %T", args[0])
	}
	layout := time.RFC3339
	if len(args) == 2 {
		custom, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("ocdsmerge: parseTime layout must be a string, got %T", args[1])
		}
		layout = custom
	}
	return time.Parse(layout, value)
}
