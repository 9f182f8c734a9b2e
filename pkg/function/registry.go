package function

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a Function on demand.
type Factory func() (Function, error)

// Registry maps handler identifiers to factories. It replaces resolving a
// configured class name at call time with a checked lookup table.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Defaults registers every built-in layout under its key, sharing opts.
func Defaults(opts ...Option) *Registry {
	r := NewRegistry()
	for _, layout := range Layouts() {
		r.MustRegister(layout.Key, func() (Function, error) {
			return New(layout, opts...), nil
		})
	}
	return r
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a factory. Keys are case-insensitive and must be unique.
func (r *Registry) Register(name string, factory Factory) error {
	key := normalizeKey(name)
	if key == "" {
		return errors.New("function: registry key is empty")
	}
	if factory == nil {
		return fmt.Errorf("function: factory for %q is nil", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("function: %q already registered", key)
	}
	r.factories[key] = factory
	return nil
}

func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve builds and validates the function registered under name. Unknown
// names wrap ErrUnknownFunction; anything that fails to build or validate
// wraps ErrInvalidFunction.
func (r *Registry) Resolve(name string) (Function, error) {
	key := normalizeKey(name)

	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}

	fn, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidFunction, name, err)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %q resolved to nil", ErrInvalidFunction, name)
	}
	if err := fn.Validate(); err != nil {
		if errors.Is(err, ErrInvalidFunction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidFunction, name, err)
	}
	return fn, nil
}

// Validate checks that name resolves to a valid function.
func (r *Registry) Validate(name string) error {
	_, err := r.Resolve(name)
	return err
}

// Names returns the registered keys, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
