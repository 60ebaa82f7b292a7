// Package capability provides a tag-keyed registry of optional services.
//
// Services are registered and resolved through typed keys. A key binds a
// string tag to the Go interface its implementation must satisfy, so lookups
// never depend on runtime type introspection. At most one implementation is
// held per tag and the most recent registration wins.
package capability

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Key identifies a capability slot and the type stored in it.
type Key[T any] struct {
	name string
}

// NewKey declares a capability key. Keys with the same name share a slot.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the tag of the key.
func (k Key[T]) Name() string { return k.name }

// Optional is the result of a capability lookup. Absence is a normal outcome.
type Optional[T any] struct {
	value   T
	present bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, present: true} }

// None returns an absent result.
func None[T any]() Optional[T] { return Optional[T]{} }

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.present }

// Present reports whether a value was resolved.
func (o Optional[T]) Present() bool { return o.present }

// OrElse returns the value when present and fallback otherwise.
func (o Optional[T]) OrElse(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}

// ErrNilImplementation is returned when registering a nil service.
var ErrNilImplementation = errors.New("capability implementation cannot be nil")

// Resolver is a concurrency safe single-slot registry keyed by capability tag.
type Resolver struct {
	mu       sync.RWMutex
	services map[string]any
	log      *slog.Logger
}

// NewResolver constructs an empty registry. A nil logger falls back to slog.Default.
func NewResolver(log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{services: make(map[string]any), log: log}
}

// Register stores impl under key, replacing any previous registration.
func Register[T any](r *Resolver, key Key[T], impl T) error {
	if key.name == "" {
		return errors.New("capability key cannot be empty")
	}
	if any(impl) == nil {
		return fmt.Errorf("register %s: %w", key.name, ErrNilImplementation)
	}
	r.mu.Lock()
	_, replaced := r.services[key.name]
	r.services[key.name] = impl
	r.mu.Unlock()
	if replaced {
		r.log.Warn("capability overwritten", slog.String("capability", key.name))
	}
	return nil
}

// Resolve looks up the implementation registered under key.
func Resolve[T any](r *Resolver, key Key[T]) Optional[T] {
	r.mu.RLock()
	raw, ok := r.services[key.name]
	r.mu.RUnlock()
	if !ok {
		return None[T]()
	}
	v, ok := raw.(T)
	if !ok {
		r.log.Warn("capability registered with mismatched type", slog.String("capability", key.name))
		return None[T]()
	}
	return Some(v)
}

// Has reports whether key has a registration.
func Has[T any](r *Resolver, key Key[T]) bool {
	return r.HasName(key.name)
}

// Unregister removes the registration for key and reports whether one existed.
func Unregister[T any](r *Resolver, key Key[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[key.name]; !ok {
		return false
	}
	delete(r.services, key.name)
	return true
}

// HasName reports whether a capability tag has a registration.
func (r *Resolver) HasName(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[name]
	return ok
}

// Names returns the registered tags in lexical order.
func (r *Resolver) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registrations.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}

// Clear drops every registration.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.services = make(map[string]any)
	r.mu.Unlock()
}
