package factory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// ErrUnknownType is returned by Create when no factory matches the type.
var ErrUnknownType = errors.New("unknown module type")

// ModuleConfig contains the type name and raw configuration for a module.
type ModuleConfig struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// ModuleError reports a module that could not be built, such as a schedule
// feed or a metrics sink.
type ModuleError struct {
	Kind string
	Type string
	Err  error
}

func (e *ModuleError) Error() string { return fmt.Sprintf("%s %q: %v", e.Kind, e.Type, e.Err) }

func (e *ModuleError) Unwrap() error { return e.Err }

// Factory builds a T from the raw conf map of a ModuleConfig.
type Factory[T any] func(map[string]any) (T, error)

// Registry maps module type names of one kind to their factories.
type Registry[T any] struct {
	kind string
	mu   sync.RWMutex
	byID map[string]Factory[T]
}

// NewRegistry returns an empty registry for modules of the given kind. The
// kind names the module in errors.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, byID: make(map[string]Factory[T])}
}

// Kind returns the module kind the registry builds.
func (r *Registry[T]) Kind() string { return r.kind }

// Register adds f under name. Names are unique per registry.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	if f == nil {
		return &ModuleError{Kind: r.kind, Type: name, Err: errors.New("nil factory")}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[name]; dup {
		return &ModuleError{Kind: r.kind, Type: name, Err: errors.New("already registered")}
	}
	r.byID[name] = f
	return nil
}

// Create builds the module named by cfg.Type. Both unknown types and
// factory failures come back as a *ModuleError.
func (r *Registry[T]) Create(cfg ModuleConfig) (T, error) {
	r.mu.RLock()
	f, ok := r.byID[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, &ModuleError{Kind: r.kind, Type: cfg.Type,
			Err: fmt.Errorf("%w (known: %s)", ErrUnknownType, strings.Join(r.Names(), ", "))}
	}
	m, err := f(cfg.Conf)
	if err != nil {
		return m, &ModuleError{Kind: r.kind, Type: cfg.Type, Err: err}
	}
	return m, nil
}

// Names lists the registered type names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byID))
	for n := range r.byID {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Decode fills out from a conf map using json tags. Environment overrides
// arrive as strings, so weak typing and duration strings are accepted.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("decode conf: %w", err)
	}
	return nil
}
