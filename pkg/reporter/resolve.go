package reporter

import (
	"errors"
	"fmt"
	"path/filepath"
	"plugin"
	"sort"
	"sync"
)

// Plugin symbols looked up when loading a reporter from a Go plugin.
const (
	// FactorySymbol names a func() Reporter invoked with no arguments.
	FactorySymbol = "NewReporter"
	// InstanceSymbol names a Reporter value used as-is.
	InstanceSymbol = "Reporter"
)

// Factory creates a reporter instance.
type Factory func() (Reporter, error)

// Registry maps reporter names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces a named factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered names in sorted order.
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

// Loader loads a reporter from a path on disk.
type Loader interface {
	Load(path string) (Reporter, error)
}

// PluginLoader loads reporters from Go plugins built with -buildmode=plugin.
type PluginLoader struct{}

// Load opens the plugin and instantiates its reporter. An exported
// NewReporter function takes precedence over an exported Reporter value.
func (PluginLoader) Load(path string) (Reporter, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return FromSymbols(p.Lookup)
}

// FromSymbols instantiates a reporter using a plugin-style symbol lookup.
func FromSymbols(lookup func(name string) (plugin.Symbol, error)) (Reporter, error) {
	if sym, err := lookup(FactorySymbol); err == nil {
		switch f := sym.(type) {
		case func() Reporter:
			return checkInstance(f())
		case func() (Reporter, error):
			r, err := f()
			if err != nil {
				return nil, err
			}
			return checkInstance(r)
		default:
			return nil, fmt.Errorf("symbol %s has type %T, want func() reporter.Reporter", FactorySymbol, sym)
		}
	}

	sym, err := lookup(InstanceSymbol)
	if err != nil {
		return nil, fmt.Errorf("plugin exports neither %s nor %s", FactorySymbol, InstanceSymbol)
	}
	// Exported variables are looked up as pointers to the variable
	switch v := sym.(type) {
	case *Reporter:
		return checkInstance(*v)
	case Reporter:
		return v, nil
	default:
		return nil, fmt.Errorf("symbol %s has type %T, which does not implement reporter.Reporter", InstanceSymbol, sym)
	}
}

func checkInstance(r Reporter) (Reporter, error) {
	if r == nil {
		return nil, errors.New("reporter factory returned nil")
	}
	return r, nil
}

// Resolver turns reporter specs into instances.
type Resolver struct {
	Registry *Registry
	Loader   Loader
	// Default creates the reporter used when no specs are given.
	Default func() Reporter
}

// NewResolver creates a resolver using plugin loading for unregistered
// references and the console reporter as the default.
func NewResolver(registry *Registry, defaultReporter func() Reporter) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	if defaultReporter == nil {
		defaultReporter = func() Reporter { return NewDefault(DefaultOptions{}) }
	}
	return &Resolver{
		Registry: registry,
		Loader:   PluginLoader{},
		Default:  defaultReporter,
	}
}

// Resolve instantiates reporters in declaration order. Relative plugin
// paths are resolved against baseDir. An empty list yields exactly one
// default reporter. The first failure aborts resolution.
func (r *Resolver) Resolve(specs []Spec, baseDir string) ([]Reporter, error) {
	if len(specs) == 0 {
		return []Reporter{r.defaultReporter()}, nil
	}

	reporters := make([]Reporter, 0, len(specs))
	for _, spec := range specs {
		rep, err := r.resolveOne(spec, baseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to register reporter %s: %w", spec, err)
		}
		reporters = append(reporters, rep)
	}
	return reporters, nil
}

func (r *Resolver) resolveOne(spec Spec, baseDir string) (Reporter, error) {
	if spec.IsInline() {
		return spec.Inline, nil
	}
	if spec.Module == "" {
		return nil, errors.New("empty reporter reference")
	}

	if r.Registry != nil {
		if factory, ok := r.Registry.Lookup(spec.Module); ok {
			rep, err := factory()
			if err != nil {
				return nil, err
			}
			return checkInstance(rep)
		}
	}

	path := spec.Module
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	loader := r.Loader
	if loader == nil {
		loader = PluginLoader{}
	}
	return loader.Load(path)
}

func (r *Resolver) defaultReporter() Reporter {
	if r.Default != nil {
		return r.Default()
	}
	return NewDefault(DefaultOptions{})
}
