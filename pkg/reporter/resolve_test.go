package reporter

import (
	"errors"
	"fmt"
	"path/filepath"
	"plugin"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedReporter struct {
	Base
	name string
}

// fakeLoader stands in for plugin loading, keyed by absolute path.
type fakeLoader struct {
	plugins map[string]Reporter
	loaded  []string
}

func (f *fakeLoader) Load(path string) (Reporter, error) {
	f.loaded = append(f.loaded, path)
	r, ok := f.plugins[path]
	if !ok {
		return nil, fmt.Errorf("plugin.Open(%q): no such file or directory", path)
	}
	return r, nil
}

func TestResolveEmptyYieldsSingleDefault(t *testing.T) {
	resolver := NewResolver(nil, nil)

	reporters, err := resolver.Resolve(nil, "/project")
	require.NoError(t, err)
	require.Len(t, reporters, 1)
	assert.IsType(t, &DefaultReporter{}, reporters[0])

	// A fresh instance every time
	again, err := resolver.Resolve([]Spec{}, "/project")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.NotSame(t, reporters[0], again[0])
}

func TestResolveCustomDefault(t *testing.T) {
	custom := &namedReporter{name: "custom"}
	resolver := NewResolver(nil, func() Reporter { return custom })

	reporters, err := resolver.Resolve(nil, "")
	require.NoError(t, err)
	require.Equal(t, []Reporter{custom}, reporters)
}

func TestResolvePreservesOrder(t *testing.T) {
	baseDir := t.TempDir()
	first := &namedReporter{name: "first"}
	second := &namedReporter{name: "second"}
	loader := &fakeLoader{plugins: map[string]Reporter{
		filepath.Join(baseDir, "reporters", "first.so"):  first,
		filepath.Join(baseDir, "reporters", "second.so"): second,
	}}
	resolver := NewResolver(nil, nil)
	resolver.Loader = loader

	reporters, err := resolver.Resolve([]Spec{
		Module("./reporters/first.so"),
		Module("reporters/second.so"),
	}, baseDir)
	require.NoError(t, err)
	require.Len(t, reporters, 2)
	assert.Same(t, first, reporters[0])
	assert.Same(t, second, reporters[1])
}

func TestResolveInlinePassesThrough(t *testing.T) {
	inline := &namedReporter{name: "inline"}
	resolver := NewResolver(nil, nil)
	resolver.Loader = &fakeLoader{}

	reporters, err := resolver.Resolve([]Spec{Inline(inline)}, "/project")
	require.NoError(t, err)
	require.Len(t, reporters, 1)
	assert.Same(t, inline, reporters[0])
}

func TestResolveRegistryNames(t *testing.T) {
	registry := NewRegistry()
	calls := 0
	registry.Register("counting", func() (Reporter, error) {
		calls++
		return &namedReporter{name: "counting"}, nil
	})
	loader := &fakeLoader{}
	resolver := NewResolver(registry, nil)
	resolver.Loader = loader

	reporters, err := resolver.Resolve([]Spec{Module("counting"), Module("counting")}, "/project")
	require.NoError(t, err)
	assert.Len(t, reporters, 2)
	assert.Equal(t, 2, calls)
	assert.NotSame(t, reporters[0], reporters[1])
	assert.Empty(t, loader.loaded, "registered names must not hit the plugin loader")
}

func TestResolveAbsolutePathNotJoined(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "abs.so")
	want := &namedReporter{name: "abs"}
	loader := &fakeLoader{plugins: map[string]Reporter{abs: want}}
	resolver := NewResolver(nil, nil)
	resolver.Loader = loader

	reporters, err := resolver.Resolve([]Spec{Module(abs)}, "/elsewhere")
	require.NoError(t, err)
	assert.Same(t, want, reporters[0])
	assert.Equal(t, []string{abs}, loader.loaded)
}

func TestResolveFailureAbortsWithReference(t *testing.T) {
	good := &namedReporter{name: "good"}
	loader := &fakeLoader{plugins: map[string]Reporter{
		filepath.Join("/project", "good.so"): good,
	}}
	resolver := NewResolver(nil, nil)
	resolver.Loader = loader

	reporters, err := resolver.Resolve([]Spec{
		Module("./good.so"),
		Module("./no/such/module"),
		Module("./good.so"),
	}, "/project")
	require.Error(t, err)
	assert.Nil(t, reporters)
	assert.Regexp(t, `^failed to register reporter \./no/such/module: .*no such file`, err.Error())
	// Resolution stops at the first failure
	assert.Len(t, loader.loaded, 2)
}

func TestResolveFactoryError(t *testing.T) {
	registry := NewRegistry()
	boom := errors.New("boom")
	registry.Register("broken", func() (Reporter, error) { return nil, boom })
	resolver := NewResolver(registry, nil)

	_, err := resolver.Resolve([]Spec{Module("broken")}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failed to register reporter broken: boom", err.Error())
}

func TestResolveEmptyReference(t *testing.T) {
	resolver := NewResolver(nil, nil)
	_, err := resolver.Resolve([]Spec{{}}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty reporter reference")
}

func TestRegistryNames(t *testing.T) {
	registry := BuiltinRegistry(DefaultOptions{}, nil, nil)
	assert.Equal(t, []string{"console", "json"}, registry.Names())
}

type pointerReporter struct {
	Base
}

func TestFromSymbols(t *testing.T) {
	factoryResult := &namedReporter{name: "factory"}
	var iface Reporter = &namedReporter{name: "iface"}
	ptr := &pointerReporter{}

	tests := []struct {
		name    string
		symbols map[string]plugin.Symbol
		want    Reporter
		wantErr string
	}{
		{
			name: "factory function",
			symbols: map[string]plugin.Symbol{
				FactorySymbol: func() Reporter { return factoryResult },
			},
			want: factoryResult,
		},
		{
			name: "factory preferred over value",
			symbols: map[string]plugin.Symbol{
				FactorySymbol:  func() (Reporter, error) { return factoryResult, nil },
				InstanceSymbol: &iface,
			},
			want: factoryResult,
		},
		{
			name:    "interface variable",
			symbols: map[string]plugin.Symbol{InstanceSymbol: &iface},
			want:    iface,
		},
		{
			name:    "concrete variable",
			symbols: map[string]plugin.Symbol{InstanceSymbol: ptr},
			want:    ptr,
		},
		{
			name:    "wrong factory type",
			symbols: map[string]plugin.Symbol{FactorySymbol: func() {}},
			wantErr: "want func() reporter.Reporter",
		},
		{
			name:    "factory returns nil",
			symbols: map[string]plugin.Symbol{FactorySymbol: func() Reporter { return nil }},
			wantErr: "returned nil",
		},
		{
			name:    "no symbols",
			symbols: map[string]plugin.Symbol{},
			wantErr: "exports neither",
		},
		{
			name:    "value of wrong type",
			symbols: map[string]plugin.Symbol{InstanceSymbol: new(int)},
			wantErr: "does not implement",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(name string) (plugin.Symbol, error) {
				sym, ok := tt.symbols[name]
				if !ok {
					return nil, fmt.Errorf("symbol %s not found", name)
				}
				return sym, nil
			}
			got, err := FromSymbols(lookup)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestSpecUnmarshalText(t *testing.T) {
	var s Spec
	require.NoError(t, s.UnmarshalText([]byte("./my-reporter.so")))
	assert.Equal(t, Module("./my-reporter.so"), s)
	assert.False(t, s.IsInline())

	_, err := Inline(&namedReporter{}).MarshalText()
	assert.Error(t, err)
}
