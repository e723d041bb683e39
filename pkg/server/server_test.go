package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/perbu/jasmine-browser-runner/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newProject lays out a project with a fake jasmine-core checkout.
func newProject(t *testing.T) *config.RunOptions {
	t.Helper()
	base := t.TempDir()

	core := filepath.Join(base, "node_modules", "jasmine-core")
	writeFile(t, filepath.Join(core, "package.json"), `{"name": "jasmine-core", "version": "5.1.2"}`)
	for _, name := range []string{"jasmine.js", "jasmine-html.js", "boot0.js", "jasmine.css"} {
		writeFile(t, filepath.Join(core, "lib", "jasmine-core", name), "/* "+name+" */")
	}

	writeFile(t, filepath.Join(base, "src", "player.js"), "function Player() {}")
	writeFile(t, filepath.Join(base, "src", "lib", "song.mjs"), "export class Song {}")
	writeFile(t, filepath.Join(base, "src", "style.css"), "body {}")
	writeFile(t, filepath.Join(base, "spec", "playerSpec.js"), "describe('Player', function() {});")
	writeFile(t, filepath.Join(base, "spec", "helpers", "matchers.js"), "beforeEach(function() {});")

	return &config.RunOptions{
		ProjectBaseDir:  base,
		SrcDir:          "src",
		SrcFiles:        []string{"**/*.js", "**/*.mjs"},
		SpecDir:         "spec",
		SpecFiles:       []string{"**/*[sS]pec.js"},
		Helpers:         []string{"helpers/**/*.js"},
		CSSFiles:        []string{"*.css"},
		JasmineCorePath: "node_modules/jasmine-core",
		ListenAddress:   "127.0.0.1",
		Env:             config.Env{Random: config.Bool(false)},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_StartServeStop(t *testing.T) {
	opts := newProject(t)
	srv := New(opts, testLogger())

	require.NoError(t, srv.Start(context.Background()))
	port := srv.Port()
	require.NotZero(t, port)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	status, body := get(t, base+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<script src="/__jasmine__/jasmine.js"`)
	assert.Contains(t, body, `<script src="/__boot__/boot.js"`)
	assert.Contains(t, body, `<script src="/__src__/player.js" type="text/javascript">`)
	assert.Contains(t, body, `<script src="/__src__/lib/song.mjs" type="module">`)
	assert.Contains(t, body, `<script src="/__spec__/helpers/matchers.js"`)
	assert.Contains(t, body, `<script src="/__spec__/playerSpec.js"`)
	assert.Contains(t, body, `href="/__src__/style.css"`)
	assert.Contains(t, body, `"random":false`)

	status, body = get(t, base+"/__spec__/playerSpec.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "describe('Player', function() {});", body)

	status, body = get(t, base+"/__jasmine__/boot0.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/* boot0.js */", body)

	status, body = get(t, base+"/__boot__/batch_reporter.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "batch")

	status, _ = get(t, base+"/__src__/missing.js")
	assert.Equal(t, http.StatusNotFound, status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	_, err := http.Get(base + "/")
	assert.Error(t, err, "server should no longer accept connections")

	// A second stop is harmless
	assert.NoError(t, srv.Stop(ctx))
}

func TestServer_ScriptOrder(t *testing.T) {
	opts := newProject(t)
	srv := New(opts, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	order := []string{
		"/__jasmine__/jasmine.js",
		"/__jasmine__/jasmine-html.js",
		"/__jasmine__/boot0.js",
		"/__boot__/batch_reporter.js",
		"/__boot__/json_dom_reporter.js",
		"/__boot__/boot.js",
		"/__src__/player.js",
		"/__spec__/helpers/matchers.js",
		"/__spec__/playerSpec.js",
	}
	last := -1
	for _, s := range order {
		idx := strings.Index(body, s)
		require.NotEqual(t, -1, idx, "missing %s", s)
		assert.Greater(t, idx, last, "%s out of order", s)
		last = idx
	}
}

func TestServer_FixedPort(t *testing.T) {
	opts := newProject(t)
	probe := New(opts, testLogger())
	require.NoError(t, probe.Start(context.Background()))
	port := probe.Port()
	require.NoError(t, probe.Stop(context.Background()))

	opts.Port = port
	srv := New(opts, testLogger())
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop(context.Background())
	assert.Equal(t, port, srv.Port())

	// The port is taken now
	other := New(opts, testLogger())
	err := other.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create listener")
	assert.NoError(t, other.Stop(context.Background()))
}

func TestServer_StartFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(opts *config.RunOptions)
		wantErr string
	}{
		{
			name:    "missing jasmine-core",
			mutate:  func(opts *config.RunOptions) { opts.JasmineCorePath = "nowhere" },
			wantErr: "jasmine-core not usable",
		},
		{
			name:    "missing spec dir",
			mutate:  func(opts *config.RunOptions) { opts.SpecDir = "nope" },
			wantErr: "checking directory",
		},
		{
			name:    "src dir is a file",
			mutate:  func(opts *config.RunOptions) { opts.SrcDir = "src/player.js" },
			wantErr: "is not a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := newProject(t)
			tt.mutate(opts)
			srv := New(opts, testLogger())
			err := srv.Start(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Zero(t, srv.Port())
		})
	}
}

func TestServer_DoubleStart(t *testing.T) {
	srv := New(newProject(t), testLogger())
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop(context.Background())
	assert.Error(t, srv.Start(context.Background()))
}

func TestCoreVersion(t *testing.T) {
	opts := newProject(t)
	core := Core{Root: opts.Path(opts.JasmineCorePath)}

	version, err := core.Version()
	require.NoError(t, err)
	assert.Equal(t, "5.1.2", version)

	_, err = Core{Root: t.TempDir()}.Version()
	assert.Error(t, err)
}

func TestExpandGlobs(t *testing.T) {
	fsys := fstest.MapFS{
		"a.js":              {Data: []byte("")},
		"b.js":              {Data: []byte("")},
		"lib/c.js":          {Data: []byte("")},
		"lib/vendor/d.js":   {Data: []byte("")},
		"lib/vendor/e.js":   {Data: []byte("")},
		"fooSpec.js":        {Data: []byte("")},
		"nested/barspec.js": {Data: []byte("")},
		"nested/helper.js":  {Data: []byte("")},
		"dir.js/inside.txt": {Data: []byte("")},
	}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"top level", []string{"*.js"}, []string{"a.js", "b.js", "fooSpec.js"}},
		{"recursive", []string{"lib/**/*.js"}, []string{"lib/c.js", "lib/vendor/d.js", "lib/vendor/e.js"}},
		{"exclusion", []string{"lib/**/*.js", "!lib/vendor/**"}, []string{"lib/c.js"}},
		{"exclusion before include", []string{"!**/e.js", "lib/**/*.js"}, []string{"lib/c.js", "lib/vendor/d.js"}},
		{"character class", []string{"**/*[sS]pec.js"}, []string{"fooSpec.js", "nested/barspec.js"}},
		{"no duplicates, pattern order", []string{"b.js", "*.js"}, []string{"b.js", "a.js", "fooSpec.js"}},
		{"leading dot slash", []string{"./lib/*.js"}, []string{"lib/c.js"}},
		{"urls pass through", []string{"https://cdn.example.com/x.js", "a.js"}, []string{"https://cdn.example.com/x.js", "a.js"}},
		{"no match", []string{"*.ts"}, nil},
		{"directories skipped", []string{"*.js/*"}, []string{"dir.js/inside.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandGlobsFS(fsys, tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScriptsFor(t *testing.T) {
	got := scriptsFor(srcPrefix, []string{"a b.js", "mod.mjs", "//cdn/x.js"})
	assert.Equal(t, []script{
		{URL: "/__src__/a%20b.js"},
		{URL: "/__src__/mod.mjs", Module: true},
		{URL: "//cdn/x.js"},
	}, got)
}
