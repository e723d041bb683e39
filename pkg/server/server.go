// Package server serves a Jasmine suite to a browser: a generated harness
// page, jasmine-core, the runner's in-page scripts and the project's
// source and spec files.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/perbu/jasmine-browser-runner/pkg/config"
)

// URL prefixes the harness page loads files from
const (
	jasminePrefix = "/__jasmine__/"
	bootPrefix    = "/__boot__/"
	srcPrefix     = "/__src__/"
	specPrefix    = "/__spec__/"
)

//go:embed assets
var assets embed.FS

var pageTemplate = template.Must(template.ParseFS(assets, "assets/run.html.tmpl"))

// Server is the static file server for one project.
type Server struct {
	opts   *config.RunOptions
	core   Core
	logger *slog.Logger

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	port       int
}

// New creates a server for the given options. Nothing is bound until Start.
func New(opts *config.RunOptions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:   opts,
		core:   Core{Root: opts.Path(opts.JasmineCorePath)},
		logger: logger.With("component", "server"),
	}
}

// Start validates the project layout and starts listening on
// listenAddress:port. Port 0 binds an ephemeral port; see Port.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return errors.New("server already started")
	}

	if err := s.core.Check(); err != nil {
		return err
	}
	for _, dir := range []string{s.opts.SrcDir, s.opts.SpecDir} {
		path := s.opts.Path(dir)
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("checking directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", path)
		}
	}

	addr := net.JoinHostPort(s.opts.ListenAddress, strconv.Itoa(s.opts.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server stopped unexpectedly", "error", err)
		}
	}()

	s.logger.Debug("Server listening", "address", listener.Addr().String())
	return nil
}

// Port returns the bound port. Only meaningful after a successful Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Stop shuts the server down, waiting for in-flight requests until ctx
// expires. Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Debug("Stopping server")
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("stopping server: %w", err)
	}
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	bootFS, _ := fs.Sub(assets, "assets")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Handle(jasminePrefix+"*", http.StripPrefix(jasminePrefix, http.FileServer(http.Dir(s.core.LibDir()))))
	r.Handle(bootPrefix+"*", http.StripPrefix(bootPrefix, http.FileServer(http.FS(bootFS))))
	r.Handle(srcPrefix+"*", http.StripPrefix(srcPrefix, http.FileServer(http.Dir(s.opts.Path(s.opts.SrcDir)))))
	r.Handle(specPrefix+"*", http.StripPrefix(specPrefix, http.FileServer(http.Dir(s.opts.Path(s.opts.SpecDir)))))

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// pageData feeds the harness page template.
type pageData struct {
	CSS            []string
	JasmineScripts []string
	Scripts        []script
	Runner         runnerData
}

// runnerData is exposed to the page as window.jasmineBrowserRunner.
type runnerData struct {
	Env config.Env `json:"env"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := s.page()
	if err != nil {
		s.logger.Error("Failed to build harness page", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("Failed to render harness page", "error", err)
	}
}

// page expands the configured globs. It runs per request so files added
// while serving show up on reload.
func (s *Server) page() (*pageData, error) {
	srcDir := s.opts.Path(s.opts.SrcDir)
	specDir := s.opts.Path(s.opts.SpecDir)

	css, err := expandGlobs(srcDir, s.opts.CSSFiles)
	if err != nil {
		return nil, fmt.Errorf("css files: %w", err)
	}
	src, err := expandGlobs(srcDir, s.opts.SrcFiles)
	if err != nil {
		return nil, fmt.Errorf("source files: %w", err)
	}
	helpers, err := expandGlobs(specDir, s.opts.Helpers)
	if err != nil {
		return nil, fmt.Errorf("helper files: %w", err)
	}
	specs, err := expandGlobs(specDir, s.opts.SpecFiles)
	if err != nil {
		return nil, fmt.Errorf("spec files: %w", err)
	}

	data := &pageData{Runner: runnerData{Env: s.opts.Env}}
	data.CSS = append(urlsFor(jasminePrefix, jasmineStyles), urlsFor(srcPrefix, css)...)
	data.JasmineScripts = urlsFor(jasminePrefix, jasmineScripts)
	data.Scripts = append(data.Scripts, scriptsFor(srcPrefix, src)...)
	data.Scripts = append(data.Scripts, scriptsFor(specPrefix, helpers)...)
	data.Scripts = append(data.Scripts, scriptsFor(specPrefix, specs)...)
	return data, nil
}
