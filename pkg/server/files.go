package server

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// isURL reports whether a pattern is an absolute URL that is passed
// through to the page untouched.
func isURL(pattern string) bool {
	return strings.HasPrefix(pattern, "http://") ||
		strings.HasPrefix(pattern, "https://") ||
		strings.HasPrefix(pattern, "//")
}

// expandGlobs resolves patterns against dir. Patterns starting with "!"
// exclude earlier matches. Matches keep pattern order, sorted within a
// pattern, without duplicates. URLs are returned as-is.
func expandGlobs(dir string, patterns []string) ([]string, error) {
	return expandGlobsFS(os.DirFS(dir), patterns)
}

func expandGlobsFS(fsys fs.FS, patterns []string) ([]string, error) {
	var includes, excludes []string
	for _, p := range patterns {
		if rest, ok := strings.CutPrefix(p, "!"); ok {
			excludes = append(excludes, cleanPattern(rest))
			continue
		}
		includes = append(includes, p)
	}

	seen := make(map[string]bool)
	var result []string
	for _, pattern := range includes {
		if isURL(pattern) {
			if !seen[pattern] {
				seen[pattern] = true
				result = append(result, pattern)
			}
			continue
		}

		matches, err := doublestar.Glob(fsys, cleanPattern(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		sort.Strings(matches)

		for _, m := range matches {
			if seen[m] || excluded(m, excludes) {
				continue
			}
			seen[m] = true
			result = append(result, m)
		}
	}
	return result, nil
}

func excluded(name string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// cleanPattern makes a pattern relative, since fs.FS paths are unrooted.
func cleanPattern(p string) string {
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

// script is a script tag on the harness page.
type script struct {
	URL    string
	Module bool
}

// urlsFor maps expanded files to the URLs they are served under.
func urlsFor(prefix string, files []string) []string {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if isURL(f) {
			urls = append(urls, f)
			continue
		}
		urls = append(urls, prefix+escapePath(f))
	}
	return urls
}

func scriptsFor(prefix string, files []string) []script {
	scripts := make([]script, 0, len(files))
	for _, u := range urlsFor(prefix, files) {
		scripts = append(scripts, script{
			URL:    u,
			Module: strings.HasSuffix(u, ".mjs"),
		})
	}
	return scripts
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
