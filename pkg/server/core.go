package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Core locates a jasmine-core package on disk.
type Core struct {
	// Root is the package directory, containing package.json
	Root string
}

// jasmineScripts are loaded in this order, before the runner's boot script.
var jasmineScripts = []string{"jasmine.js", "jasmine-html.js", "boot0.js"}

// jasmineStyles are loaded before any project css.
var jasmineStyles = []string{"jasmine.css"}

// LibDir returns the directory holding jasmine.js and friends.
func (c Core) LibDir() string {
	return filepath.Join(c.Root, "lib", "jasmine-core")
}

// Check verifies that the files the harness page loads are present.
func (c Core) Check() error {
	for _, name := range append(append([]string{}, jasmineScripts...), jasmineStyles...) {
		path := filepath.Join(c.LibDir(), name)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("jasmine-core not usable at %s: %w", c.Root, err)
		}
	}
	return nil
}

// Version reads the version from the package manifest.
func (c Core) Version() (string, error) {
	data, err := os.ReadFile(filepath.Join(c.Root, "package.json"))
	if err != nil {
		return "", fmt.Errorf("reading jasmine-core package.json: %w", err)
	}
	var manifest struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", fmt.Errorf("parsing jasmine-core package.json: %w", err)
	}
	if manifest.Version == "" {
		return "", fmt.Errorf("jasmine-core package.json has no version")
	}
	return manifest.Version, nil
}
