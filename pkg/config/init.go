package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultConfigJSON is written by init.
const defaultConfigJSON = `{
  "srcDir": "src",
  "srcFiles": [
    "**/*.js"
  ],
  "specDir": "spec",
  "specFiles": [
    "**/*[sS]pec.js"
  ],
  "helpers": [
    "helpers/**/*.js"
  ],
  "env": {
    "stopSpecOnExpectationFailure": false,
    "stopOnSpecFailure": false,
    "random": true
  },
  "browser": {
    "name": "firefox"
  }
}
`

// Scaffold returns the options init writes.
func Scaffold() RunOptions {
	return RunOptions{
		SrcDir:    "src",
		SrcFiles:  []string{"**/*.js"},
		SpecDir:   "spec",
		SpecFiles: []string{"**/*[sS]pec.js"},
		Helpers:   []string{"helpers/**/*.js"},
		Env: Env{
			StopSpecOnExpectationFailure: Bool(false),
			StopOnSpecFailure:            Bool(false),
			Random:                       Bool(true),
		},
		Browser: Browser{Name: "firefox"},
	}
}

// Init writes the default config to path unless a file already exists
// there. Existing files are never touched. It reports whether a file
// was created.
func Init(path string) (bool, error) {
	data, err := scaffoldBytes(path)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("creating config file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, fmt.Errorf("writing config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("writing config file: %w", err)
	}
	return true, nil
}

func scaffoldBytes(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(Scaffold())
		if err != nil {
			return nil, fmt.Errorf("encoding config: %w", err)
		}
		return data, nil
	default:
		return []byte(defaultConfigJSON), nil
	}
}
