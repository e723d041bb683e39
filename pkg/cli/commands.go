package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perbu/jasmine-browser-runner/pkg/config"
)

func newServeCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start a server for running the specs in a browser by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, deps)
		},
	}
}

func runServe(cmd *cobra.Command, deps *Deps) error {
	opts, err := config.Load(deps.BaseDir, cmd.Flags())
	if err != nil {
		return err
	}
	logger := newLogger(cmd, deps.Stderr)
	return deps.Serve(cmd.Context(), opts, logger)
}

func newRunSpecsCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "runSpecs",
		Short: "Run the specs in a browser and report the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.Load(deps.BaseDir, cmd.Flags())
			if err != nil {
				return err
			}
			logger := newLogger(cmd, deps.Stderr)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}

			code := ExitSuccess
			if _, err := deps.RunSpecs(ctx, opts, logger, func(c int) { code = c }); err != nil {
				if errors.Is(err, context.DeadlineExceeded) && opts.Timeout > 0 {
					return WrapExitError(ExitFailure, fmt.Sprintf("run timed out after %s", opts.Timeout), err)
				}
				return WrapExitError(ExitFailure, "", err)
			}
			if code != ExitSuccess {
				return NewExitError(code, "")
			}
			return nil
		},
	}
}

func newInitCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigPath(deps.BaseDir, cmd.Flags())
			created, err := config.Init(path)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(deps.Stdout, "Wrote %s\n", path)
			} else {
				fmt.Fprintf(deps.Stdout, "%s already exists\n", path)
			}
			return nil
		},
	}
}

func newVersionCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(deps.Stdout, "jasmine-browser-runner v%s\n", deps.Version)

			// The version command works without a config file
			opts, err := config.Load(deps.BaseDir, cmd.Flags())
			if err != nil {
				if !errors.Is(err, config.ErrConfigNotFound) {
					return err
				}
				opts = defaultOptions(deps.BaseDir)
			}

			coreVersion, err := deps.CoreVersion(opts)
			if err != nil {
				fmt.Fprintln(deps.Stdout, "jasmine-core not found")
				return nil
			}
			fmt.Fprintf(deps.Stdout, "jasmine-core v%s\n", coreVersion)
			return nil
		},
	}
}

// defaultOptions are the options used when no config file exists
func defaultOptions(baseDir string) *config.RunOptions {
	defaults := config.Defaults(baseDir)
	opts := &config.RunOptions{ProjectBaseDir: baseDir}
	if p, ok := defaults["jasmineCorePath"].(string); ok {
		opts.JasmineCorePath = p
	}
	return opts
}
