package harness

import (
	"context"
	"fmt"

	"github.com/perbu/jasmine-browser-runner/pkg/config"
)

// DefaultServePort is used by Serve when no port is configured.
const DefaultServePort = 8888

// Serve runs the server until ctx is done, for running the suite in a
// browser by hand.
func Serve(ctx context.Context, opts *config.RunOptions, deps Deps) error {
	deps = deps.withDefaults()

	o := *opts
	if o.Port == 0 {
		o.Port = DefaultServePort
	}

	srv := deps.NewServer(&o, deps.Logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	fmt.Fprintf(deps.Stdout, "Jasmine server is running here: %s\n", baseURL(&o, srv.Port()))
	fmt.Fprintf(deps.Stdout, "Jasmine tests are here:         %s\n", o.Path(o.SpecDir))
	fmt.Fprintf(deps.Stdout, "Source files are here:          %s\n", o.Path(o.SrcDir))

	<-ctx.Done()
	deps.Logger.Debug("Stopping server")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deps.TeardownTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	return nil
}
