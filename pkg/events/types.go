// Package events carries run lifecycle notifications over a broker.
package events

// Run lifecycle events (published to the /run stream)

// ServerStarted is published when the harness server is listening
type ServerStarted struct {
	RunID string
	URL   string
	Port  int
}

// BrowserLaunched is published when a browser session is ready
type BrowserLaunched struct {
	RunID   string
	Browser string
}

// RunStarted is published when the runner starts polling the page
type RunStarted struct {
	RunID     string
	Transport string
}

// RunFinished is published when the suite reports jasmineDone
type RunFinished struct {
	RunID  string
	Status string
}

// RunFailed is published when a run ends without a result
type RunFailed struct {
	RunID string
	Error string
}

// TeardownComplete is published after the browser and server are released
type TeardownComplete struct {
	RunID  string
	Errors int
}
