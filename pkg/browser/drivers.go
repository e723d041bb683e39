package browser

import (
	"fmt"
	"strconv"

	"github.com/perbu/jasmine-browser-runner/pkg/config"
	"github.com/perbu/jasmine-browser-runner/pkg/webdriver"
)

// Driver describes the local WebDriver executable for a browser.
type Driver struct {
	// BrowserName is the W3C browserName capability
	BrowserName string
	Executable  string
	Args        webdriver.PortArgs
	// Headless is true for the headless variants
	Headless bool
}

func dashDashPort(port int) []string {
	return []string{"--port", strconv.Itoa(port)}
}

func dashDashPortEq(port int) []string {
	return []string{"--port=" + strconv.Itoa(port)}
}

func slashPort(port int) []string {
	return []string{"/port=" + strconv.Itoa(port)}
}

var drivers = map[string]Driver{
	"firefox":           {BrowserName: "firefox", Executable: "geckodriver", Args: dashDashPort},
	"headlessFirefox":   {BrowserName: "firefox", Executable: "geckodriver", Args: dashDashPort, Headless: true},
	"safari":            {BrowserName: "safari", Executable: "safaridriver", Args: dashDashPort},
	"MicrosoftEdge":     {BrowserName: "MicrosoftEdge", Executable: "msedgedriver", Args: dashDashPortEq},
	"chrome":            {BrowserName: "chrome", Executable: "chromedriver", Args: dashDashPortEq},
	"headlessChrome":    {BrowserName: "chrome", Executable: "chromedriver", Args: dashDashPortEq, Headless: true},
	"internet explorer": {BrowserName: "internet explorer", Executable: "IEDriverServer", Args: slashPort},
}

// LocalDriver looks up the driver for a browser name.
func LocalDriver(name string) (Driver, bool) {
	if IsInternetExplorer(name) {
		name = "internet explorer"
	}
	d, ok := drivers[name]
	return d, ok
}

// Capabilities derives W3C capabilities for name and merges the user's
// capabilities on top. Unknown names pass through as browserName, which
// lets a grid serve browsers we have no driver table entry for.
func Capabilities(name string, cfg config.Browser) (webdriver.Capabilities, error) {
	caps := webdriver.Capabilities{"browserName": name}

	d, known := LocalDriver(name)
	if known {
		caps["browserName"] = d.BrowserName
		var args []string
		switch d.BrowserName {
		case "firefox":
			if d.Headless {
				args = append(args, "-headless")
			}
			caps["moz:firefoxOptions"] = browserOptions(args, cfg.Binary)
		case "chrome":
			if d.Headless {
				args = append(args, "--headless=new")
			}
			caps["goog:chromeOptions"] = browserOptions(args, cfg.Binary)
		case "MicrosoftEdge":
			if cfg.Binary != "" {
				caps["ms:edgeOptions"] = browserOptions(nil, cfg.Binary)
			}
		}
	}

	for k, v := range cfg.Capabilities {
		if k == "" {
			return nil, fmt.Errorf("browser capabilities contain an empty key")
		}
		caps[k] = mergeValue(caps[k], v)
	}
	return caps, nil
}

func browserOptions(args []string, binary string) map[string]any {
	opts := map[string]any{}
	if len(args) > 0 {
		opts["args"] = args
	}
	if binary != "" {
		opts["binary"] = binary
	}
	return opts
}

// merge layers extra over caps, one level deep for nested option maps.
func merge(caps webdriver.Capabilities, extra map[string]any) webdriver.Capabilities {
	for k, v := range extra {
		caps[k] = mergeValue(caps[k], v)
	}
	return caps
}

func mergeValue(base, override any) any {
	bm, ok1 := base.(map[string]any)
	om, ok2 := override.(map[string]any)
	if !ok1 || !ok2 {
		return override
	}
	out := make(map[string]any, len(bm)+len(om))
	for k, v := range bm {
		out[k] = v
	}
	for k, v := range om {
		out[k] = v
	}
	return out
}
