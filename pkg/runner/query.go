package runner

import (
	"net/url"
	"strconv"
	"strings"
)

// Transport names, as understood by the page's boot script
const (
	TransportBatch   = "batch"
	TransportJSONDom = "jsonDom"
)

// Transport returns the name of the event transport the options select.
func (o Options) Transport() string {
	if o.JSONDomReporter {
		return TransportJSONDom
	}
	return TransportBatch
}

// Query encodes the options as harness URL parameters.
func (o Options) Query() url.Values {
	q := url.Values{}

	random := o.Random
	if random == nil {
		random = o.Env.Random
	}
	if random != nil {
		q.Set("random", strconv.FormatBool(*random))
	}

	seed := o.Seed
	if seed == "" {
		seed = o.Env.Seed
	}
	if seed != "" {
		q.Set("seed", seed)
	}

	if o.Filter != "" {
		q.Set("spec", o.Filter)
	}

	setBool(q, "stopOnSpecFailure", o.Env.StopOnSpecFailure)
	setBool(q, "stopSpecOnExpectationFailure", o.Env.StopSpecOnExpectationFailure)
	setBool(q, "hideDisabled", o.Env.HideDisabled)

	q.Set("transport", o.Transport())
	return q
}

func setBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}

// HarnessURL appends the options' query to the server's base URL.
func HarnessURL(base string, opts Options) string {
	base = strings.TrimRight(base, "/") + "/"
	return base + "?" + opts.Query().Encode()
}
