package driver

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'kestrel.driver'.
func tracer() tracing.Trace {
	return tracing.Select("kestrel.driver")
}
