package grammar

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'kestrel.grammar'. Grammar warnings (declared
// token mismatches, by-default conflict resolutions) are routed through
// this hook.
func tracer() tracing.Trace {
	return tracing.Select("kestrel.grammar")
}
