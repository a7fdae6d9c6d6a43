package models

import "errors"

// Failure taxonomy for pillar internals. Pillars absorb these into documented
// default values; only ErrCostLimit may abort a pillar's query outright.
var (
	// ErrDataUnavailable signals an empty ledger result. Callers substitute an
	// empty or default entity instead of failing the run.
	ErrDataUnavailable = errors.New("ledger data unavailable")

	// ErrExternalTool signals a static-analyzer crash or timeout.
	ErrExternalTool = errors.New("external tool failure")

	// ErrModelFit signals that the seasonal model failed to converge.
	ErrModelFit = errors.New("model fit failure")

	// ErrCostLimit signals a pre-flight scan estimate over the configured
	// ceiling. The query is never executed and is not retried.
	ErrCostLimit = errors.New("query cost limit exceeded")

	// ErrNetwork signals an unreachable registry or API endpoint.
	ErrNetwork = errors.New("network error")
)
