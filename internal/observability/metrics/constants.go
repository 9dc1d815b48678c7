// Package metrics provides the Prometheus collectors of codeseek components.
package metrics

import "time"

// Namespace prefixes every metric name.
const Namespace = "codeseek"

// Provider outcome label values.
const (
	// OutcomeHit means the provider returned a candidate URL.
	OutcomeHit = "hit"
	// OutcomeMiss means the provider found nothing.
	OutcomeMiss = "miss"
	// OutcomeError means the provider failed.
	OutcomeError = "error"
	// OutcomeRejected means the candidate failed image validation.
	OutcomeRejected = "rejected"
)

// StatusError labels upstream requests that got no HTTP response.
const StatusError = "error"

// Delivery tiers used by the delivery fallback counter.
const (
	TierRemote = "remote"
	TierLocal  = "local"
	TierText   = "text"
)

// Time constants.
const (
	// ShutdownTimeout is the timeout for graceful shutdown of the metrics server.
	ShutdownTimeout = 5 * time.Second
)
