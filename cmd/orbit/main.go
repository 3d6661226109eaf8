// Orbit is a multi-backend AI request orchestration core for customer
// support chat.
//
// It sits between a dialogue layer and a set of remote completion backends,
// providing:
//   - Per-session rate limiting and cost budgets
//   - Normalized-key response caching
//   - Deterministic, lexicon-driven backend selection
//   - Sequential failover with per-backend circuit breakers
//   - Fail-closed output sanitization
//   - Rolling performance monitoring with alerts and recommendations
//
// Usage:
//
//	# Start the server with default configuration
//	orbit run
//
//	# Start with a custom configuration file
//	orbit run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	orbit validate --config /path/to/config.yaml
//
//	# Show version information
//	orbit version
package main

func main() {
	Execute()
}
