// Package observability owns process metrics and HTTP request logging.
//
// Metrics live on the prometheus default registry and are exposed through
// Handler on a listener separate from the update gateway.
package observability
