// Package server holds what the MCP server shares across tools and the
// HTTP endpoints that run beside it.
//
// ServerContext carries the store, importer and syncer that tools call,
// plus a cancellable context that ends with the server. MetricsServer
// exposes Prometheus metrics and the Kubernetes probes served by
// HealthChecker on a dedicated port, so scraping never shares a listener
// with tool traffic.
package server
