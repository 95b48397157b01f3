// Package server exposes operational endpoints for long-running commands.
//
// MetricsServer serves Prometheus metrics on a dedicated port together with
// health endpoints. HealthChecker reports liveness unconditionally and
// readiness from an attachment probe, so a scraper can tell whether the
// watcher still holds a DevTools connection to the application.
package server
