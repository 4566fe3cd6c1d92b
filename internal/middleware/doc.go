// Package middleware provides HTTP middleware for the media library server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with path normalization
//   - Gzip response compression for JSON payloads
//   - Configurable filtering for static files and health checks
package middleware
