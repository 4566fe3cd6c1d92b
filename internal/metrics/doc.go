// Package metrics defines the Prometheus collectors for the media library
// server. All collectors are registered at import time via promauto.
package metrics
