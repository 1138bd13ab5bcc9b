// Package server implements the HTTP monitoring API: health, session
// listing, configuration and statistics endpoints plus the Prometheus
// metrics handler. No audio ever crosses this surface.
package server
