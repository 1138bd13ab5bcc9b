// Package metrics defines the Prometheus collectors for the meeting
// recorder pipeline and thin recording helpers around them.
package metrics
