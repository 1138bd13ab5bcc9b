// Package capture provides the hand-off boundary between real-time audio
// capture callbacks and the buffering pipeline. Chunks are copied and passed
// through a bounded single-producer/single-consumer channel; the callback
// side never blocks.
package capture
