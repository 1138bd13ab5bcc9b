package audio

import (
	"sync"
	"time"
)

// StreamBuffer accumulates chunked float32 samples for a single capture
// source. Chunks are defensively copied on append because capture callbacks
// commonly reuse their sample buffers as soon as the callback returns.
type StreamBuffer struct {
	name string

	chunks       [][]float32
	totalSamples int
	lastAppend   time.Time

	mu sync.RWMutex
}

// NewStreamBuffer creates a buffer for the named capture source.
func NewStreamBuffer(name string) *StreamBuffer {
	return &StreamBuffer{
		name:   name,
		chunks: make([][]float32, 0, 64),
	}
}

// Append copies the given samples into the buffer. Empty chunks are ignored.
func (b *StreamBuffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}

	chunk := make([]float32, len(samples))
	copy(chunk, samples)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, chunk)
	b.totalSamples += len(chunk)
	b.lastAppend = time.Now()
}

// Flatten concatenates all buffered chunks into one contiguous sample slice.
func (b *StreamBuffer) Flatten() []float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]float32, 0, b.totalSamples)
	for _, chunk := range b.chunks {
		out = append(out, chunk...)
	}
	return out
}

// ChunkCount returns the number of buffered chunks.
func (b *StreamBuffer) ChunkCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.chunks)
}

// SampleCount returns the total number of buffered samples.
func (b *StreamBuffer) SampleCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.totalSamples
}

// Duration returns the buffered audio duration at the given sample rate.
func (b *StreamBuffer) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	seconds := float64(b.totalSamples) / float64(sampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// LastAppend returns the time of the most recent append.
func (b *StreamBuffer) LastAppend() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastAppend
}

// Name returns the source name this buffer was created with.
func (b *StreamBuffer) Name() string {
	return b.name
}

// Reset drops all buffered chunks.
func (b *StreamBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = b.chunks[:0]
	b.totalSamples = 0
}
