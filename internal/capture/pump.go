package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Source identifies which capture device produced a chunk.
type Source uint8

const (
	SourceMicrophone Source = iota
	SourceSystem
)

// String returns the lowercase source name used in logs and metric labels.
func (s Source) String() string {
	switch s {
	case SourceMicrophone:
		return "microphone"
	case SourceSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Chunk is one block of float32 samples handed off from a capture callback.
// The pump owns the Samples slice; it was copied out of the callback's buffer
// at enqueue time.
type Chunk struct {
	Source    Source
	Samples   []float32
	Timestamp time.Time
}

// PumpStats is a read-only snapshot of pump activity for monitoring.
type PumpStats struct {
	Enqueued      uint64 `json:"chunks_enqueued"`
	Dropped       uint64 `json:"chunks_dropped"`
	Processed     uint64 `json:"chunks_processed"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
}

// Pump is the suspension-free boundary between the real-time capture
// callback and the buffering side of the pipeline. Enqueue copies the
// caller's samples and performs a non-blocking send on a bounded channel;
// when the queue is full the chunk is dropped and counted rather than
// blocking the audio thread. A single consumer goroutine drains the queue
// and hands each chunk to the configured handler.
type Pump struct {
	queue   chan Chunk
	handler func(Chunk)
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	enqueued  uint64
	dropped   uint64
	processed uint64
	stopped   bool
	mu        sync.Mutex
}

// NewPump creates a pump with the given bounded queue size. The handler runs
// on the consumer goroutine, one chunk at a time, in enqueue order.
func NewPump(queueSize int, handler func(Chunk), logger *slog.Logger) *Pump {
	if queueSize < 1 {
		queueSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pump{
		queue:   make(chan Chunk, queueSize),
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the consumer goroutine.
func (p *Pump) Start() {
	p.wg.Add(1)
	go p.consumeLoop()
}

// Enqueue copies samples from the capture callback and queues them. It never
// blocks: on a full queue the chunk is dropped and false is returned. Calls
// after Stop are dropped the same way.
func (p *Pump) Enqueue(source Source, samples []float32) bool {
	if len(samples) == 0 {
		return false
	}

	copied := make([]float32, len(samples))
	copy(copied, samples)

	chunk := Chunk{
		Source:    source,
		Samples:   copied,
		Timestamp: time.Now(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		p.dropped++
		return false
	}

	select {
	case p.queue <- chunk:
		p.enqueued++
		return true
	default:
		p.dropped++
		return false
	}
}

// Stop closes the intake and waits for queued chunks to drain through the
// handler. It is safe to call once; subsequent Enqueue calls are dropped.
func (p *Pump) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()

	if p.logger != nil {
		stats := p.Stats()
		p.logger.Debug("Capture pump stopped",
			slog.Uint64("enqueued", stats.Enqueued),
			slog.Uint64("dropped", stats.Dropped),
			slog.Uint64("processed", stats.Processed),
		)
	}
}

// Stats returns current pump counters.
func (p *Pump) Stats() PumpStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PumpStats{
		Enqueued:      p.enqueued,
		Dropped:       p.dropped,
		Processed:     p.processed,
		QueueDepth:    len(p.queue),
		QueueCapacity: cap(p.queue),
	}
}

// consumeLoop drains the queue until it is closed, dispatching every chunk.
func (p *Pump) consumeLoop() {
	defer p.wg.Done()

	for chunk := range p.queue {
		p.handler(chunk)

		p.mu.Lock()
		p.processed++
		p.mu.Unlock()
	}
}
