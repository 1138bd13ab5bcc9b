package level

import "sync"

// Snapshot is one flushed level report, emitted at UI cadence.
type Snapshot struct {
	RMS    float64 `json:"rms"`  // averaged RMS on the 0-100 scale
	Peak   float64 `json:"peak"` // max peak on the 0-100 scale
	DB     float64 `json:"db"`   // averaged RMS converted to decibels
	Frames int     `json:"frames"`
}

// Accumulator collects per-frame level measurements between UI reports. The
// capture path calls AccumulateFrame once per audio frame; a slower consumer
// calls Flush once per reporting tick. The internal mutex serializes the two
// roles, but the contract is still single-writer/single-flusher: only one
// goroutine accumulates and only one flushes.
type Accumulator struct {
	rmsSum float64
	peak   float64
	frames int

	totalFlushes uint64

	mu sync.Mutex
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AccumulateFrame folds one frame's RMS and peak into the running window.
// Empty frames still count towards the frame total so reporting cadence
// stays observable during silence.
func (a *Accumulator) AccumulateFrame(samples []float32) {
	rms := CalculateRMS(samples)
	peak := CalculatePeak(samples)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.rmsSum += rms
	if peak > a.peak {
		a.peak = peak
	}
	a.frames++
}

// Flush averages the accumulated RMS across the window, converts it to
// decibels, and resets the accumulator. Flushing an empty window returns a
// silence snapshot (RMS 0, peak 0, DB at the floor).
func (a *Accumulator) Flush() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{DB: DBFloor}
	if a.frames > 0 {
		avgRMS := a.rmsSum / float64(a.frames)
		snap = Snapshot{
			RMS:    avgRMS,
			Peak:   a.peak,
			DB:     LinearToDB(avgRMS / meterScale),
			Frames: a.frames,
		}
	}

	a.rmsSum = 0
	a.peak = 0
	a.frames = 0
	a.totalFlushes++

	return snap
}

// Reset zeroes the window without producing a snapshot.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rmsSum = 0
	a.peak = 0
	a.frames = 0
}

// PendingFrames returns the number of frames accumulated since the last flush.
func (a *Accumulator) PendingFrames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames
}

// TotalFlushes returns how many reporting windows have been flushed.
func (a *Accumulator) TotalFlushes() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalFlushes
}
