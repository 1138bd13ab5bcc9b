package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// MinGain and MaxGain bound the per-source gain multipliers.
	MinGain = 0.0
	MaxGain = 2.0

	// monoHeadroom is applied after summing both sources in mono mode so
	// that two near-full-scale signals do not clip.
	monoHeadroom = 0.6
)

// ErrAlreadyRecording is returned by Start when a recording is in progress.
// Starting over would silently discard in-flight audio, so the caller must
// stop or clear the merger explicitly first.
var ErrAlreadyRecording = errors.New("recording already in progress")

// MergeOptions configures one recording session. Gains outside [0, 2] are
// clamped at construction and in SetGains.
type MergeOptions struct {
	MicrophoneGain float64 `yaml:"microphone_gain"`
	SystemGain     float64 `yaml:"system_gain"`
	SampleRate     int     `yaml:"sample_rate"`
	Channels       int     `yaml:"channels"`
}

// MergedResult describes a completed recording artifact. It is produced at
// most once per Stop call and never mutated afterwards.
type MergedResult struct {
	FilePath   string  `json:"file_path"`
	Duration   float64 `json:"duration_seconds"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
}

// BufferStats is a read-only snapshot of the merger's buffered state.
type BufferStats struct {
	Recording         bool `json:"recording"`
	MicrophoneChunks  int  `json:"microphone_chunks"`
	SystemChunks      int  `json:"system_chunks"`
	MicrophoneSamples int  `json:"microphone_samples"`
	SystemSamples     int  `json:"system_samples"`
}

// Merger accumulates two live sample streams and mixes them into a single
// 16-bit PCM WAV file. It is a two-state machine: Idle -> Start -> Recording
// -> Stop -> Idle. One merger serves exactly one recording session at a time;
// callers needing concurrent recordings construct one merger each.
type Merger struct {
	micGain float64
	sysGain float64

	sampleRate int
	channels   int

	outputDir string
	baseName  string

	mic *StreamBuffer
	sys *StreamBuffer

	recording bool
	startTime time.Time

	mu sync.Mutex
}

// NewMerger creates a merger writing WAV artifacts named after baseName into
// outputDir.
func NewMerger(opts MergeOptions, outputDir, baseName string) (*Merger, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", opts.SampleRate)
	}

	if opts.Channels != 1 && opts.Channels != 2 {
		return nil, fmt.Errorf("channels must be 1 or 2, got %d", opts.Channels)
	}

	if outputDir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}

	if baseName == "" {
		baseName = fmt.Sprintf("recording_%d", time.Now().Unix())
	}

	return &Merger{
		micGain:    clampGain(opts.MicrophoneGain),
		sysGain:    clampGain(opts.SystemGain),
		sampleRate: opts.SampleRate,
		channels:   opts.Channels,
		outputDir:  outputDir,
		baseName:   baseName,
		mic:        NewStreamBuffer("microphone"),
		sys:        NewStreamBuffer("system"),
	}, nil
}

// Start clears both source buffers and begins a new recording session.
func (m *Merger) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recording {
		return ErrAlreadyRecording
	}

	m.mic.Reset()
	m.sys.Reset()
	m.recording = true
	m.startTime = time.Now()

	return nil
}

// AddMicrophoneChunk buffers one microphone chunk. It is a no-op while idle.
func (m *Merger) AddMicrophoneChunk(samples []float32) {
	m.mu.Lock()
	recording := m.recording
	m.mu.Unlock()

	if !recording {
		return
	}

	m.mic.Append(samples)
}

// AddSystemChunk buffers one system-loopback chunk. It is a no-op while idle.
func (m *Merger) AddSystemChunk(samples []float32) {
	m.mu.Lock()
	recording := m.recording
	m.mu.Unlock()

	if !recording {
		return
	}

	m.sys.Append(samples)
}

// SetGains updates both gains, clamping each to [0, 2].
func (m *Merger) SetGains(micGain, sysGain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.micGain = clampGain(micGain)
	m.sysGain = clampGain(sysGain)
}

// Gains returns the currently configured microphone and system gains.
func (m *Merger) Gains() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.micGain, m.sysGain
}

// MergeStereo flattens both sources and interleaves them into a stereo
// stream: microphone on the left channel, system audio on the right. The
// output holds max(micLen, sysLen) frames; the shorter source is zero-padded.
func (m *Merger) MergeStereo() []float32 {
	m.mu.Lock()
	micGain, sysGain := m.micGain, m.sysGain
	m.mu.Unlock()

	mic := m.mic.Flatten()
	sys := m.sys.Flatten()

	frames := len(mic)
	if len(sys) > frames {
		frames = len(sys)
	}

	out := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		var left, right float64
		if i < len(mic) {
			left = float64(mic[i]) * micGain
		}
		if i < len(sys) {
			right = float64(sys[i]) * sysGain
		}
		out[i*2] = float32(clampSample(left))
		out[i*2+1] = float32(clampSample(right))
	}

	return out
}

// MergeMono flattens both sources and sums them into a single channel with a
// fixed headroom factor. Missing samples from the shorter source count as 0.
func (m *Merger) MergeMono() []float32 {
	m.mu.Lock()
	micGain, sysGain := m.micGain, m.sysGain
	m.mu.Unlock()

	mic := m.mic.Flatten()
	sys := m.sys.Flatten()

	frames := len(mic)
	if len(sys) > frames {
		frames = len(sys)
	}

	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		if i < len(mic) {
			sum += float64(mic[i]) * micGain
		}
		if i < len(sys) {
			sum += float64(sys[i]) * sysGain
		}
		out[i] = float32(clampSample(sum * monoHeadroom))
	}

	return out
}

// Stop ends the recording, mixes both buffers per the configured channel
// count and writes the WAV artifact. It returns (nil, nil) when the merger is
// idle or nothing was captured. On a write failure the merger stays in the
// Recording state with its buffers intact, so the caller may retry Stop.
func (m *Merger) Stop() (*MergedResult, error) {
	m.mu.Lock()
	if !m.recording {
		m.mu.Unlock()
		return nil, nil
	}
	duration := time.Since(m.startTime)
	channels := m.channels
	m.mu.Unlock()

	var merged []float32
	if channels == 2 {
		merged = m.MergeStereo()
	} else {
		merged = m.MergeMono()
	}

	if len(merged) == 0 {
		m.mu.Lock()
		m.recording = false
		m.mu.Unlock()
		return nil, nil
	}

	wavData, err := EncodeWAV(FloatToInt16(merged), m.sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged audio: %w", err)
	}

	filePath := filepath.Join(m.outputDir, m.baseName+".wav")
	if err := os.WriteFile(filePath, wavData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write WAV file %s: %w", filePath, err)
	}

	m.mu.Lock()
	m.recording = false
	m.mu.Unlock()
	m.mic.Reset()
	m.sys.Reset()

	return &MergedResult{
		FilePath:   filePath,
		Duration:   duration.Seconds(),
		SampleRate: m.sampleRate,
		Channels:   channels,
	}, nil
}

// Clear drops all buffered audio and returns the merger to Idle without
// producing a result. Used on abort/cancel paths.
func (m *Merger) Clear() {
	m.mu.Lock()
	m.recording = false
	m.mu.Unlock()

	m.mic.Reset()
	m.sys.Reset()
}

// Stats returns a read-only snapshot for monitoring.
func (m *Merger) Stats() BufferStats {
	m.mu.Lock()
	recording := m.recording
	m.mu.Unlock()

	return BufferStats{
		Recording:         recording,
		MicrophoneChunks:  m.mic.ChunkCount(),
		SystemChunks:      m.sys.ChunkCount(),
		MicrophoneSamples: m.mic.SampleCount(),
		SystemSamples:     m.sys.SampleCount(),
	}
}

// SampleRate returns the configured output sample rate.
func (m *Merger) SampleRate() int {
	return m.sampleRate
}

// Channels returns the configured output channel count.
func (m *Merger) Channels() int {
	return m.channels
}

func clampGain(g float64) float64 {
	if g < MinGain {
		return MinGain
	}
	if g > MaxGain {
		return MaxGain
	}
	return g
}

func clampSample(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
