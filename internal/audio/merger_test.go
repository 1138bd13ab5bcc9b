package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func newTestMerger(t *testing.T, channels int) *Merger {
	t.Helper()

	merger, err := NewMerger(MergeOptions{
		MicrophoneGain: 1.0,
		SystemGain:     1.0,
		SampleRate:     16000,
		Channels:       channels,
	}, t.TempDir(), "test_recording")
	if err != nil {
		t.Fatalf("NewMerger failed: %v", err)
	}
	return merger
}

func TestNewMergerValidation(t *testing.T) {
	opts := MergeOptions{SampleRate: 16000, Channels: 2}

	if _, err := NewMerger(MergeOptions{SampleRate: 0, Channels: 2}, "out", "x"); err == nil {
		t.Error("Expected error for zero sample rate")
	}

	if _, err := NewMerger(MergeOptions{SampleRate: 16000, Channels: 5}, "out", "x"); err == nil {
		t.Error("Expected error for invalid channel count")
	}

	if _, err := NewMerger(opts, "", "x"); err == nil {
		t.Error("Expected error for empty output directory")
	}

	// Empty base name gets a generated default.
	merger, err := NewMerger(opts, "out", "")
	if err != nil {
		t.Fatalf("NewMerger with empty base name failed: %v", err)
	}
	if merger == nil {
		t.Fatal("Expected merger instance")
	}
}

func TestMergerGainClamping(t *testing.T) {
	merger, err := NewMerger(MergeOptions{
		MicrophoneGain: 5.0,
		SystemGain:     -1.0,
		SampleRate:     16000,
		Channels:       2,
	}, t.TempDir(), "clamp")
	if err != nil {
		t.Fatalf("NewMerger failed: %v", err)
	}

	mic, sys := merger.Gains()
	if mic != MaxGain {
		t.Errorf("Expected microphone gain clamped to %f, got %f", MaxGain, mic)
	}
	if sys != MinGain {
		t.Errorf("Expected system gain clamped to %f, got %f", MinGain, sys)
	}

	merger.SetGains(1.5, 3.0)
	mic, sys = merger.Gains()
	if mic != 1.5 {
		t.Errorf("Expected microphone gain 1.5, got %f", mic)
	}
	if sys != MaxGain {
		t.Errorf("Expected system gain clamped to %f, got %f", MaxGain, sys)
	}
}

func TestMergerStartWhileRecording(t *testing.T) {
	merger := newTestMerger(t, 2)

	if err := merger.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := merger.Start(); err != ErrAlreadyRecording {
		t.Errorf("Expected ErrAlreadyRecording, got %v", err)
	}
}

func TestMergerAddWhileIdle(t *testing.T) {
	merger := newTestMerger(t, 2)

	merger.AddMicrophoneChunk([]float32{0.1, 0.2})
	merger.AddSystemChunk([]float32{0.3})

	stats := merger.Stats()
	if stats.MicrophoneSamples != 0 || stats.SystemSamples != 0 {
		t.Errorf("Expected chunks dropped while idle, got mic=%d sys=%d",
			stats.MicrophoneSamples, stats.SystemSamples)
	}
}

func TestMergeStereoLayout(t *testing.T) {
	merger := newTestMerger(t, 2)

	if err := merger.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	merger.AddMicrophoneChunk([]float32{0.5, -0.5, 0.25})
	merger.AddSystemChunk([]float32{0.1})

	out := merger.MergeStereo()

	// Output always holds max(micLen, sysLen) frames, interleaved L/R.
	if len(out) != 6 {
		t.Fatalf("Expected 6 interleaved samples, got %d", len(out))
	}

	expected := []float32{0.5, 0.1, -0.5, 0, 0.25, 0}
	for i := range expected {
		if math.Abs(float64(out[i]-expected[i])) > 1e-6 {
			t.Errorf("Sample %d: got %f, expected %f", i, out[i], expected[i])
		}
	}
}

func TestMergeMonoHeadroom(t *testing.T) {
	merger := newTestMerger(t, 1)

	if err := merger.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	merger.AddMicrophoneChunk([]float32{0.5, 1.0})
	merger.AddSystemChunk([]float32{0.5, 1.0})

	out := merger.MergeMono()
	if len(out) != 2 {
		t.Fatalf("Expected 2 mono samples, got %d", len(out))
	}

	// (0.5 + 0.5) * 0.6 = 0.6
	if math.Abs(float64(out[0])-0.6) > 1e-6 {
		t.Errorf("Expected 0.6, got %f", out[0])
	}

	// (1.0 + 1.0) * 0.6 = 1.2, clamped to 1.
	if out[1] != 1 {
		t.Errorf("Expected clamp to 1, got %f", out[1])
	}
}

func TestMergeOutputAlwaysInRange(t *testing.T) {
	gains := []float64{0, 0.5, 1, 1.5, 2}
	samples := []float32{1, -1, 0.9, -0.9, 0.5, 0}

	for _, micGain := range gains {
		for _, sysGain := range gains {
			merger := newTestMerger(t, 2)
			if err := merger.Start(); err != nil {
				t.Fatalf("Start failed: %v", err)
			}

			merger.SetGains(micGain, sysGain)
			merger.AddMicrophoneChunk(samples)
			merger.AddSystemChunk(samples)

			for i, v := range merger.MergeStereo() {
				if v < -1 || v > 1 {
					t.Errorf("Stereo gains (%f, %f) sample %d out of range: %f",
						micGain, sysGain, i, v)
				}
			}
			for i, v := range merger.MergeMono() {
				if v < -1 || v > 1 {
					t.Errorf("Mono gains (%f, %f) sample %d out of range: %f",
						micGain, sysGain, i, v)
				}
			}
		}
	}
}

func TestMergerStopIdle(t *testing.T) {
	merger := newTestMerger(t, 2)

	result, err := merger.Stop()
	if err != nil {
		t.Fatalf("Stop on idle merger failed: %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result from idle merger, got %+v", result)
	}
}

func TestMergerStopEmpty(t *testing.T) {
	merger := newTestMerger(t, 2)

	if err := merger.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := merger.Stop()
	if err != nil {
		t.Fatalf("Stop with no audio failed: %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result with no captured audio, got %+v", result)
	}

	if merger.Stats().Recording {
		t.Error("Expected merger idle after empty Stop")
	}
}

func TestMergerStopWritesWAV(t *testing.T) {
	dir := t.TempDir()
	merger, err := NewMerger(MergeOptions{
		MicrophoneGain: 1.0,
		SystemGain:     1.0,
		SampleRate:     16000,
		Channels:       2,
	}, dir, "meeting")
	if err != nil {
		t.Fatalf("NewMerger failed: %v", err)
	}

	if err := merger.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	merger.AddMicrophoneChunk(make([]float32, 1600))
	merger.AddSystemChunk(make([]float32, 800))

	result, err := merger.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if result == nil {
		t.Fatal("Expected merge result")
	}

	expectedPath := filepath.Join(dir, "meeting.wav")
	if result.FilePath != expectedPath {
		t.Errorf("Expected file path %s, got %s", expectedPath, result.FilePath)
	}
	if result.SampleRate != 16000 || result.Channels != 2 {
		t.Errorf("Unexpected format: rate=%d channels=%d", result.SampleRate, result.Channels)
	}

	data, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}

	if err := ValidateWAV(data); err != nil {
		t.Errorf("Artifact failed WAV validation: %v", err)
	}

	// 1600 mic frames dominate: duration = 1600 / 16000 = 0.1s.
	duration, err := GetWAVDuration(data)
	if err != nil {
		t.Fatalf("GetWAVDuration failed: %v", err)
	}
	if math.Abs(duration-0.1) > 1e-9 {
		t.Errorf("Expected 0.1s artifact, got %fs", duration)
	}

	// Second Stop finds the merger idle again.
	second, err := merger.Stop()
	if err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
	if second != nil {
		t.Errorf("Expected nil result from second Stop, got %+v", second)
	}
}

func TestMergerStopRetryAfterWriteFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing", "nested")
	merger, err := NewMerger(MergeOptions{
		MicrophoneGain: 1.0,
		SystemGain:     1.0,
		SampleRate:     16000,
		Channels:       1,
	}, dir, "retry")
	if err != nil {
		t.Fatalf("NewMerger failed: %v", err)
	}

	if err := merger.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	merger.AddMicrophoneChunk([]float32{0.5, 0.5, 0.5})

	if _, err := merger.Stop(); err == nil {
		t.Fatal("Expected write failure for missing directory")
	}

	// The failed Stop must leave buffers and state intact for a retry.
	stats := merger.Stats()
	if !stats.Recording {
		t.Error("Expected merger still recording after write failure")
	}
	if stats.MicrophoneSamples != 3 {
		t.Errorf("Expected buffered samples preserved, got %d", stats.MicrophoneSamples)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	result, err := merger.Stop()
	if err != nil {
		t.Fatalf("Retried Stop failed: %v", err)
	}
	if result == nil {
		t.Fatal("Expected merge result after retry")
	}
}

func TestMergerClear(t *testing.T) {
	merger := newTestMerger(t, 2)

	if err := merger.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	merger.AddMicrophoneChunk([]float32{1, 2, 3})
	merger.AddSystemChunk([]float32{4, 5})

	merger.Clear()

	stats := merger.Stats()
	if stats.Recording {
		t.Error("Expected merger idle after Clear")
	}
	if stats.MicrophoneSamples != 0 || stats.SystemSamples != 0 {
		t.Errorf("Expected buffers dropped, got mic=%d sys=%d",
			stats.MicrophoneSamples, stats.SystemSamples)
	}

	result, err := merger.Stop()
	if err != nil || result != nil {
		t.Errorf("Expected no result after Clear, got %+v / %v", result, err)
	}
}
