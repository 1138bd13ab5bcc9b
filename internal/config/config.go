package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete recorder configuration
type Config struct {
	Recording RecordingConfig `yaml:"recording"`
	Mixer     MixerConfig     `yaml:"mixer"`
	Levels    LevelsConfig    `yaml:"levels"`
	Speaker   SpeakerConfig   `yaml:"speaker"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RecordingConfig contains capture and merge parameters
type RecordingConfig struct {
	SampleRate  int     `yaml:"sample_rate"`
	Channels    int     `yaml:"channels"`
	OutputDir   string  `yaml:"output_dir"`
	MaxDuration float64 `yaml:"max_duration"` // seconds, 0 disables the cap
	QueueSize   int     `yaml:"queue_size"`   // capture hand-off queue, in chunks
}

// MixerConfig contains the per-source gain multipliers
type MixerConfig struct {
	MicrophoneGain float64 `yaml:"microphone_gain"`
	SystemGain     float64 `yaml:"system_gain"`
}

// LevelsConfig contains level metering parameters
type LevelsConfig struct {
	ReportInterval  float64 `yaml:"report_interval"` // seconds between UI reports
	SmoothingFactor float64 `yaml:"smoothing_factor"`
}

// SpeakerConfig contains speaker-mapping heuristics tuning
type SpeakerConfig struct {
	EchoSimilarityThreshold float64 `yaml:"echo_similarity_threshold"`
	EchoMaxDelay            float64 `yaml:"echo_max_delay"`       // seconds
	OverlapMinDuration      float64 `yaml:"overlap_min_duration"` // seconds
	MinPhraseLength         int     `yaml:"min_phrase_length"`
}

// HTTPConfig contains monitoring HTTP server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Recording.Validate(); err != nil {
		return fmt.Errorf("recording config: %w", err)
	}

	if err := c.Mixer.Validate(); err != nil {
		return fmt.Errorf("mixer config: %w", err)
	}

	if err := c.Levels.Validate(); err != nil {
		return fmt.Errorf("levels config: %w", err)
	}

	if err := c.Speaker.Validate(); err != nil {
		return fmt.Errorf("speaker config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates recording configuration
func (r *RecordingConfig) Validate() error {
	if r.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", r.SampleRate)
	}

	if r.Channels != 1 && r.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mixed mono) or 2 (split stereo), got %d", r.Channels)
	}

	if r.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}

	if r.MaxDuration < 0 {
		return fmt.Errorf("max_duration cannot be negative, got %f", r.MaxDuration)
	}

	if r.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", r.QueueSize)
	}

	return nil
}

// Validate validates mixer configuration
func (m *MixerConfig) Validate() error {
	if m.MicrophoneGain < 0 || m.MicrophoneGain > 2 {
		return fmt.Errorf("microphone_gain must be between 0 and 2, got %f", m.MicrophoneGain)
	}

	if m.SystemGain < 0 || m.SystemGain > 2 {
		return fmt.Errorf("system_gain must be between 0 and 2, got %f", m.SystemGain)
	}

	return nil
}

// Validate validates levels configuration
func (l *LevelsConfig) Validate() error {
	if l.ReportInterval <= 0 {
		return fmt.Errorf("report_interval must be positive, got %f", l.ReportInterval)
	}

	if l.SmoothingFactor <= 0 || l.SmoothingFactor > 1 {
		return fmt.Errorf("smoothing_factor must be in (0, 1], got %f", l.SmoothingFactor)
	}

	return nil
}

// Validate validates speaker-mapping configuration
func (s *SpeakerConfig) Validate() error {
	if s.EchoSimilarityThreshold < 0 || s.EchoSimilarityThreshold > 1 {
		return fmt.Errorf("echo_similarity_threshold must be between 0 and 1, got %f", s.EchoSimilarityThreshold)
	}

	if s.EchoMaxDelay < 0 {
		return fmt.Errorf("echo_max_delay cannot be negative, got %f", s.EchoMaxDelay)
	}

	if s.OverlapMinDuration < 0 {
		return fmt.Errorf("overlap_min_duration cannot be negative, got %f", s.OverlapMinDuration)
	}

	if s.MinPhraseLength < 0 {
		return fmt.Errorf("min_phrase_length cannot be negative, got %d", s.MinPhraseLength)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetMaxDuration returns the recording cap as a time.Duration (0 = uncapped)
func (r *RecordingConfig) GetMaxDuration() time.Duration {
	return time.Duration(r.MaxDuration * float64(time.Second))
}

// GetReportInterval returns the level reporting cadence as a time.Duration
func (l *LevelsConfig) GetReportInterval() time.Duration {
	return time.Duration(l.ReportInterval * float64(time.Second))
}
