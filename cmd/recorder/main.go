package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Naim08/Meeting-Tool-sub002/internal/audio"
	"github.com/Naim08/Meeting-Tool-sub002/internal/capture"
	"github.com/Naim08/Meeting-Tool-sub002/internal/config"
	"github.com/Naim08/Meeting-Tool-sub002/internal/level"
	"github.com/Naim08/Meeting-Tool-sub002/internal/metrics"
	"github.com/Naim08/Meeting-Tool-sub002/internal/server"
	"github.com/Naim08/Meeting-Tool-sub002/internal/session"
	"github.com/Naim08/Meeting-Tool-sub002/internal/speaker"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "meeting-recorder"
	serviceVersion    = "1.0.0"

	// offlineChunkSize mimics a typical hardware capture buffer.
	offlineChunkSize = 1024
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	micPath := flag.String("mic", "", "Microphone WAV file for offline merging")
	systemPath := flag.String("system", "", "System-audio WAV file for offline merging")
	micTranscript := flag.String("transcripts-mic", "", "Microphone transcript JSON for speaker mapping")
	sysTranscript := flag.String("transcripts-system", "", "System-audio transcript JSON for speaker mapping")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Recording.SampleRate),
		slog.Int("channels", cfg.Recording.Channels),
		slog.String("output_dir", cfg.Recording.OutputDir),
		slog.Float64("max_duration", cfg.Recording.MaxDuration),
		slog.Float64("microphone_gain", cfg.Mixer.MicrophoneGain),
		slog.Float64("system_gain", cfg.Mixer.SystemGain),
		slog.String("log_level", cfg.Logging.Level),
	)

	appMetrics := metrics.NewMetrics(prometheus.DefaultRegisterer)

	managerConfig := session.ManagerConfig{
		MergeOptions: audio.MergeOptions{
			MicrophoneGain: cfg.Mixer.MicrophoneGain,
			SystemGain:     cfg.Mixer.SystemGain,
			SampleRate:     cfg.Recording.SampleRate,
			Channels:       cfg.Recording.Channels,
		},
		OutputDir:      cfg.Recording.OutputDir,
		QueueSize:      cfg.Recording.QueueSize,
		MaxDuration:    cfg.Recording.GetMaxDuration(),
		ReportInterval: cfg.Levels.GetReportInterval(),
		SpeakerConfig: speaker.Config{
			EchoSimilarityThreshold: cfg.Speaker.EchoSimilarityThreshold,
			EchoMaxDelay:            cfg.Speaker.EchoMaxDelay,
			OverlapMinDuration:      cfg.Speaker.OverlapMinDuration,
			MinPhraseLength:         cfg.Speaker.MinPhraseLength,
		},
	}

	levelFunc := func(sessionID string, source capture.Source, snap level.Snapshot) {
		logger.Debug("Level report",
			slog.String("session_id", sessionID),
			slog.String("source", source.String()),
			slog.Float64("rms", snap.RMS),
			slog.Float64("peak", snap.Peak),
			slog.Float64("db", snap.DB),
		)
	}

	sessionMgr, err := session.NewManager(logger, managerConfig, appMetrics, nil, levelFunc)
	if err != nil {
		logger.Error("Failed to create session manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
		logger.Error("Failed to create output directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Offline mode: merge two WAV files through the full pipeline and exit.
	if *micPath != "" || *systemPath != "" {
		if err := runOffline(logger, sessionMgr, *micPath, *systemPath, *micTranscript, *sysTranscript); err != nil {
			logger.Error("Offline merge failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		sessionMgr.Stop()
		return
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, sessionMgr, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	sessionMgr.Stop()

	logger.Info("Service stopped")
}

// runOffline feeds pre-recorded WAV files through a recording session in
// capture-sized chunks, producing the merged artifact and, when transcript
// files are supplied, the speaker mapping.
func runOffline(logger *slog.Logger, sessionMgr *session.Manager,
	micPath, systemPath, micTranscript, sysTranscript string) error {

	sess, err := sessionMgr.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	if micPath != "" {
		if err := ingestWAVFile(sess, capture.SourceMicrophone, micPath); err != nil {
			return err
		}
	}

	if systemPath != "" {
		if err := ingestWAVFile(sess, capture.SourceSystem, systemPath); err != nil {
			return err
		}
	}

	result, err := sessionMgr.StopSession(sess.ID)
	if err != nil {
		return fmt.Errorf("failed to finalize recording: %w", err)
	}

	if result == nil {
		return fmt.Errorf("no audio captured from input files")
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to print merge result: %w", err)
	}

	if micTranscript == "" && sysTranscript == "" {
		return nil
	}

	var micSegments, sysSegments []speaker.TranscriptSegment
	if micTranscript != "" {
		if micSegments, err = speaker.LoadSegments(micTranscript); err != nil {
			return err
		}
	}
	if sysTranscript != "" {
		if sysSegments, err = speaker.LoadSegments(sysTranscript); err != nil {
			return err
		}
	}

	mapping := sessionMgr.MapSpeakers(micSegments, sysSegments)
	if err := encoder.Encode(mapping); err != nil {
		return fmt.Errorf("failed to print speaker mapping: %w", err)
	}

	logger.Info("Offline merge completed",
		slog.String("file_path", result.FilePath),
		slog.Float64("mapping_confidence", mapping.Confidence),
	)

	return nil
}

// ingestWAVFile decodes a WAV file and pushes its samples through the
// session's capture path in fixed-size chunks.
func ingestWAVFile(sess *session.Session, source capture.Source, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	pcm, _, channels, err := audio.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	samples := audio.Int16ToFloat(pcm)
	if channels == 2 {
		samples = audio.DownmixStereoToMono(samples)
	}

	for start := 0; start < len(samples); start += offlineChunkSize {
		end := start + offlineChunkSize
		if end > len(samples) {
			end = len(samples)
		}
		sess.Ingest(source, samples[start:end])
	}

	return nil
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
