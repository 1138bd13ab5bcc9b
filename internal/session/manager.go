package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Naim08/Meeting-Tool-sub002/internal/audio"
	"github.com/Naim08/Meeting-Tool-sub002/internal/capture"
	"github.com/Naim08/Meeting-Tool-sub002/internal/level"
	"github.com/Naim08/Meeting-Tool-sub002/internal/metrics"
	"github.com/Naim08/Meeting-Tool-sub002/internal/speaker"
)

// LevelFunc receives one flushed level snapshot per source at the configured
// reporting cadence. It runs on the session's reporting goroutine and must
// not block.
type LevelFunc func(sessionID string, source capture.Source, snap level.Snapshot)

// ManagerConfig contains configuration for the session manager
type ManagerConfig struct {
	MergeOptions     audio.MergeOptions
	OutputDir        string
	QueueSize        int
	MaxDuration      time.Duration // 0 disables the recording cap
	ReportInterval   time.Duration
	WatchdogInterval time.Duration // defaults to 5s
	SpeakerConfig    speaker.Config
}

// Session owns one concurrent recording: a merger, a capture pump feeding
// it, and the per-source level accumulators. Sessions are created and
// finalized exclusively through the Manager.
type Session struct {
	ID        string
	StartTime time.Time

	merger    *audio.Merger
	pump      *capture.Pump
	micLevels *level.Accumulator
	sysLevels *level.Accumulator

	reportCancel context.CancelFunc
	reportWG     sync.WaitGroup
	shutdownOnce sync.Once

	manager *Manager
}

// SessionInfo is a read-only snapshot of one session for monitoring.
type SessionInfo struct {
	ID        string            `json:"id"`
	StartTime time.Time         `json:"start_time"`
	Duration  float64           `json:"duration_seconds"`
	Buffer    audio.BufferStats `json:"buffer"`
	Pump      capture.PumpStats `json:"pump"`
}

// Manager owns all active recording sessions. It enforces the configured
// maximum recording duration through a background watchdog and performs
// post-hoc speaker mapping once transcripts are available.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	logger    *slog.Logger
	cfg       ManagerConfig
	metrics   *metrics.Metrics
	mapper    *speaker.Mapper
	levelFunc LevelFunc

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a session manager. strategy may be nil to use the
// default role strategy; levelFunc may be nil when no UI consumer exists.
func NewManager(logger *slog.Logger, cfg ManagerConfig, m *metrics.Metrics,
	strategy speaker.RoleStrategy, levelFunc LevelFunc) (*Manager, error) {

	if m == nil {
		return nil, fmt.Errorf("metrics cannot be nil")
	}

	if cfg.ReportInterval <= 0 {
		return nil, fmt.Errorf("report interval must be positive, got %s", cfg.ReportInterval)
	}

	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	mgr := &Manager{
		sessions:  make(map[string]*Session),
		logger:    logger,
		cfg:       cfg,
		metrics:   m,
		mapper:    speaker.NewMapper(cfg.SpeakerConfig, strategy, logger),
		levelFunc: levelFunc,
		ctx:       ctx,
		cancel:    cancel,
		cleanup:   make(chan struct{}),
	}

	go mgr.watchdogRoutine()

	return mgr, nil
}

// StartSession creates a new recording session and begins capturing.
func (m *Manager) StartSession() (*Session, error) {
	id := uuid.NewString()

	merger, err := audio.NewMerger(m.cfg.MergeOptions, m.cfg.OutputDir, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create merger: %w", err)
	}

	if err := merger.Start(); err != nil {
		return nil, fmt.Errorf("failed to start merger: %w", err)
	}

	session := &Session{
		ID:        id,
		StartTime: time.Now(),
		merger:    merger,
		micLevels: level.NewAccumulator(),
		sysLevels: level.NewAccumulator(),
		manager:   m,
	}

	session.pump = capture.NewPump(m.cfg.QueueSize, session.consumeChunk, m.logger)
	session.pump.Start()

	reportCtx, reportCancel := context.WithCancel(m.ctx)
	session.reportCancel = reportCancel
	session.reportWG.Add(1)
	go session.reportLoop(reportCtx)

	m.mu.Lock()
	m.sessions[id] = session
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.RecordSessionStarted()
	m.metrics.SetActiveSessions(active)

	m.logger.Info("Recording session started",
		slog.String("session_id", id),
		slog.Int("sample_rate", m.cfg.MergeOptions.SampleRate),
		slog.Int("channels", m.cfg.MergeOptions.Channels),
	)

	return session, nil
}

// GetSession retrieves an active session by ID.
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	return session, exists
}

// ActiveCount returns the number of active sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// AllSessions returns a snapshot of all active sessions for monitoring.
func (m *Manager) AllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// StopSession finalizes a session: drains the capture pump, merges both
// streams and writes the WAV artifact. It returns (nil, nil) when nothing
// was captured. On a write failure the session stays registered with its
// buffers intact so the caller may retry.
func (m *Manager) StopSession(id string) (*audio.MergedResult, error) {
	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("session %s not found", id)
	}

	session.shutdownPipeline()

	mergeStart := time.Now()
	result, err := session.merger.Stop()
	if err != nil {
		m.logger.Error("Failed to finalize recording, buffers preserved for retry",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	mergeDuration := time.Since(mergeStart)

	m.removeSession(id)

	if result == nil {
		m.logger.Info("Recording session ended without captured audio",
			slog.String("session_id", id),
		)
		m.metrics.RecordSessionAborted()
		return nil, nil
	}

	m.metrics.RecordSessionCompleted(result.Duration, mergeDuration.Seconds(), artifactSize(result.FilePath))

	m.logger.Info("Recording session completed",
		slog.String("session_id", id),
		slog.String("file_path", result.FilePath),
		slog.Float64("duration_seconds", result.Duration),
		slog.Duration("merge_time", mergeDuration),
	)

	return result, nil
}

// AbortSession drops all buffered audio for a session without producing a
// result.
func (m *Manager) AbortSession(id string) error {
	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("session %s not found", id)
	}

	session.shutdownPipeline()
	session.merger.Clear()
	m.removeSession(id)
	m.metrics.RecordSessionAborted()

	m.logger.Info("Recording session aborted",
		slog.String("session_id", id),
		slog.Duration("discarded_duration", time.Since(session.StartTime)),
	)

	return nil
}

// MapSpeakers runs post-hoc speaker attribution over both finalized
// transcript streams. It never fails; sparse input lowers the confidence.
func (m *Manager) MapSpeakers(micSegments, sysSegments []speaker.TranscriptSegment) speaker.MappingResult {
	result := m.mapper.MapSpeakers(micSegments, sysSegments)

	m.metrics.RecordSpeakerAnalysis(result.Confidence,
		result.Details.EchoDetected, result.Details.OverlapDetected)

	return result
}

// Stop gracefully stops the manager, finalizing all active sessions.
func (m *Manager) Stop() {
	m.logger.Info("Stopping session manager...")

	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if _, err := m.StopSession(id); err != nil {
			m.logger.Warn("Error finalizing session during shutdown",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
			// Shutdown proceeds; the unwritten session is dropped.
			m.removeSession(id)
		}
	}

	m.cancel()
	<-m.cleanup

	m.logger.Info("Session manager stopped",
		slog.Int("remaining_sessions", m.ActiveCount()),
	)
}

func (m *Manager) removeSession(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(active)
}

// watchdogRoutine force-finalizes sessions that exceed the configured
// maximum duration, bounding memory held by an unattended recording.
func (m *Manager) watchdogRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(m.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.enforceMaxDuration()
		}
	}
}

func (m *Manager) enforceMaxDuration() {
	if m.cfg.MaxDuration <= 0 {
		return
	}

	now := time.Now()
	expired := make([]string, 0)

	m.mu.RLock()
	for id, session := range m.sessions {
		if now.Sub(session.StartTime) > m.cfg.MaxDuration {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.logger.Warn("Session exceeded max duration, finalizing",
			slog.String("session_id", id),
			slog.Duration("max_duration", m.cfg.MaxDuration),
		)
		if _, err := m.StopSession(id); err != nil {
			m.logger.Error("Failed to finalize over-limit session",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Ingest hands one capture-callback chunk to the session. It never blocks:
// the samples are copied and queued, and dropped (with a counter) when the
// queue is full.
func (s *Session) Ingest(source capture.Source, samples []float32) bool {
	accepted := s.pump.Enqueue(source, samples)

	if accepted {
		s.manager.metrics.RecordChunkReceived(source.String())
	} else {
		s.manager.metrics.RecordChunkDropped(source.String())
	}

	return accepted
}

// SetGains adjusts the per-source gains for the in-flight recording.
func (s *Session) SetGains(micGain, sysGain float64) {
	s.merger.SetGains(micGain, sysGain)
}

// Info returns a monitoring snapshot of the session.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		StartTime: s.StartTime,
		Duration:  time.Since(s.StartTime).Seconds(),
		Buffer:    s.merger.Stats(),
		Pump:      s.pump.Stats(),
	}
}

// consumeChunk runs on the pump's consumer goroutine and routes one chunk
// into the merger and the matching level accumulator.
func (s *Session) consumeChunk(chunk capture.Chunk) {
	switch chunk.Source {
	case capture.SourceMicrophone:
		s.merger.AddMicrophoneChunk(chunk.Samples)
		s.micLevels.AccumulateFrame(chunk.Samples)
	case capture.SourceSystem:
		s.merger.AddSystemChunk(chunk.Samples)
		s.sysLevels.AccumulateFrame(chunk.Samples)
	}

	stats := s.merger.Stats()
	s.manager.metrics.SetSamplesBuffered(capture.SourceMicrophone.String(), stats.MicrophoneSamples)
	s.manager.metrics.SetSamplesBuffered(capture.SourceSystem.String(), stats.SystemSamples)
}

// reportLoop flushes both level accumulators at the UI reporting cadence.
// This is the rate-adaptation point between the per-frame capture path and
// the slower level consumer.
func (s *Session) reportLoop(ctx context.Context) {
	defer s.reportWG.Done()

	ticker := time.NewTicker(s.manager.cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flushLevels()
		}
	}
}

func (s *Session) flushLevels() {
	micSnap := s.micLevels.Flush()
	sysSnap := s.sysLevels.Flush()

	s.manager.metrics.RecordLevelReport(capture.SourceMicrophone.String(), micSnap.RMS, micSnap.Peak)
	s.manager.metrics.RecordLevelReport(capture.SourceSystem.String(), sysSnap.RMS, sysSnap.Peak)

	if s.manager.levelFunc != nil {
		s.manager.levelFunc(s.ID, capture.SourceMicrophone, micSnap)
		s.manager.levelFunc(s.ID, capture.SourceSystem, sysSnap)
	}
}

// shutdownPipeline drains the pump and stops the reporting loop. Safe to
// call more than once; a failed Stop retry passes through here again.
func (s *Session) shutdownPipeline() {
	s.shutdownOnce.Do(func() {
		s.pump.Stop()
		s.reportCancel()
		s.reportWG.Wait()
		s.flushLevels()
	})
}

func artifactSize(path string) int {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return int(info.Size())
}
