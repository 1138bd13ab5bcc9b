package speaker

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/Naim08/Meeting-Tool-sub002/internal/capture"
)

// Role is the meeting role assigned to a speaker label.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleInterviewee Role = "interviewee"
	RoleUnknown     Role = "unknown"
)

// fallbackLabel stands in for segments the transcriber left unattributed.
const fallbackLabel = "Unknown"

// Config tunes the mapping heuristics. Zero values fall back to the defaults
// below, which match the reference tuning.
type Config struct {
	EchoSimilarityThreshold float64 // word-set Jaccard similarity, default 0.6
	EchoMaxDelay            float64 // seconds, system must start within this after mic, default 0.2
	EchoOccurrenceRatio     float64 // fraction of min segment count, default 0.2
	OverlapMinDuration      float64 // seconds of temporal intersection, default 0.5
	OverlapPairThreshold    int     // pairs above which overlap is flagged, default 5
	MinPhraseLength         int     // characters, shorter texts skip phrase collection, default 10
}

const (
	defaultEchoSimilarity   = 0.6
	defaultEchoMaxDelay     = 0.2
	defaultEchoRatio        = 0.2
	defaultOverlapDuration  = 0.5
	defaultOverlapPairs     = 5
	defaultMinPhraseLength  = 10
	baseConfidence          = 0.5
	minConfidence           = 0.1
	maxConfidence           = 1.0
)

func (c Config) withDefaults() Config {
	if c.EchoSimilarityThreshold <= 0 {
		c.EchoSimilarityThreshold = defaultEchoSimilarity
	}
	if c.EchoMaxDelay <= 0 {
		c.EchoMaxDelay = defaultEchoMaxDelay
	}
	if c.EchoOccurrenceRatio <= 0 {
		c.EchoOccurrenceRatio = defaultEchoRatio
	}
	if c.OverlapMinDuration <= 0 {
		c.OverlapMinDuration = defaultOverlapDuration
	}
	if c.OverlapPairThreshold <= 0 {
		c.OverlapPairThreshold = defaultOverlapPairs
	}
	if c.MinPhraseLength <= 0 {
		c.MinPhraseLength = defaultMinPhraseLength
	}
	return c
}

// Mapping assigns each original speaker label a meeting role.
type Mapping map[string]Role

// AnalysisDetails carries the diagnostic signals computed during mapping.
type AnalysisDetails struct {
	MicrophoneSpeakers int  `json:"microphone_speakers"`
	SystemSpeakers     int  `json:"system_speakers"`
	TotalSegments      int  `json:"total_segments"`
	EchoDetected       bool `json:"echo_detected"`
	EchoOccurrences    int  `json:"echo_occurrences"`
	OverlapDetected    bool `json:"overlap_detected"`
	OverlapOccurrences int  `json:"overlap_occurrences"`
}

// MappingResult is the final output of one MapSpeakers invocation. It has no
// lifecycle beyond the call.
type MappingResult struct {
	MicrophoneMapping Mapping         `json:"microphone_mapping"`
	SystemMapping     Mapping         `json:"system_audio_mapping"`
	Confidence        float64         `json:"confidence"`
	Details           AnalysisDetails `json:"analysis_details"`
}

// RoleStrategy decides which role each ranked speaker label receives for a
// given stream. Labels arrive ranked by total spoken duration, then segment
// count, descending. hasSegments reports whether the stream produced any
// segments at all, so a strategy can map a synthetic fallback label.
type RoleStrategy interface {
	Assign(source capture.Source, ranked []string, hasSegments bool) Mapping
}

// DefaultRoleStrategy implements the two-party meeting assumption: the
// dominant microphone speaker is the interviewer and the dominant
// system-audio speaker is the remote party, the interviewee.
type DefaultRoleStrategy struct{}

// Assign maps rank 0 and rank 1 to the primary and secondary role for the
// stream; further ranks map to unknown. When no labeled speakers exist but
// segments do, the synthetic fallback label takes the primary role.
func (DefaultRoleStrategy) Assign(source capture.Source, ranked []string, hasSegments bool) Mapping {
	primary, secondary := RoleInterviewer, RoleInterviewee
	if source == capture.SourceSystem {
		primary, secondary = RoleInterviewee, RoleInterviewer
	}

	mapping := make(Mapping, len(ranked))

	if len(ranked) == 0 {
		if hasSegments {
			mapping[fallbackLabel] = primary
		}
		return mapping
	}

	for rank, label := range ranked {
		switch rank {
		case 0:
			mapping[label] = primary
		case 1:
			mapping[label] = secondary
		default:
			mapping[label] = RoleUnknown
		}
	}

	return mapping
}

// speakerProfile accumulates per-label statistics across one stream.
type speakerProfile struct {
	label         string
	totalDuration float64
	segmentCount  int
	avgConfidence float64
	firstStart    *float64
	lastEnd       *float64
	phrases       []string
}

// Mapper performs post-hoc speaker-role attribution across two
// independently-transcribed streams. It is stateless between calls and
// never fails: missing data degrades the mapping and confidence instead.
type Mapper struct {
	cfg      Config
	strategy RoleStrategy
	logger   *slog.Logger
}

// NewMapper creates a mapper. A nil strategy selects DefaultRoleStrategy.
func NewMapper(cfg Config, strategy RoleStrategy, logger *slog.Logger) *Mapper {
	if strategy == nil {
		strategy = DefaultRoleStrategy{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Mapper{
		cfg:      cfg.withDefaults(),
		strategy: strategy,
		logger:   logger,
	}
}

// MapSpeakers analyzes both finalized transcript streams and produces the
// label-to-role mapping for each, plus confidence and diagnostic signals.
func (m *Mapper) MapSpeakers(micSegments, sysSegments []TranscriptSegment) MappingResult {
	micProfiles := m.extractProfiles(micSegments)
	sysProfiles := m.extractProfiles(sysSegments)

	echoCount, echoDetected := m.detectEcho(micSegments, sysSegments)
	overlapCount, overlapDetected := m.detectOverlap(micSegments, sysSegments)

	micRanked := rankLabels(micProfiles)
	sysRanked := rankLabels(sysProfiles)

	result := MappingResult{
		MicrophoneMapping: m.strategy.Assign(capture.SourceMicrophone, micRanked, len(micSegments) > 0),
		SystemMapping:     m.strategy.Assign(capture.SourceSystem, sysRanked, len(sysSegments) > 0),
		Details: AnalysisDetails{
			MicrophoneSpeakers: len(micProfiles),
			SystemSpeakers:     len(sysProfiles),
			TotalSegments:      len(micSegments) + len(sysSegments),
			EchoDetected:       echoDetected,
			EchoOccurrences:    echoCount,
			OverlapDetected:    overlapDetected,
			OverlapOccurrences: overlapCount,
		},
	}

	result.Confidence = m.scoreConfidence(result.Details)

	m.logger.Debug("Speaker mapping completed",
		slog.Int("microphone_speakers", result.Details.MicrophoneSpeakers),
		slog.Int("system_speakers", result.Details.SystemSpeakers),
		slog.Int("total_segments", result.Details.TotalSegments),
		slog.Bool("echo_detected", echoDetected),
		slog.Bool("overlap_detected", overlapDetected),
		slog.Float64("confidence", result.Confidence),
	)

	return result
}

// NormalizeSpeakerLabel resolves an original transcript label to its mapped
// role for the given stream. Absent labels resolve to unknown.
func (m *Mapper) NormalizeSpeakerLabel(label string, source capture.Source, result *MappingResult) Role {
	if result == nil {
		return RoleUnknown
	}

	mapping := result.MicrophoneMapping
	if source == capture.SourceSystem {
		mapping = result.SystemMapping
	}

	if role, ok := mapping[label]; ok {
		return role
	}
	return RoleUnknown
}

// extractProfiles groups segments by speaker label and accumulates duration,
// count, running average confidence, first/last appearance and phrases long
// enough for similarity checks.
func (m *Mapper) extractProfiles(segments []TranscriptSegment) map[string]*speakerProfile {
	profiles := make(map[string]*speakerProfile)

	for i := range segments {
		seg := &segments[i]
		label := seg.Label()

		profile, ok := profiles[label]
		if !ok {
			profile = &speakerProfile{label: label}
			profiles[label] = profile
		}

		profile.totalDuration += seg.Duration()
		profile.segmentCount++

		if seg.Confidence != nil {
			// Running average over segments that carry a confidence value.
			profile.avgConfidence += (*seg.Confidence - profile.avgConfidence) / float64(profile.segmentCount)
		}

		if seg.StartTime != nil {
			if profile.firstStart == nil || *seg.StartTime < *profile.firstStart {
				profile.firstStart = seg.StartTime
			}
		}
		if seg.EndTime != nil {
			if profile.lastEnd == nil || *seg.EndTime > *profile.lastEnd {
				profile.lastEnd = seg.EndTime
			}
		}

		if len(seg.Text) > m.cfg.MinPhraseLength {
			profile.phrases = append(profile.phrases, seg.Text)
		}
	}

	return profiles
}

// rankLabels orders labels by total duration, then segment count, descending.
// Ties break lexicographically so the ranking is deterministic.
func rankLabels(profiles map[string]*speakerProfile) []string {
	ranked := make([]*speakerProfile, 0, len(profiles))
	for _, p := range profiles {
		ranked = append(ranked, p)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].totalDuration != ranked[j].totalDuration {
			return ranked[i].totalDuration > ranked[j].totalDuration
		}
		if ranked[i].segmentCount != ranked[j].segmentCount {
			return ranked[i].segmentCount > ranked[j].segmentCount
		}
		return ranked[i].label < ranked[j].label
	})

	labels := make([]string, len(ranked))
	for i, p := range ranked {
		labels[i] = p.label
	}
	return labels
}

// detectEcho counts microphone/system segment pairs whose texts are
// near-identical and where the system copy starts just after the microphone
// one, indicating leakage between the capture sources.
func (m *Mapper) detectEcho(micSegments, sysSegments []TranscriptSegment) (int, bool) {
	if len(micSegments) == 0 || len(sysSegments) == 0 {
		return 0, false
	}

	count := 0
	for i := range micSegments {
		mic := &micSegments[i]
		for j := range sysSegments {
			sys := &sysSegments[j]

			if jaccardSimilarity(mic.Text, sys.Text) < m.cfg.EchoSimilarityThreshold {
				continue
			}
			if mic.StartTime == nil || sys.StartTime == nil {
				continue
			}

			delay := *sys.StartTime - *mic.StartTime
			if delay > 0 && delay < m.cfg.EchoMaxDelay {
				count++
			}
		}
	}

	minSegments := len(micSegments)
	if len(sysSegments) < minSegments {
		minSegments = len(sysSegments)
	}

	detected := float64(count) > m.cfg.EchoOccurrenceRatio*float64(minSegments)
	return count, detected
}

// detectOverlap counts segment pairs whose temporal intersection exceeds the
// configured minimum, indicating simultaneous speech on both streams.
func (m *Mapper) detectOverlap(micSegments, sysSegments []TranscriptSegment) (int, bool) {
	count := 0
	for i := range micSegments {
		mic := &micSegments[i]
		if mic.StartTime == nil || mic.EndTime == nil {
			continue
		}
		for j := range sysSegments {
			sys := &sysSegments[j]
			if sys.StartTime == nil || sys.EndTime == nil {
				continue
			}

			start := *mic.StartTime
			if *sys.StartTime > start {
				start = *sys.StartTime
			}
			end := *mic.EndTime
			if *sys.EndTime < end {
				end = *sys.EndTime
			}

			if end-start > m.cfg.OverlapMinDuration {
				count++
			}
		}
	}

	return count, count > m.cfg.OverlapPairThreshold
}

// scoreConfidence combines segment volume, speaker distribution and the
// diagnostic signals into a [0.1, 1.0] confidence value.
func (m *Mapper) scoreConfidence(details AnalysisDetails) float64 {
	confidence := baseConfidence

	switch {
	case details.TotalSegments >= 20:
		confidence += 0.15
	case details.TotalSegments >= 10:
		confidence += 0.10
	case details.TotalSegments >= 5:
		confidence += 0.05
	}

	if details.MicrophoneSpeakers >= 1 && details.SystemSpeakers >= 1 {
		confidence += 0.15
	}

	// The ideal two-party scenario: exactly two distinct speakers per stream.
	if details.MicrophoneSpeakers == 2 && details.SystemSpeakers == 2 {
		confidence += 0.10
	}

	if details.EchoDetected {
		confidence -= 0.10
	}
	if details.OverlapDetected {
		confidence -= 0.05
	}

	if confidence < minConfidence {
		confidence = minConfidence
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	return confidence
}

// jaccardSimilarity computes word-set similarity of two texts: intersection
// over union of lowercase whitespace-split tokens. Identical non-empty texts
// score 1.0; an empty side scores 0.0.
func jaccardSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	tokens := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
