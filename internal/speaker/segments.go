package speaker

import (
	"encoding/json"
	"fmt"
	"os"
)

// TranscriptSegment is one finalized utterance from the external
// transcription collaborator. Pointer fields are null when the transcriber
// could not attribute the value.
type TranscriptSegment struct {
	Speaker    *string  `json:"speaker"`
	Text       string   `json:"text"`
	StartTime  *float64 `json:"start_time"`
	EndTime    *float64 `json:"end_time"`
	Confidence *float64 `json:"confidence"`
}

// Duration returns the segment length in seconds, or 0 when either boundary
// is unknown.
func (s *TranscriptSegment) Duration() float64 {
	if s.StartTime == nil || s.EndTime == nil {
		return 0
	}
	d := *s.EndTime - *s.StartTime
	if d < 0 {
		return 0
	}
	return d
}

// Label returns the speaker label, or fallbackLabel when unattributed.
func (s *TranscriptSegment) Label() string {
	if s.Speaker == nil || *s.Speaker == "" {
		return fallbackLabel
	}
	return *s.Speaker
}

// ParseSegments decodes a JSON array of transcript segments.
func ParseSegments(data []byte) ([]TranscriptSegment, error) {
	var segments []TranscriptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("failed to parse transcript segments: %w", err)
	}
	return segments, nil
}

// LoadSegments reads and decodes a transcript JSON file.
func LoadSegments(path string) ([]TranscriptSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file %s: %w", path, err)
	}
	return ParseSegments(data)
}
