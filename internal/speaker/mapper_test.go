package speaker

import (
	"fmt"
	"math"
	"testing"

	"github.com/Naim08/Meeting-Tool-sub002/internal/capture"
)

func segment(label, text string, start, end float64) TranscriptSegment {
	return TranscriptSegment{
		Speaker:   &label,
		Text:      text,
		StartTime: &start,
		EndTime:   &end,
	}
}

// twoPartyStreams builds the ideal interview shape: two speakers per stream,
// 30 segments total, no cross-stream overlap and no repeated text.
func twoPartyStreams() (mic, sys []TranscriptSegment) {
	for i := 0; i < 10; i++ {
		base := float64(i * 10)
		mic = append(mic, segment("Alice",
			fmt.Sprintf("micword%da micword%db micword%dc", i, i, i),
			base, base+3))
		sys = append(sys, segment("SPEAKER_00",
			fmt.Sprintf("sysword%da sysword%db sysword%dc", i, i, i),
			base+5, base+7.8))
	}
	for i := 0; i < 5; i++ {
		base := float64(i * 10)
		mic = append(mic, segment("Bob",
			fmt.Sprintf("micshort%da micshort%db", i, i),
			base+3.5, base+4.5))
		sys = append(sys, segment("SPEAKER_01",
			fmt.Sprintf("sysshort%da sysshort%db", i, i),
			base+8, base+8.8))
	}
	return mic, sys
}

func TestMapSpeakersTwoPartyMeeting(t *testing.T) {
	mic, sys := twoPartyStreams()

	mapper := NewMapper(Config{}, nil, nil)
	result := mapper.MapSpeakers(mic, sys)

	// The dominant microphone speaker is the local interviewer; the dominant
	// system-audio speaker is the remote interviewee.
	if result.MicrophoneMapping["Alice"] != RoleInterviewer {
		t.Errorf("Expected Alice -> interviewer, got %s", result.MicrophoneMapping["Alice"])
	}
	if result.MicrophoneMapping["Bob"] != RoleInterviewee {
		t.Errorf("Expected Bob -> interviewee, got %s", result.MicrophoneMapping["Bob"])
	}
	if result.SystemMapping["SPEAKER_00"] != RoleInterviewee {
		t.Errorf("Expected SPEAKER_00 -> interviewee, got %s", result.SystemMapping["SPEAKER_00"])
	}
	if result.SystemMapping["SPEAKER_01"] != RoleInterviewer {
		t.Errorf("Expected SPEAKER_01 -> interviewer, got %s", result.SystemMapping["SPEAKER_01"])
	}

	details := result.Details
	if details.MicrophoneSpeakers != 2 || details.SystemSpeakers != 2 {
		t.Errorf("Expected 2 speakers per stream, got mic=%d sys=%d",
			details.MicrophoneSpeakers, details.SystemSpeakers)
	}
	if details.TotalSegments != 30 {
		t.Errorf("Expected 30 total segments, got %d", details.TotalSegments)
	}
	if details.EchoDetected || details.OverlapDetected {
		t.Errorf("Expected clean streams, got echo=%v overlap=%v",
			details.EchoDetected, details.OverlapDetected)
	}

	// 0.5 base + 0.15 volume + 0.15 both streams + 0.10 ideal two-party.
	if math.Abs(result.Confidence-0.90) > 1e-9 {
		t.Errorf("Expected confidence 0.90, got %f", result.Confidence)
	}
}

// echoStreams duplicates every microphone utterance onto the system stream
// with the given start delay. Segments are short enough to stay below the
// overlap threshold so only the echo signal fires.
func echoStreams(delay float64) (mic, sys []TranscriptSegment) {
	for i := 0; i < 10; i++ {
		base := float64(i * 5)
		text := fmt.Sprintf("unique%d tokens%d for%d utterance%d", i, i, i, i)
		mic = append(mic, segment("Local", text, base, base+0.4))
		sys = append(sys, segment("Remote", text, base+delay, base+delay+0.4))
	}
	return mic, sys
}

func TestMapSpeakersEchoPenalty(t *testing.T) {
	mapper := NewMapper(Config{}, nil, nil)

	echoed := mapper.MapSpeakers(echoStreams(0.1))
	if !echoed.Details.EchoDetected {
		t.Fatal("Expected echo detection for 100ms delayed duplicates")
	}
	if echoed.Details.EchoOccurrences != 10 {
		t.Errorf("Expected 10 echo pairs, got %d", echoed.Details.EchoOccurrences)
	}
	if echoed.Details.OverlapDetected {
		t.Error("Short segments must not trigger overlap")
	}

	// The same streams delayed past the echo window score clean.
	clean := mapper.MapSpeakers(echoStreams(0.3))
	if clean.Details.EchoDetected {
		t.Fatal("Expected no echo detection for 300ms delay")
	}

	diff := clean.Confidence - echoed.Confidence
	if math.Abs(diff-0.10) > 1e-9 {
		t.Errorf("Expected echo to cost exactly 0.10 confidence, got %f (%f vs %f)",
			diff, clean.Confidence, echoed.Confidence)
	}

	if math.Abs(echoed.Confidence-0.70) > 1e-9 {
		t.Errorf("Expected echoed confidence 0.70, got %f", echoed.Confidence)
	}
}

func TestMapSpeakersOverlapPenalty(t *testing.T) {
	var mic, sys []TranscriptSegment
	for i := 0; i < 6; i++ {
		base := float64(i * 10)
		mic = append(mic, segment("Local",
			fmt.Sprintf("localwords%da localwords%db", i, i), base, base+2))
		sys = append(sys, segment("Remote",
			fmt.Sprintf("remotewords%da remotewords%db", i, i), base+0.5, base+2.5))
	}

	mapper := NewMapper(Config{}, nil, nil)
	result := mapper.MapSpeakers(mic, sys)

	if !result.Details.OverlapDetected {
		t.Fatal("Expected overlap detection for 1.5s intersections")
	}
	if result.Details.OverlapOccurrences != 6 {
		t.Errorf("Expected 6 overlap pairs, got %d", result.Details.OverlapOccurrences)
	}
	if result.Details.EchoDetected {
		t.Error("Distinct texts must not trigger echo")
	}

	// 0.5 base + 0.10 volume (12 segments) + 0.15 both streams - 0.05 overlap.
	if math.Abs(result.Confidence-0.70) > 1e-9 {
		t.Errorf("Expected confidence 0.70, got %f", result.Confidence)
	}
}

func TestMapSpeakersEmptyInput(t *testing.T) {
	mapper := NewMapper(Config{}, nil, nil)
	result := mapper.MapSpeakers(nil, nil)

	if len(result.MicrophoneMapping) != 0 || len(result.SystemMapping) != 0 {
		t.Errorf("Expected empty mappings, got %v / %v",
			result.MicrophoneMapping, result.SystemMapping)
	}

	if result.Details.TotalSegments != 0 {
		t.Errorf("Expected 0 segments, got %d", result.Details.TotalSegments)
	}

	// Base confidence only: no volume, no per-stream speakers.
	if math.Abs(result.Confidence-0.50) > 1e-9 {
		t.Errorf("Expected confidence 0.50, got %f", result.Confidence)
	}
}

func TestMapSpeakersUnattributedSegments(t *testing.T) {
	mic := []TranscriptSegment{
		{Text: "completely unattributed utterance"},
	}

	mapper := NewMapper(Config{}, nil, nil)
	result := mapper.MapSpeakers(mic, nil)

	if role := result.MicrophoneMapping[fallbackLabel]; role != RoleInterviewer {
		t.Errorf("Expected fallback label -> interviewer, got %s", role)
	}
}

func TestMapSpeakersExtraSpeakersRankUnknown(t *testing.T) {
	mic := []TranscriptSegment{
		segment("A", "longest speaker words here", 0, 30),
		segment("B", "second speaker words here", 31, 41),
		segment("C", "third speaker words here", 42, 44),
	}

	mapper := NewMapper(Config{}, nil, nil)
	result := mapper.MapSpeakers(mic, nil)

	if result.MicrophoneMapping["A"] != RoleInterviewer {
		t.Errorf("Expected A -> interviewer, got %s", result.MicrophoneMapping["A"])
	}
	if result.MicrophoneMapping["B"] != RoleInterviewee {
		t.Errorf("Expected B -> interviewee, got %s", result.MicrophoneMapping["B"])
	}
	if result.MicrophoneMapping["C"] != RoleUnknown {
		t.Errorf("Expected C -> unknown, got %s", result.MicrophoneMapping["C"])
	}
}

func TestNormalizeSpeakerLabel(t *testing.T) {
	mic, sys := twoPartyStreams()
	mapper := NewMapper(Config{}, nil, nil)
	result := mapper.MapSpeakers(mic, sys)

	if role := mapper.NormalizeSpeakerLabel("Alice", capture.SourceMicrophone, &result); role != RoleInterviewer {
		t.Errorf("Expected interviewer, got %s", role)
	}
	if role := mapper.NormalizeSpeakerLabel("SPEAKER_00", capture.SourceSystem, &result); role != RoleInterviewee {
		t.Errorf("Expected interviewee, got %s", role)
	}
	if role := mapper.NormalizeSpeakerLabel("Nobody", capture.SourceMicrophone, &result); role != RoleUnknown {
		t.Errorf("Expected unknown for unmapped label, got %s", role)
	}
	if role := mapper.NormalizeSpeakerLabel("Alice", capture.SourceMicrophone, nil); role != RoleUnknown {
		t.Errorf("Expected unknown for nil result, got %s", role)
	}
}

// reverseStrategy flips the default assignment to verify strategy injection.
type reverseStrategy struct{}

func (reverseStrategy) Assign(source capture.Source, ranked []string, hasSegments bool) Mapping {
	mapping := make(Mapping, len(ranked))
	for _, label := range ranked {
		mapping[label] = RoleInterviewee
	}
	return mapping
}

func TestMapSpeakersCustomStrategy(t *testing.T) {
	mic, sys := twoPartyStreams()

	mapper := NewMapper(Config{}, reverseStrategy{}, nil)
	result := mapper.MapSpeakers(mic, sys)

	for label, role := range result.MicrophoneMapping {
		if role != RoleInterviewee {
			t.Errorf("Custom strategy ignored for %s: %s", label, role)
		}
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"both empty", "", "", 0},
		{"one empty", "hello", "", 0},
		{"identical", "hello world", "hello world", 1},
		{"case insensitive", "Hello World", "hello world", 1},
		{"partial", "hello world", "hello there", 1.0 / 3.0},
		{"disjoint", "alpha beta", "gamma delta", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jaccardSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("jaccardSimilarity(%q, %q) = %f, expected %f",
					tt.a, tt.b, got, tt.expected)
			}
		})
	}
}
