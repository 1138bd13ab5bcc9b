// Package speaker performs heuristic speaker-role attribution across two
// independently-transcribed audio streams. It ranks speakers by spoken
// duration, applies a pluggable role-assignment strategy, and reports echo
// and overlap diagnostics with an overall confidence score. Mapping never
// fails; missing data degrades gracefully.
package speaker
