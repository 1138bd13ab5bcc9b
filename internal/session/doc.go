// Package session manages recording session lifecycle: one explicitly owned
// merger and capture pump per concurrent recording, level reporting at UI
// cadence, a watchdog bounding unattended recordings, and post-hoc speaker
// mapping once both transcripts are finalized.
package session
