// Package level computes live audio level metering: per-frame RMS and peak
// on a 0-100 visualization scale, decibel conversion with a -60 dB floor,
// and multi-frame accumulation so a high-frequency capture callback can
// report to a lower-frequency UI consumer.
package level
