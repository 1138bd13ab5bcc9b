// Package audio implements the capture-side audio pipeline core: pure PCM
// sample conversions, per-source stream buffering with defensive copies,
// two-source gain mixing into mono or stereo, and bit-exact 16-bit PCM WAV
// encoding and decoding.
package audio
