// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the sample model, frame math and fixed-point gain
// Package audio provides the fundamental types of the playback pipeline.
//
// Samples are int32, left-justified in 24-bit range, stereo interleaved.
// The package defines:
//   - Format: describes a stream (codec, sample rate, channels, bit depth)
//   - Gain: unsigned 16.16 fixed-point channel multiplier with FixedMul
//   - frame/byte conversions for the byte-addressed decode fifo
//   - conversions between int32 samples and 16-bit or packed 24-bit PCM
//
// Example:
//
//	g := audio.GainForVolume(75)
//	out := audio.FixedMul(g, sample)
package audio
