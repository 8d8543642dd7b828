// ABOUTME: Audio type definitions and sample math
// ABOUTME: Defines the int32 sample model, frame/byte conversions and fixed-point gain
package audio

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// Channels is the channel count of the output stage. The whole
	// pipeline is stereo interleaved; mono sources are upmixed before
	// they reach the fifo.
	Channels = 2

	// BytesPerSample is the width of one int32 PCM sample in the fifo
	// (little-endian).
	BytesPerSample = 4

	// BytesPerFrame is one stereo frame: left and right int32 samples.
	BytesPerFrame = BytesPerSample * Channels
)

// Format describes an audio stream format
type Format struct {
	Codec       string
	SampleRate  int
	Channels    int
	BitDepth    int
	CodecHeader []byte // For FLAC, Opus, etc.
}

// Gain is an unsigned 16.16 fixed-point channel multiplier.
// GainUnity passes samples through unchanged.
type Gain uint32

// GainUnity is 1.0 in 16.16 fixed point.
const GainUnity Gain = 1 << 16

// FixedMul multiplies a sample by a 16.16 fixed-point gain.
//
// The product is computed in 64 bits and shifted right by 16. The shift
// truncates toward negative infinity for negative samples; this is the
// single rounding rule used for every sample on every path.
func FixedMul(g Gain, sample int32) int32 {
	return int32((int64(g) * int64(sample)) >> 16)
}

// GainForVolume maps a 0-100 volume to a linear fixed-point gain.
func GainForVolume(volume int) Gain {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return Gain(uint64(volume) * uint64(GainUnity) / 100)
}

// ClampAdd adds two samples, saturating at the 32-bit range instead of
// wrapping. Used by the effects mixer when summing voices into a buffer
// that may already be hot.
func ClampAdd(a, b int32) int32 {
	sum := int64(a) + int64(b)
	if sum > 2147483647 {
		return 2147483647
	}
	if sum < -2147483648 {
		return -2147483648
	}
	return int32(sum)
}

// FramesToBytes converts a stereo frame count to fifo bytes.
func FramesToBytes(frames int) int {
	return frames * BytesPerFrame
}

// BytesToFrames converts fifo bytes to whole stereo frames.
func BytesToFrames(bytes int) int {
	return bytes / BytesPerFrame
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}
