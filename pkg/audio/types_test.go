// ABOUTME: Tests for audio types and sample math
// ABOUTME: Tests fixed-point gain, clamping and sample conversions
package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedMul(t *testing.T) {
	tests := []struct {
		name     string
		gain     Gain
		sample   int32
		expected int32
	}{
		{"unity positive", GainUnity, 123456, 123456},
		{"unity negative", GainUnity, -123456, -123456},
		{"zero gain", 0, 123456, 0},
		{"half gain", GainUnity / 2, 1000, 500},
		{"half gain negative", GainUnity / 2, -1000, -500},
		{"double gain", 2 * GainUnity, 1000, 2000},
		{"truncates toward -inf", GainUnity / 2, -999, -500},
		{"truncates positive", GainUnity / 2, 999, 499},
		{"max 24-bit", GainUnity, Max24Bit, Max24Bit},
		{"min 24-bit", GainUnity, Min24Bit, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FixedMul(tt.gain, tt.sample))
		})
	}
}

func TestFixedMulSameRuleEverySample(t *testing.T) {
	// One rounding rule regardless of sign or magnitude: the 64-bit
	// product shifted right by 16.
	g := Gain(0x18000) // 1.5
	for _, s := range []int32{0, 1, -1, 3, -3, 1001, -1001, Max24Bit, Min24Bit} {
		expected := int32((int64(g) * int64(s)) >> 16)
		assert.Equal(t, expected, FixedMul(g, s), "sample %d", s)
	}
}

func TestGainForVolume(t *testing.T) {
	assert.Equal(t, Gain(0), GainForVolume(0))
	assert.Equal(t, GainUnity, GainForVolume(100))
	assert.Equal(t, GainUnity/2, GainForVolume(50))
	assert.Equal(t, Gain(0), GainForVolume(-5))
	assert.Equal(t, GainUnity, GainForVolume(150))
}

func TestClampAdd(t *testing.T) {
	assert.Equal(t, int32(3), ClampAdd(1, 2))
	assert.Equal(t, int32(-3), ClampAdd(-1, -2))
	assert.Equal(t, int32(2147483647), ClampAdd(2147483647, 1))
	assert.Equal(t, int32(-2147483648), ClampAdd(-2147483648, -1))
	assert.Equal(t, int32(0), ClampAdd(2147483647, -2147483647))
}

func TestFrameByteConversions(t *testing.T) {
	assert.Equal(t, 8, FramesToBytes(1))
	assert.Equal(t, 8000, FramesToBytes(1000))
	assert.Equal(t, 1000, BytesToFrames(8000))
	assert.Equal(t, 0, BytesToFrames(7))
}

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SampleFromInt16(tt.input))
		})
	}
}

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"zero", 0, 0},
		{"positive", 100 << 8, 100},
		{"negative", -100 << 8, -100},
		{"24bit positive", 1000000, 3906}, // 1000000 >> 8 = 3906
		{"24bit negative", -1000000, -3907},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SampleToInt16(tt.input))
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SampleFrom24Bit(tt.input))
		})
	}
}

func TestRoundTrip16Bit(t *testing.T) {
	samples := []int16{0, 100, -100, 1000, -1000, 32767, -32768}

	for _, original := range samples {
		assert.Equal(t, original, SampleToInt16(SampleFromInt16(original)))
	}
}
