// ABOUTME: PCM packet decoder
// ABOUTME: Decodes raw 16-bit and 24-bit little-endian PCM packets to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
)

// PCMDecoder decodes raw PCM packets.
type PCMDecoder struct {
	bitDepth int
	channels int
}

// NewPCM creates a PCM packet decoder for the given format.
func NewPCM(format audio.Format) (PacketDecoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}
	if format.Channels < 1 || format.Channels > 2 {
		return nil, fmt.Errorf("unsupported pcm channel count: %d", format.Channels)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
		channels: format.Channels,
	}, nil
}

// Decode converts raw PCM bytes to interleaved stereo samples.
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	bytesPerSample := d.bitDepth / 8
	numSamples := len(data) / bytesPerSample

	samples := make([]int32, numSamples)
	if d.bitDepth == 24 {
		for i := 0; i < numSamples; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleFrom24Bit(b)
		}
	} else {
		for i := 0; i < numSamples; i++ {
			s := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = audio.SampleFromInt16(s)
		}
	}

	if d.channels == 1 {
		stereo := make([]int32, numSamples*2)
		for i, s := range samples {
			stereo[i*2] = s
			stereo[i*2+1] = s
		}
		return stereo, nil
	}
	return samples, nil
}

// Close releases resources.
func (d *PCMDecoder) Close() error {
	return nil
}
