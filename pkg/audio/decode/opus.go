// ABOUTME: Opus packet decoder
// ABOUTME: Decodes Opus packets to int32 samples via hraban/opus
package decode

import (
	"fmt"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is the largest frame Opus allows, 120ms at 48kHz.
const maxOpusFrame = 5760

// OpusDecoder decodes Opus packets.
type OpusDecoder struct {
	decoder  *opus.Decoder
	channels int
	pcm16    []int16
}

// NewOpus creates an Opus packet decoder for the given format.
func NewOpus(format audio.Format) (PacketDecoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}
	if format.Channels < 1 || format.Channels > 2 {
		return nil, fmt.Errorf("unsupported opus channel count: %d", format.Channels)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder:  dec,
		channels: format.Channels,
		pcm16:    make([]int16, maxOpusFrame*format.Channels),
	}, nil
}

// Decode converts one Opus packet to interleaved stereo samples.
// Opus always decodes to 16-bit; mono packets are upmixed.
func (d *OpusDecoder) Decode(data []byte) ([]int32, error) {
	n, err := d.decoder.Decode(data, d.pcm16)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	out := make([]int32, n*audio.Channels)
	if d.channels == 1 {
		for i := 0; i < n; i++ {
			s := audio.SampleFromInt16(d.pcm16[i])
			out[i*2] = s
			out[i*2+1] = s
		}
	} else {
		for i := 0; i < n*2; i++ {
			out[i] = audio.SampleFromInt16(d.pcm16[i])
		}
	}
	return out, nil
}

// Close releases decoder resources.
func (d *OpusDecoder) Close() error {
	return nil
}
