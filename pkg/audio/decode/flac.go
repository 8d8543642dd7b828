// ABOUTME: FLAC streaming decoder
// ABOUTME: Parses FLAC frames via mewkiz/flac and buffers interleaved samples
package decode

import (
	"fmt"
	"io"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes a FLAC stream frame by frame. Decoded frames
// are buffered interleaved so callers can read arbitrary lengths.
type FLACDecoder struct {
	stream   *flac.Stream
	rate     int
	channels int
	shift    uint // left shift to 24-bit range
	pending  []int32
	pos      int
}

// NewFLAC creates a streaming FLAC decoder reading from r.
func NewFLAC(r io.Reader) (Decoder, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac stream: %w", err)
	}

	info := stream.Info
	if info.NChannels < 1 || info.NChannels > 2 {
		return nil, fmt.Errorf("unsupported flac channel count: %d", info.NChannels)
	}
	if info.BitsPerSample > 24 {
		return nil, fmt.Errorf("unsupported flac bit depth: %d", info.BitsPerSample)
	}

	return &FLACDecoder{
		stream:   stream,
		rate:     int(info.SampleRate),
		channels: int(info.NChannels),
		shift:    uint(24 - info.BitsPerSample),
	}, nil
}

// ReadFrames fills dst with decoded stereo frames.
func (d *FLACDecoder) ReadFrames(dst []int32) (int, error) {
	want := len(dst) / audio.Channels
	filled := 0

	for filled < want {
		if d.pos >= len(d.pending) {
			if err := d.parseNext(); err != nil {
				if err == io.EOF {
					if filled == 0 {
						return 0, io.EOF
					}
					return filled, nil
				}
				return filled, fmt.Errorf("flac decode error: %w", err)
			}
		}

		n := copy(dst[filled*audio.Channels:want*audio.Channels], d.pending[d.pos:])
		d.pos += n
		filled += n / audio.Channels
	}
	return filled, nil
}

// parseNext decodes the next FLAC frame into the pending buffer,
// interleaving and upmixing mono to stereo.
func (d *FLACDecoder) parseNext() error {
	frame, err := d.stream.ParseNext()
	if err != nil {
		return err
	}

	samples := len(frame.Subframes[0].Samples)
	if cap(d.pending) < samples*audio.Channels {
		d.pending = make([]int32, samples*audio.Channels)
	}
	d.pending = d.pending[:samples*audio.Channels]
	d.pos = 0

	if d.channels == 1 {
		src := frame.Subframes[0].Samples
		for i := 0; i < samples; i++ {
			s := src[i] << d.shift
			d.pending[i*2] = s
			d.pending[i*2+1] = s
		}
		return nil
	}

	left := frame.Subframes[0].Samples
	right := frame.Subframes[1].Samples
	for i := 0; i < samples; i++ {
		d.pending[i*2] = left[i] << d.shift
		d.pending[i*2+1] = right[i] << d.shift
	}
	return nil
}

// SampleRate reports the stream's native rate.
func (d *FLACDecoder) SampleRate() int {
	return d.rate
}

// Close releases decoder resources.
func (d *FLACDecoder) Close() error {
	return d.stream.Close()
}
