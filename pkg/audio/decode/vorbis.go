// ABOUTME: Ogg Vorbis streaming decoder
// ABOUTME: Decodes float samples via jfreymuth/oggvorbis and scales to 24-bit
package decode

import (
	"fmt"
	"io"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

// VorbisDecoder decodes an Ogg Vorbis stream. The decoder emits
// float32 samples in [-1, 1] which are scaled to 24-bit range.
type VorbisDecoder struct {
	reader   *oggvorbis.Reader
	channels int
	buf      []float32
}

// NewVorbis creates a streaming Vorbis decoder reading from r.
func NewVorbis(r io.Reader) (Decoder, error) {
	vr, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open vorbis stream: %w", err)
	}
	if vr.Channels() < 1 || vr.Channels() > 2 {
		return nil, fmt.Errorf("unsupported vorbis channel count: %d", vr.Channels())
	}
	return &VorbisDecoder{reader: vr, channels: vr.Channels()}, nil
}

// ReadFrames fills dst with decoded stereo frames.
func (d *VorbisDecoder) ReadFrames(dst []int32) (int, error) {
	frames := len(dst) / audio.Channels
	need := frames * d.channels
	if cap(d.buf) < need {
		d.buf = make([]float32, need)
	}

	n, err := d.reader.Read(d.buf[:need])
	got := n / d.channels
	if d.channels == 1 {
		for i := 0; i < got; i++ {
			s := sampleFromFloat(d.buf[i])
			dst[i*2] = s
			dst[i*2+1] = s
		}
	} else {
		for i := 0; i < got*2; i++ {
			dst[i] = sampleFromFloat(d.buf[i])
		}
	}

	if err == io.EOF {
		if got == 0 {
			return 0, io.EOF
		}
		return got, nil
	}
	if err != nil {
		return got, fmt.Errorf("vorbis decode error: %w", err)
	}
	return got, nil
}

// sampleFromFloat converts a [-1, 1] float sample to 24-bit range.
func sampleFromFloat(f float32) int32 {
	s := int32(f * float32(audio.Max24Bit))
	if s > audio.Max24Bit {
		return audio.Max24Bit
	}
	if s < audio.Min24Bit {
		return audio.Min24Bit
	}
	return s
}

// SampleRate reports the stream's native rate.
func (d *VorbisDecoder) SampleRate() int {
	return d.reader.SampleRate()
}

// Close releases decoder resources.
func (d *VorbisDecoder) Close() error {
	return nil
}
