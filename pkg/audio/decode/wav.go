// ABOUTME: WAV streaming decoder
// ABOUTME: Reads PCM chunks via go-audio/wav and converts to int32 samples
package decode

import (
	"fmt"
	"io"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVDecoder decodes a RIFF/WAVE stream.
type WAVDecoder struct {
	decoder  *wav.Decoder
	rate     int
	channels int
	shift    uint
	buf      *gaudio.IntBuffer
}

// NewWAV creates a streaming WAV decoder reading from rs. The wav
// chunk walker needs seeking, so a plain io.Reader is not enough.
func NewWAV(rs io.ReadSeeker) (Decoder, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to locate wav data chunk: %w", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported wav channel count: %d", channels)
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth > 24 {
		return nil, fmt.Errorf("unsupported wav bit depth: %d", bitDepth)
	}

	return &WAVDecoder{
		decoder:  dec,
		rate:     int(dec.SampleRate),
		channels: channels,
		shift:    uint(24 - bitDepth),
		buf: &gaudio.IntBuffer{
			Format: &gaudio.Format{
				NumChannels: channels,
				SampleRate:  int(dec.SampleRate),
			},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// ReadFrames fills dst with decoded stereo frames.
func (d *WAVDecoder) ReadFrames(dst []int32) (int, error) {
	frames := len(dst) / audio.Channels
	need := frames * d.channels
	if cap(d.buf.Data) < need {
		d.buf.Data = make([]int, need)
	}
	d.buf.Data = d.buf.Data[:need]

	n, err := d.decoder.PCMBuffer(d.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("wav decode error: %w", err)
	}
	got := n / d.channels
	if got == 0 {
		return 0, io.EOF
	}

	if d.channels == 1 {
		for i := 0; i < got; i++ {
			s := int32(d.buf.Data[i]) << d.shift
			dst[i*2] = s
			dst[i*2+1] = s
		}
	} else {
		for i := 0; i < got*2; i++ {
			dst[i] = int32(d.buf.Data[i]) << d.shift
		}
	}
	return got, nil
}

// SampleRate reports the stream's native rate.
func (d *WAVDecoder) SampleRate() int {
	return d.rate
}

// Close releases decoder resources.
func (d *WAVDecoder) Close() error {
	return nil
}
