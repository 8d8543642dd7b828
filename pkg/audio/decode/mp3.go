// ABOUTME: MP3 streaming decoder
// ABOUTME: Decodes an MP3 stream to int32 samples via go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes an MP3 stream. go-mp3 always emits 16-bit
// stereo little-endian PCM regardless of the source channel count.
type MP3Decoder struct {
	decoder *mp3.Decoder
	buf     []byte
}

// NewMP3 creates a streaming MP3 decoder reading from r.
func NewMP3(r io.Reader) (Decoder, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}
	return &MP3Decoder{decoder: dec}, nil
}

// ReadFrames fills dst with decoded stereo frames.
func (d *MP3Decoder) ReadFrames(dst []int32) (int, error) {
	frames := len(dst) / audio.Channels
	need := frames * audio.Channels * 2 // 16-bit samples
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}

	n, err := io.ReadFull(d.decoder, d.buf[:need])
	got := n / (audio.Channels * 2) // whole frames only
	for i := 0; i < got*audio.Channels; i++ {
		s := int16(binary.LittleEndian.Uint16(d.buf[i*2:]))
		dst[i] = audio.SampleFromInt16(s)
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if got == 0 {
			return 0, io.EOF
		}
		return got, nil
	}
	if err != nil {
		return got, fmt.Errorf("mp3 decode error: %w", err)
	}
	return got, nil
}

// SampleRate reports the stream's native rate.
func (d *MP3Decoder) SampleRate() int {
	return d.decoder.SampleRate()
}

// Close releases decoder resources.
func (d *MP3Decoder) Close() error {
	return nil
}
