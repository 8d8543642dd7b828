// ABOUTME: Decoder interfaces and codec factory
// ABOUTME: Streaming decoders for files, packet decoders for network transports
package decode

import (
	"fmt"
	"io"
	"strings"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
)

// Decoder pulls decoded PCM from a compressed stream. All decoders
// output interleaved stereo int32 samples in 24-bit range; mono
// sources are upmixed by duplicating the channel.
type Decoder interface {
	// ReadFrames fills dst with interleaved stereo samples and returns
	// the number of frames decoded. Returns io.EOF when the stream is
	// exhausted and no frames were produced.
	ReadFrames(dst []int32) (int, error)

	// SampleRate reports the native rate of the decoded stream.
	SampleRate() int

	// Close releases decoder resources.
	Close() error
}

// PacketDecoder decodes discrete encoded packets as delivered by
// network transports.
type PacketDecoder interface {
	// Decode converts one encoded packet to int32 samples.
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources.
	Close() error
}

// New creates a streaming decoder for the given codec name reading
// from r. Codec names are case-insensitive file extensions.
func New(codec string, r io.ReadSeeker) (Decoder, error) {
	switch strings.ToLower(strings.TrimPrefix(codec, ".")) {
	case "mp3":
		return NewMP3(r)
	case "wav":
		return NewWAV(r)
	case "flac":
		return NewFLAC(r)
	case "ogg", "oga", "vorbis":
		return NewVorbis(r)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
}

// NewPacket creates a packet decoder for a negotiated stream format.
// An empty codec means raw PCM, the historical default of the stream
// handshake.
func NewPacket(format audio.Format) (PacketDecoder, error) {
	format.Codec = strings.ToLower(format.Codec)
	switch format.Codec {
	case "", "pcm":
		format.Codec = "pcm"
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
