// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Streaming decoders for MP3/FLAC/WAV/Vorbis, packet decoders for PCM/Opus
// Package decode provides audio decoders for various codecs.
//
// Streaming codecs (MP3, FLAC, WAV, Ogg Vorbis) implement the Decoder
// interface and pull from an io.Reader. Packet codecs (raw PCM, Opus)
// implement PacketDecoder and convert discrete packets as delivered by
// network transports.
//
// All decoders output interleaved stereo int32 samples in 24-bit range
// for consistent downstream processing; mono sources are upmixed.
//
// Example:
//
//	dec, err := decode.New("flac", f)
//	n, err := dec.ReadFrames(buf)
package decode
