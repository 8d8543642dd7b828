// ABOUTME: Track source abstraction for the producer loop
// ABOUTME: A Track yields interleaved stereo int32 frames at its native rate
package source

// Track is a source of decoded audio for the producer loop. Both the
// local file source and the network source implement it.
type Track interface {
	// SampleRate is the track's native rate in Hz.
	SampleRate() int

	// ReadFrames fills dst with interleaved stereo samples and returns
	// the number of frames read. io.EOF signals end of track.
	ReadFrames(dst []int32) (int, error)

	// Close releases the track's resources.
	Close() error
}
