//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Reports the backend unavailable when built without the portaudio tag
package output

import "fmt"

// NewPortAudio reports PortAudio support disabled.
func NewPortAudio() (Backend, error) {
	return nil, fmt.Errorf("portaudio support not enabled (build with -tags portaudio): %w", ErrUnavailable)
}
