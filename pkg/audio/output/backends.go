// ABOUTME: Backend factory
// ABOUTME: Creates a named backend implementation
package output

import "fmt"

// New creates a backend by name: "malgo" (default), "portaudio" or "oto".
func New(name string) (Backend, error) {
	switch name {
	case "", "malgo":
		return NewMalgo()
	case "portaudio":
		return NewPortAudio()
	case "oto":
		return NewOto()
	default:
		return nil, fmt.Errorf("unknown audio backend %q", name)
	}
}
