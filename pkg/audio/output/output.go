// ABOUTME: Audio backend capability interface
// ABOUTME: Device enumeration, format probing and callback-driven stream control
package output

import (
	"errors"
	"time"
)

// ErrUnavailable reports that no usable output device exists. Callers
// treat the whole output backend as disabled and fall back.
var ErrUnavailable = errors.New("audio output unavailable")

// ReferenceRate is the sample rate used to probe devices at startup and
// the rate streams fall back to when no target rate is pending.
const ReferenceRate = 44100

// Status is the render callback's verdict for the backend.
type Status int

const (
	// StatusContinue keeps the stream running. The render path always
	// returns this; play/pause is governed by the running flag, never
	// by the callback's return value.
	StatusContinue Status = iota

	// StatusComplete asks the backend to drain and stop the stream.
	StatusComplete
)

// Flags carries backend-reported stream conditions into the callback.
// They are recorded for diagnostics only and never alter playback.
type Flags uint32

const (
	FlagUnderflow Flags = 1 << iota
	FlagOverflow
)

// RenderFunc is invoked by the backend once per hardware buffer cycle.
// It must fill out completely with interleaved stereo int32 samples
// (len(out)/2 frames) in bounded time, without blocking or allocating.
type RenderFunc func(out []int32, flags Flags) Status

// Device identifies one enumerated output device.
type Device struct {
	ID      int
	Name    string
	HostAPI string

	// DefaultHighLatency is the device's high-latency hint, favoring
	// glitch-free playback over minimal latency.
	DefaultHighLatency time.Duration
}

// Stream is a live binding of a render callback to a device at one
// fixed sample rate. Rate changes reopen a stream, never mutate one.
type Stream interface {
	// Start begins periodic render callbacks.
	Start() error

	// Close stops and releases the stream. The finished notifier
	// registered at open time fires asynchronously after the stream
	// has actually stopped.
	Close() error
}

// Backend is the narrow surface this engine consumes from an audio
// library: enumeration, format probing and stream control.
type Backend interface {
	// Name identifies the backend implementation for logs.
	Name() string

	// Devices enumerates output devices.
	Devices() ([]Device, error)

	// Supports reports whether the device can open a stereo int32
	// stream at the given sample rate.
	Supports(dev Device, sampleRate int) bool

	// Open creates a stream bound to dev at the given rate. render is
	// invoked on the backend's real-time thread; finished is invoked
	// off that thread after the stream stops.
	Open(dev Device, sampleRate int, render RenderFunc, finished func()) (Stream, error)

	// Close releases the backend itself.
	Close() error
}
