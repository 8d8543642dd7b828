// ABOUTME: Audio output backend package
// ABOUTME: Device negotiation and callback-driven stream backends
// Package output abstracts the audio host API behind a narrow capability
// surface: enumerate devices, probe formats, open callback-driven streams.
//
// Three backends are provided: miniaudio (malgo, default), PortAudio
// (behind the portaudio build tag) and oto (pull-model fallback on the
// default device).
//
// Example:
//
//	backend, err := output.New("malgo")
//	dev, err := output.Negotiate(backend)
//	stream, err := backend.Open(dev, 44100, render, finished)
//	err = stream.Start()
package output
