//go:build portaudio

// ABOUTME: PortAudio backend implementation
// ABOUTME: Cross-platform callback-driven audio output using PortAudio
package output

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// portAudioBackend adapts the PortAudio host API to the Backend surface.
type portAudioBackend struct {
	devices []*portaudio.DeviceInfo
}

// NewPortAudio initializes PortAudio and enumerates its devices.
func NewPortAudio() (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to enumerate portaudio devices: %w", err)
	}

	return &portAudioBackend{devices: devices}, nil
}

func (b *portAudioBackend) Name() string {
	return "portaudio"
}

func (b *portAudioBackend) Devices() ([]Device, error) {
	out := make([]Device, 0, len(b.devices))
	for i, info := range b.devices {
		if info.MaxOutputChannels < 2 {
			continue
		}
		out = append(out, Device{
			ID:                 i,
			Name:               info.Name,
			HostAPI:            info.HostApi.Name,
			DefaultHighLatency: info.DefaultHighOutputLatency,
		})
	}
	return out, nil
}

func (b *portAudioBackend) Supports(dev Device, sampleRate int) bool {
	info := b.devices[dev.ID]
	p := b.streamParameters(info, sampleRate)
	// The sample format is inferred from the probe callback's buffer type.
	return portaudio.IsFormatSupported(p, func(out []int32) {}) == nil
}

func (b *portAudioBackend) Open(dev Device, sampleRate int, render RenderFunc, finished func()) (Stream, error) {
	info := b.devices[dev.ID]
	p := b.streamParameters(info, sampleRate)

	cb := func(out []int32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		var f Flags
		if flags&portaudio.OutputUnderflow != 0 {
			f |= FlagUnderflow
		}
		if flags&portaudio.OutputOverflow != 0 {
			f |= FlagOverflow
		}
		render(out, f)
	}

	stream, err := portaudio.OpenStream(p, cb)
	if err != nil {
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &portAudioStream{stream: stream, finished: finished}, nil
}

func (b *portAudioBackend) streamParameters(info *portaudio.DeviceInfo, sampleRate int) portaudio.StreamParameters {
	// High-latency defaults favor glitch-free playback over low latency.
	p := portaudio.HighLatencyParameters(nil, info)
	p.Output.Channels = 2
	p.SampleRate = float64(sampleRate)
	p.FramesPerBuffer = portaudio.FramesPerBufferUnspecified
	return p
}

func (b *portAudioBackend) Close() error {
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream   *portaudio.Stream
	finished func()
}

func (s *portAudioStream) Start() error {
	return s.stream.Start()
}

// Close stops and releases the stream, then delivers the finished
// notification off the callback thread. The Go binding does not expose
// Pa_SetStreamFinishedCallback, so the notifier fires once the close
// has actually stopped the stream.
func (s *portAudioStream) Close() error {
	err := s.stream.Close()
	if s.finished != nil {
		go s.finished()
	}
	return err
}
