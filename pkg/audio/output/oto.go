// ABOUTME: Oto backend implementation
// ABOUTME: Pull-model fallback output on the process default device
package output

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
)

// otoBackend drives the default output device through oto's pull model:
// the player periodically reads from an io.Reader, which forwards the
// pull to the render callback.
//
// Oto allows a single context per process bound to one sample rate, so
// this backend cannot service mid-stream rate changes; an Open at a
// different rate fails and playback stays silent until the next
// reconfiguration trigger. Use the portaudio or malgo backend when rate
// switching matters.
type otoBackend struct {
	ctx  *oto.Context
	rate int
}

// NewOto creates the oto fallback backend.
func NewOto() (Backend, error) {
	return &otoBackend{}, nil
}

func (b *otoBackend) Name() string {
	return "oto"
}

// Devices reports the single default device oto exposes.
func (b *otoBackend) Devices() ([]Device, error) {
	return []Device{{
		ID:                 0,
		Name:               "default",
		HostAPI:            "oto",
		DefaultHighLatency: 100 * time.Millisecond,
	}}, nil
}

func (b *otoBackend) Supports(dev Device, sampleRate int) bool {
	return b.ctx == nil || b.rate == sampleRate
}

func (b *otoBackend) Open(dev Device, sampleRate int, render RenderFunc, finished func()) (Stream, error) {
	if b.ctx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   dev.DefaultHighLatency,
		}
		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return nil, fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan
		b.ctx = ctx
		b.rate = sampleRate
	} else if b.rate != sampleRate {
		return nil, fmt.Errorf("oto context is fixed at %d Hz, cannot open at %d Hz", b.rate, sampleRate)
	}

	src := &otoRenderReader{render: render}
	player := b.ctx.NewPlayer(src)

	return &otoStream{player: player, finished: finished}, nil
}

func (b *otoBackend) Close() error {
	// Oto contexts cannot be torn down; the process owns it for life.
	return nil
}

// otoRenderReader adapts the pull of oto's player into render callback
// invocations. Each Read is one buffer cycle: len(p)/4 stereo 16-bit
// frames.
type otoRenderReader struct {
	render  RenderFunc
	scratch []int32
}

func (r *otoRenderReader) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}

	samples := frames * 2
	if samples > len(r.scratch) {
		r.scratch = make([]int32, samples)
	}

	out := r.scratch[:samples]
	r.render(out, 0)

	// Downconvert the 24-bit int32 samples to oto's 16-bit format.
	for i, sample := range out {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	return frames * 4, nil
}

type otoStream struct {
	player   *oto.Player
	finished func()
}

func (s *otoStream) Start() error {
	s.player.Play()
	return nil
}

func (s *otoStream) Close() error {
	err := s.player.Close()
	if s.finished != nil {
		go s.finished()
	}
	return err
}
