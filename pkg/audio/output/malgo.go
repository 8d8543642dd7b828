// ABOUTME: Malgo/miniaudio backend implementation
// ABOUTME: Device enumeration and callback-driven playback via miniaudio
package output

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gen2brain/malgo"
)

// malgoHighLatency is the latency hint reported for miniaudio devices;
// the library does not expose per-device latency defaults.
const malgoHighLatency = 100 * time.Millisecond

// malgoBackend adapts miniaudio to the Backend surface.
type malgoBackend struct {
	ctx   *malgo.AllocatedContext
	infos []malgo.DeviceInfo
}

// NewMalgo initializes a miniaudio context and enumerates playback devices.
func NewMalgo() (Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	return &malgoBackend{ctx: ctx, infos: infos}, nil
}

func (b *malgoBackend) Name() string {
	return "malgo"
}

func (b *malgoBackend) Devices() ([]Device, error) {
	out := make([]Device, 0, len(b.infos))
	for i, info := range b.infos {
		out = append(out, Device{
			ID:                 i,
			Name:               info.Name(),
			HostAPI:            "miniaudio",
			DefaultHighLatency: malgoHighLatency,
		})
	}
	return out, nil
}

// Supports always holds for miniaudio playback devices: the library
// converts sample format and rate internally.
func (b *malgoBackend) Supports(dev Device, sampleRate int) bool {
	return dev.ID >= 0 && dev.ID < len(b.infos)
}

func (b *malgoBackend) Open(dev Device, sampleRate int, render RenderFunc, finished func()) (Stream, error) {
	if dev.ID < 0 || dev.ID >= len(b.infos) {
		return nil, fmt.Errorf("unknown device id %d", dev.ID)
	}
	info := b.infos[dev.ID]

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS32
	config.Playback.Channels = 2
	config.Playback.DeviceID = info.ID.Pointer()
	config.SampleRate = uint32(sampleRate)
	config.PeriodSizeInMilliseconds = uint32(dev.DefaultHighLatency.Milliseconds())
	config.Alsa.NoMMap = 1

	// Scratch sized for twice the configured period so the data callback
	// never allocates.
	scratchFrames := 2 * sampleRate * int(dev.DefaultHighLatency.Milliseconds()) / 1000
	if scratchFrames < 4096 {
		scratchFrames = 4096
	}
	st := &malgoStream{
		render:   render,
		finished: finished,
		scratch:  make([]int32, scratchFrames*2),
	}

	callbacks := malgo.DeviceCallbacks{
		Data: st.data,
		Stop: st.stop,
	}

	device, err := malgo.InitDevice(b.ctx.Context, config, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	st.device = device

	return st, nil
}

func (b *malgoBackend) Close() error {
	if err := b.ctx.Uninit(); err != nil {
		return fmt.Errorf("malgo context uninit: %w", err)
	}
	b.ctx.Free()
	return nil
}

type malgoStream struct {
	device   *malgo.Device
	render   RenderFunc
	finished func()
	scratch  []int32
}

// data is miniaudio's buffer-empty callback: render frameCount stereo
// frames and serialize them little-endian into the device buffer.
func (s *malgoStream) data(pOutput, _ []byte, frameCount uint32) {
	samples := int(frameCount) * 2
	if samples > len(s.scratch) {
		// Period larger than configured; render what fits rather than
		// allocating on the audio thread.
		samples = len(s.scratch)
	}

	out := s.scratch[:samples]
	s.render(out, 0)

	for i, sample := range out {
		binary.LittleEndian.PutUint32(pOutput[i*4:], uint32(sample))
	}
	// The device buffer is not zeroed by miniaudio; any part left
	// unrendered must be silenced.
	clear(pOutput[samples*4:])
}

// stop is miniaudio's stream-stopped notification, delivered off the
// data callback thread.
func (s *malgoStream) stop() {
	if s.finished != nil {
		s.finished()
	}
}

func (s *malgoStream) Start() error {
	return s.device.Start()
}

func (s *malgoStream) Close() error {
	// Uninit stops the device first; the stop callback delivers the
	// finished notification.
	s.device.Uninit()
	return nil
}
