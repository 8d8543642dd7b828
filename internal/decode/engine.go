// ABOUTME: Stream lifecycle manager and reconfiguration worker
// ABOUTME: Owns open/close/start of backend streams and deferred rate changes
package decode

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio/output"
)

// Mixer blends auxiliary sound effects into a rendered buffer. Mix is
// additive, runs on the real-time thread after the shared lock is
// released and must tolerate being invoked while primary playback is
// stopped or the buffer already holds silence.
type Mixer interface {
	Mix(out []int32)
}

type nopMixer struct{}

func (nopMixer) Mix([]int32) {}

// reopenRequest asks the worker to reopen the stream at the pending
// target rate. At most one request is outstanding; a second one is
// dropped, never merged or overwritten.
type reopenRequest struct{}

// Config configures an Engine.
type Config struct {
	// Backend is the audio host API adapter. Required.
	Backend output.Backend

	// Mixer blends sound effects into every rendered buffer. Optional.
	Mixer Mixer

	// FifoBytes overrides the decode fifo capacity. Optional.
	FifoBytes int
}

// Engine owns the decode output stage: the shared audio state, the
// render callback and the stream lifecycle.
type Engine struct {
	log     *logrus.Entry
	state   *AudioState
	backend output.Backend
	device  output.Device
	mixer   Mixer

	// streamRate is the rate the open stream is bound to. Written by
	// the worker while reopening, read by the render callback.
	streamRate    atomic.Uint32
	backendEvents atomic.Uint64

	// mu guards the stream handle against concurrent lifecycle calls.
	// This is not the shared audio lock.
	mu     sync.Mutex
	stream output.Stream

	reqs chan reopenRequest
	done chan struct{}
	wg   sync.WaitGroup
}

// New negotiates an output device and allocates the engine. A failed
// negotiation wraps output.ErrUnavailable: the caller should disable
// this output entirely and fall back.
func New(cfg Config) (*Engine, error) {
	if cfg.Backend == nil {
		return nil, errors.New("decode: nil backend")
	}

	dev, err := output.Negotiate(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	fifoBytes := cfg.FifoBytes
	if fifoBytes <= 0 {
		fifoBytes = DefaultFifoBytes
	}
	mixer := cfg.Mixer
	if mixer == nil {
		mixer = nopMixer{}
	}

	e := &Engine{
		log:     logrus.WithField("component", "audio.decode"),
		state:   NewAudioState(fifoBytes),
		backend: cfg.Backend,
		device:  dev,
		mixer:   mixer,
		reqs:    make(chan reopenRequest, 1),
		done:    make(chan struct{}),
	}

	e.log.WithFields(logrus.Fields{
		"backend":  cfg.Backend.Name(),
		"device":   dev.Name,
		"host_api": dev.HostAPI,
		"latency":  dev.DefaultHighLatency,
	}).Debug("output device selected")

	return e, nil
}

// State returns the shared audio state handle for the decoder side.
func (e *Engine) State() *AudioState {
	return e.state
}

// Device returns the negotiated output device.
func (e *Engine) Device() output.Device {
	return e.device
}

// StreamRate returns the sample rate of the currently open stream.
func (e *Engine) StreamRate() int {
	return int(e.streamRate.Load())
}

// BackendEvents returns how many underflow/overflow conditions the
// backend has reported. Diagnostics only.
func (e *Engine) BackendEvents() uint64 {
	return e.backendEvents.Load()
}

// Start launches the reconfiguration worker and opens the initial
// stream at the pending target rate. Open failures are logged, not
// fatal; playback stays silent until the next successful open.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.worker()
	e.openStream()
}

// Stop resets the target rate to the reference rate and reopens the
// stream. Reopening at the current rate is valid and simply restarts.
func (e *Engine) Stop() {
	e.state.setTargetRate(output.ReferenceRate)
	e.openStream()
}

// Pause is a deliberate no-op: audio content is gated entirely by the
// running flag, so a paused stream keeps cycling and renders silence.
// The backend's native pause primitive stays unused.
func (e *Engine) Pause() {}

// Resume is a no-op; see Pause.
func (e *Engine) Resume() {}

// Close stops the worker and releases the stream.
func (e *Engine) Close() error {
	close(e.done)
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream != nil {
		if err := e.stream.Close(); err != nil {
			e.log.WithError(err).Warn("failed to close stream")
		}
		e.stream = nil
	}
	return nil
}

// openStream closes any existing stream and opens a new one bound to
// the pending target rate. Runs on the worker side only; forbidden in
// the render callback and in the backend's finished context.
func (e *Engine) openStream() {
	e.mu.Lock()
	defer e.mu.Unlock()

	rate := e.state.takeTargetRate()
	if rate == 0 {
		if e.stream != nil {
			// Stale reopen request with nothing pending; the stream
			// already plays at the right rate.
			return
		}
		rate = output.ReferenceRate
	}

	if e.stream != nil {
		if err := e.stream.Close(); err != nil {
			e.log.WithError(err).Warn("failed to close stream")
		}
		e.stream = nil
	}

	stream, err := e.backend.Open(e.device, rate, e.Render, e.finished)
	if err != nil {
		e.log.WithError(err).WithField("rate", rate).Warn("failed to open stream")
		return
	}
	e.stream = stream
	e.streamRate.Store(uint32(rate))

	if err := stream.Start(); err != nil {
		e.log.WithError(err).WithField("rate", rate).Warn("failed to start stream")
		return
	}

	e.log.WithFields(logrus.Fields{
		"rate":   rate,
		"device": e.device.Name,
	}).Debug("stream open")
}

// finished is the backend's stream-finished notification, delivered
// asynchronously after a stream has actually stopped. If a target rate
// is pending it hands a reopen to the worker through the single-slot
// channel; when the slot is taken the request is dropped and the
// condition self-heals on the next mismatch evaluation.
func (e *Engine) finished() {
	if e.state.TargetRate() == 0 {
		return
	}

	select {
	case e.reqs <- reopenRequest{}:
	default:
		e.log.Debug("reconfiguration request already pending, dropped")
	}
}

// worker services reopen requests off the real-time thread. A request,
// once accepted, is guaranteed to execute; there is no cancellation.
func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.reqs:
			e.openStream()
		case <-e.done:
			return
		}
	}
}
