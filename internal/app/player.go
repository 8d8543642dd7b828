// ABOUTME: Main player application orchestration
// ABOUTME: Coordinates track source, decode engine, effects and UI
package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cris-/squeezeos-squeezeplay/internal/decode"
	"github.com/cris-/squeezeos-squeezeplay/internal/effects"
	"github.com/cris-/squeezeos-squeezeplay/internal/source"
	"github.com/cris-/squeezeos-squeezeplay/internal/ui"
	"github.com/cris-/squeezeos-squeezeplay/internal/version"
	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
	"github.com/cris-/squeezeos-squeezeplay/pkg/audio/output"
	"github.com/sirupsen/logrus"
)

const (
	// produceChunkFrames is the producer's read granularity.
	produceChunkFrames = 4096

	// produceBackoff paces the producer when the fifo is full. The
	// render callback drains at wall-clock speed, so a short sleep is
	// enough to make room.
	produceBackoff = 10 * time.Millisecond

	defaultBufferMs       = 500
	defaultDiscoverWindow = 10 * time.Second
)

// Config holds player configuration.
type Config struct {
	Backend    string
	Path       string // local file, takes priority over network
	ServerAddr string // manual stream server, skips discovery
	Volume     int
	EffectsDir string
	BufferMs   int // startup buffering threshold
	NoTUI      bool
}

// Player is the main application: it owns the decode engine, feeds it
// from a track source and drives the UI.
type Player struct {
	log     *logrus.Entry
	config  Config
	engine  *decode.Engine
	effects *effects.Mixer

	mu        sync.Mutex
	track     source.Track
	trackName string
	playing   bool

	tuiProg *tea.Program
	volCtrl *ui.VolumeControl

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a player: negotiates an output device, loads effect
// clips and applies the initial volume. Returns the engine's
// ErrUnavailable wrapper when no usable device exists.
func New(config Config) (*Player, error) {
	if config.BufferMs <= 0 {
		config.BufferMs = defaultBufferMs
	}

	log := logrus.WithField("component", "app")

	backend, err := output.New(config.Backend)
	if err != nil {
		return nil, err
	}

	mixer := effects.NewMixer()
	if config.EffectsDir != "" {
		if err := mixer.LoadDir(config.EffectsDir); err != nil {
			log.WithError(err).Warn("failed to load effect clips")
		}
	}

	engine, err := decode.New(decode.Config{
		Backend: backend,
		Mixer:   mixer,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		log:     log,
		config:  config,
		engine:  engine,
		effects: mixer,
		ctx:     ctx,
		cancel:  cancel,
	}
	p.SetVolume(config.Volume)
	return p, nil
}

// Run opens the track source, starts the engine and blocks until the
// track finishes or the player is stopped.
func (p *Player) Run() error {
	track, name, err := p.openTrack()
	if err != nil {
		return err
	}
	return p.run(track, name)
}

// run drives an opened track until it finishes or the player stops.
func (p *Player) run(track source.Track, name string) error {
	p.mu.Lock()
	p.track = track
	p.trackName = name
	p.mu.Unlock()

	p.engine.Start()
	defer p.engine.Close()

	if !p.config.NoTUI {
		if err := p.startTUI(); err != nil {
			p.log.WithError(err).Warn("failed to start UI, continuing headless")
		}
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.produce(track)
	}()

	<-p.ctx.Done()

	// A producer parked inside ReadFrames on a quiet source only
	// observes shutdown once the track is torn down, so close it before
	// reaping the goroutines.
	if err := track.Close(); err != nil {
		p.log.WithError(err).Debug("track close")
	}
	p.wg.Wait()

	if p.tuiProg != nil {
		p.tuiProg.Quit()
	}
	return nil
}

// openTrack resolves the configured source: local file, manual server
// address, or mDNS discovery.
func (p *Player) openTrack() (source.Track, string, error) {
	if p.config.Path != "" {
		t, err := source.OpenFile(p.config.Path)
		if err != nil {
			return nil, "", err
		}
		return t, p.config.Path, nil
	}

	addr := p.config.ServerAddr
	if addr == "" {
		d := source.NewDiscovery()
		d.Browse()
		defer d.Stop()

		server, err := d.First(defaultDiscoverWindow)
		if err != nil {
			return nil, "", fmt.Errorf("no track source: %w", err)
		}
		addr = server.Addr()
	}

	t, err := source.Dial(source.NetworkConfig{ServerAddr: addr, Name: version.Product})
	if err != nil {
		return nil, "", err
	}
	return t, addr, nil
}

// produce is the decoder-side loop: it pulls frames from the track and
// queues them into the shared fifo, gating the running flag on the
// startup threshold. Runs off the real-time path.
func (p *Player) produce(track source.Track) {
	defer p.cancel()

	st := p.engine.State()
	st.Flush()
	st.ResetElapsed()
	st.MarkTrackStart(track.SampleRate())

	threshold := audio.FramesToBytes(p.config.BufferMs * st.TrackSampleRate() / 1000)
	if threshold > st.Capacity() {
		threshold = st.Capacity()
	}

	buf := make([]int32, produceChunkFrames*audio.Channels)
	for {
		n, err := track.ReadFrames(buf)
		if n > 0 {
			if !p.queue(st, buf[:n*audio.Channels], threshold) {
				return
			}
		}
		p.maybeStart(st, threshold)

		if err == io.EOF {
			// Short tracks never reach the threshold; play what there is.
			if !p.isPlaying() && st.BufferedBytes() > 0 {
				st.SetRunning(true)
				p.setPlaying(true)
			}
			p.drain(st)
			return
		}
		if err != nil {
			p.log.WithError(err).Error("track read failed")
			p.drain(st)
			return
		}
		if p.ctx.Err() != nil {
			return
		}
	}
}

// queue writes samples into the fifo, sleeping while it is full. The
// threshold check runs inside the wait loop so a full fifo can still
// trip the running flag and start draining. Returns false on shutdown.
func (p *Player) queue(st *decode.AudioState, samples []int32, threshold int) bool {
	offset := 0
	for offset < len(samples) {
		written := st.ProduceFrames(samples[offset:])
		offset += written * audio.Channels
		p.maybeStart(st, threshold)
		if offset < len(samples) {
			select {
			case <-time.After(produceBackoff):
			case <-p.ctx.Done():
				return false
			}
		}
	}
	return true
}

// maybeStart flips the running flag once the startup threshold is
// buffered.
func (p *Player) maybeStart(st *decode.AudioState, threshold int) {
	if !p.isPlaying() && st.BufferedBytes() >= threshold {
		st.SetRunning(true)
		p.setPlaying(true)
		p.log.WithField("buffered", st.BufferedBytes()).Info("playback started")
	}
}

// drain waits for the fifo to empty, then stops playback and rebinds
// the stream to the reference rate.
func (p *Player) drain(st *decode.AudioState) {
	for st.BufferedBytes() > 0 && p.ctx.Err() == nil {
		time.Sleep(produceBackoff)
	}
	st.SetRunning(false)
	p.setPlaying(false)
	p.engine.Stop()
	p.log.Info("track finished")
}

// startTUI launches the bubbletea program and the loops that feed it
// status updates and apply its volume changes.
func (p *Player) startTUI() error {
	p.volCtrl = ui.NewVolumeControl()
	prog, err := ui.Run(p.volCtrl, p.config.Volume)
	if err != nil {
		return err
	}
	p.tuiProg = prog

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		if _, err := prog.Run(); err != nil {
			p.log.WithError(err).Warn("UI exited with error")
		}
		p.cancel()
	}()
	go func() {
		defer p.wg.Done()
		p.statusLoop()
	}()
	return nil
}

// statusLoop pumps playback status into the UI and services its
// control channels.
func (p *Player) statusLoop() {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tuiProg.Send(p.statusMsg())
		case change := <-p.volCtrl.Changes:
			p.SetVolume(change.Volume)
		case <-p.volCtrl.Quit:
			p.cancel()
			return
		case <-p.ctx.Done():
			return
		}
	}
}

// statusMsg snapshots the player for the UI.
func (p *Player) statusMsg() ui.StatusMsg {
	st := p.engine.State()

	state := "stopped"
	if p.isPlaying() {
		if st.Running() {
			state = "playing"
		} else {
			state = "buffering"
		}
	} else if st.BufferedBytes() > 0 {
		state = "buffering"
	}

	rate := st.TrackSampleRate()
	var elapsed time.Duration
	if rate > 0 {
		elapsed = time.Duration(st.ElapsedFrames()) * time.Second / time.Duration(rate)
	}

	p.mu.Lock()
	name := p.trackName
	p.mu.Unlock()

	return ui.StatusMsg{
		State:         state,
		Track:         name,
		SampleRate:    rate,
		StreamRate:    p.engine.StreamRate(),
		BufferFill:    float64(st.BufferedBytes()) * 100 / float64(st.Capacity()),
		Underrun:      st.Underrun(),
		Elapsed:       elapsed,
		BackendEvents: p.engine.BackendEvents(),
	}
}

// SetVolume maps a 0-100 volume to the per-channel output gains.
func (p *Player) SetVolume(volume int) {
	g := audio.GainForVolume(volume)
	p.engine.State().SetGain(g, g)
}

// Seek schedules d of buffered audio to be skipped so playback jumps
// forward without reopening the stream.
func (p *Player) Seek(d time.Duration) {
	p.engine.State().SkipAhead(d)
}

// PlayEffect arms a named UI sound effect.
func (p *Player) PlayEffect(name string) error {
	return p.effects.Play(name)
}

// Engine exposes the decode engine, mainly for status inspection.
func (p *Player) Engine() *decode.Engine {
	return p.engine
}

// Stop shuts the player down.
func (p *Player) Stop() {
	p.cancel()
}

func (p *Player) isPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) setPlaying(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = v
}
