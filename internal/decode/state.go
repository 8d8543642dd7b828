// ABOUTME: Shared audio state between decoder and render callback
// ABOUTME: One lock covers gains, flags, counters and the fifo indices
package decode

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
	"github.com/cris-/squeezeos-squeezeplay/pkg/audio/fifo"
)

const (
	// MaxSampleRate is the highest rate the output stage will bind a
	// stream to.
	MaxSampleRate = 48000

	// DefaultFifoBytes buffers ten seconds of 44.1 kHz stereo int32 PCM.
	DefaultFifoBytes = 10 * 44100 * audio.BytesPerFrame

	// silenceFloorMS snaps a residual transition-silence duration to
	// zero instead of carrying infinitesimal requests across callbacks.
	silenceFloorMS = 2
)

// AudioState is the mutable state shared by the decoder side and the
// real-time render callback. Both sides acquire the one mutex: the
// render callback holds it for the duration of its fifo work and
// releases it before effects mixing; the decoder side goes through the
// accessor methods, which lock internally.
//
// The state is allocated once and lives for the process.
type AudioState struct {
	mu   sync.Mutex
	fifo *fifo.Ring

	running  bool
	underrun bool

	lgain audio.Gain
	rgain audio.Gain

	addSilenceMS   int
	skipAheadBytes int
	elapsedFrames  uint64

	setSampleRate   int // pending target rate, 0 = no change pending
	trackSampleRate int
	maxSampleRate   int

	trackStartFrames uint64
	trackStartSet    bool
}

// NewAudioState allocates the shared state with a fifo of the given
// byte capacity. The pending target rate starts at the reference rate
// so the first stream open binds to it.
func NewAudioState(fifoBytes int) *AudioState {
	return &AudioState{
		fifo:            fifo.New(fifoBytes),
		lgain:           audio.GainUnity,
		rgain:           audio.GainUnity,
		setSampleRate:   44100,
		trackSampleRate: 44100,
		maxSampleRate:   MaxSampleRate,
	}
}

// Running reports whether playback is active.
func (s *AudioState) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetRunning gates audio content. When false the render callback emits
// silence; pause and resume are expressed entirely through this flag.
func (s *AudioState) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

// Underrun reports the status bit recomputed by every render callback.
// Diagnostics only; it never alters playback logic.
func (s *AudioState) Underrun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.underrun
}

// SetGain sets the per-channel fixed-point output gains.
func (s *AudioState) SetGain(left, right audio.Gain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lgain = left
	s.rgain = right
}

// Gains returns the current per-channel gains.
func (s *AudioState) Gains() (left, right audio.Gain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lgain, s.rgain
}

// ScheduleSilence asks the render callback to emit d of silence before
// the next buffered audio, spread across as many callbacks as needed.
func (s *AudioState) ScheduleSilence(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addSilenceMS = int(d.Milliseconds())
}

// PendingSilence returns the remaining transition-silence duration.
func (s *AudioState) PendingSilence() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.addSilenceMS) * time.Millisecond
}

// SkipAhead schedules d of buffered audio to be discarded so playback
// catches up to a live position. The render callback executes the skip
// incrementally, never by more than would starve its current request.
func (s *AudioState) SkipAhead(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := int(d.Milliseconds()) * s.trackSampleRate / 1000
	s.skipAheadBytes += audio.FramesToBytes(frames)
}

// SkipPending returns the byte count still to be skipped.
func (s *AudioState) SkipPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipAheadBytes
}

// ElapsedFrames returns the stereo frames consumed or skipped since the
// last reset. Monotonic while a stream stays open.
func (s *AudioState) ElapsedFrames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedFrames
}

// ResetElapsed rewinds the elapsed counter, typically at track change.
func (s *AudioState) ResetElapsed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsedFrames = 0
}

// BufferedBytes returns the bytes currently in the fifo.
func (s *AudioState) BufferedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fifo.Used()
}

// FreeBytes returns the writable fifo capacity.
func (s *AudioState) FreeBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fifo.Free()
}

// Capacity returns the fixed fifo capacity in bytes.
func (s *AudioState) Capacity() int {
	return s.fifo.Capacity()
}

// MaxSampleRate returns the highest stream rate the output supports.
func (s *AudioState) MaxSampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSampleRate
}

// TrackSampleRate returns the native rate of the current track.
func (s *AudioState) TrackSampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackSampleRate
}

// MarkTrackStart records that frames queued from this point on belong
// to a track with the given native sample rate. The start point is the
// elapsed-frame position at which the first of those frames will play;
// once playback reaches it, the render callback compares the track rate
// against the stream rate and records a pending target rate on mismatch.
func (s *AudioState) MarkTrackStart(sampleRate int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sampleRate > s.maxSampleRate {
		sampleRate = s.maxSampleRate
	}
	s.trackSampleRate = sampleRate
	s.trackStartFrames = s.elapsedFrames + uint64(audio.BytesToFrames(s.fifo.Used()))
	s.trackStartSet = true
}

// ReachedStartPoint reports whether playback has consumed up to the
// most recent track start mark.
func (s *AudioState) ReachedStartPoint() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reachedStartPointLocked()
}

func (s *AudioState) reachedStartPointLocked() bool {
	return s.trackStartSet && s.elapsedFrames >= s.trackStartFrames
}

// TargetRate returns the pending target sample rate, 0 when no change
// is pending.
func (s *AudioState) TargetRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSampleRate
}

// setTargetRate records a pending rate change.
func (s *AudioState) setTargetRate(rate int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSampleRate = rate
}

// takeTargetRate consumes the pending target rate.
func (s *AudioState) takeTargetRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	rate := s.setSampleRate
	s.setSampleRate = 0
	return rate
}

// ProduceFrames appends interleaved stereo int32 samples to the fifo,
// serializing little-endian and splitting across the wrap boundary as
// two contiguous segments. Partial frames are never written. Returns
// the number of frames accepted; the caller retries later when the
// fifo is full.
func (s *AudioState) ProduceFrames(samples []int32) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(samples) / audio.Channels
	if free := audio.BytesToFrames(s.fifo.Free()); frames > free {
		frames = free
	}
	if frames == 0 {
		return 0
	}

	remaining := audio.FramesToBytes(frames)
	idx := 0
	for remaining > 0 {
		n := remaining
		if wrap := s.fifo.WriteWrap(); n > wrap {
			n = wrap
		}
		seg := s.fifo.WriteSlice(n)
		for i := 0; i < n; i += audio.BytesPerSample {
			binary.LittleEndian.PutUint32(seg[i:], uint32(samples[idx]))
			idx++
		}
		s.fifo.AdvanceWrite(n)
		remaining -= n
	}
	return frames
}

// Flush discards all buffered audio and any pending skip, e.g. on seek
// or track abort. Underrun will be re-evaluated by the next callback.
func (s *AudioState) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fifo.Reset()
	s.skipAheadBytes = 0
	s.addSilenceMS = 0
}
