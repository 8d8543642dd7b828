// ABOUTME: Real-time render callback
// ABOUTME: Fills each backend buffer from the fifo under the shared lock
package decode

import (
	"encoding/binary"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
	"github.com/cris-/squeezeos-squeezeplay/pkg/audio/output"
)

// Render is invoked by the backend once per hardware buffer cycle with
// len(out)/2 stereo frames to fill. It runs on the real-time thread:
// bounded time, no blocking calls, no allocation. The shared lock is
// held for the fifo work only and released before effects mixing.
//
// The callback never returns StatusComplete; play/pause is governed by
// the running flag alone.
func (e *Engine) Render(out []int32, flags output.Flags) output.Status {
	if flags&(output.FlagUnderflow|output.FlagOverflow) != 0 {
		// Diagnostics only; backend-reported status never alters
		// playback logic.
		e.backendEvents.Add(1)
	}

	e.state.mu.Lock()
	e.renderLocked(out)
	e.state.mu.Unlock()

	// Effects are mixed over the full requested length every cycle,
	// even when playback is stopped and the buffer is already silence.
	e.mixer.Mix(out)

	return output.StatusContinue
}

func (e *Engine) renderLocked(out []int32) {
	s := e.state
	rate := int(e.streamRate.Load())

	if !s.running {
		zeroSamples(out)
		return
	}

	pos := 0 // next output sample index

	if s.addSilenceMS > 0 && rate > 0 {
		silenceBytes := audio.FramesToBytes(s.addSilenceMS * rate / 1000)
		if max := (len(out) - pos) * audio.BytesPerSample; silenceBytes > max {
			silenceBytes = max
		}
		zeroSamples(out[pos : pos+silenceBytes/audio.BytesPerSample])
		pos += silenceBytes / audio.BytesPerSample

		s.addSilenceMS -= audio.BytesToFrames(silenceBytes) * 1000 / rate
		if s.addSilenceMS < silenceFloorMS {
			s.addSilenceMS = 0
		}
		if pos == len(out) {
			return
		}
	}

	remaining := (len(out) - pos) * audio.BytesPerSample
	used := s.fifo.Used()

	// Skip only what will not starve this request.
	skip := 0
	if s.skipAheadBytes > 0 && used >= remaining {
		skip = used - remaining
		if skip > s.skipAheadBytes {
			skip = s.skipAheadBytes
		}
	}

	if used > remaining {
		used = remaining
	}

	if used == 0 {
		s.underrun = true
		zeroSamples(out[pos:])
		return
	}
	if used < remaining {
		s.underrun = true
		zeroSamples(out[pos+used/audio.BytesPerSample:])
	} else {
		s.underrun = false
	}

	if skip > 0 {
		s.fifo.AdvanceRead(skip)
		s.skipAheadBytes -= skip
		s.elapsedFrames += uint64(audio.BytesToFrames(skip))
	}

	// Copy in wrap-aware segments, applying the per-channel gains to
	// every stereo pair with the one fixed-point rule.
	for used > 0 {
		n := used
		if wrap := s.fifo.ReadWrap(); n > wrap {
			n = wrap
		}
		seg := s.fifo.ReadSlice(n)
		for i := 0; i+audio.BytesPerFrame <= n; i += audio.BytesPerFrame {
			l := int32(binary.LittleEndian.Uint32(seg[i:]))
			r := int32(binary.LittleEndian.Uint32(seg[i+audio.BytesPerSample:]))
			out[pos] = audio.FixedMul(s.lgain, l)
			out[pos+1] = audio.FixedMul(s.rgain, r)
			pos += 2
		}
		s.fifo.AdvanceRead(n)
		s.elapsedFrames += uint64(audio.BytesToFrames(n))
		used -= n
	}

	// Rate mismatches are only recorded here; the reopen happens later,
	// off the real-time thread, once the stream has finished.
	if s.reachedStartPointLocked() && s.trackSampleRate != rate {
		s.setSampleRate = s.trackSampleRate
	}
}

func zeroSamples(out []int32) {
	for i := range out {
		out[i] = 0
	}
}
