// ABOUTME: Additive sound-effect mixer
// ABOUTME: Blends preloaded WAV clips into rendered output buffers
package effects

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
)

// maxVoices bounds how many effects can sound at once; further Play
// calls are dropped until a voice frees up.
const maxVoices = 4

var log = logrus.WithField("component", "audio.effects")

type voice struct {
	samples []int32
	pos     int
}

// Mixer holds named PCM clips and mixes the armed ones additively into
// every rendered buffer. Mix is invoked from the real-time render path
// after the shared audio lock is released: it never allocates, and its
// own lock guards only index updates.
//
// Mixing is additive with saturation, and tolerates buffers that are
// already silence or that belong to stopped playback.
type Mixer struct {
	mu     sync.Mutex
	clips  map[string][]int32
	voices [maxVoices]voice
	gain   audio.Gain
}

// NewMixer creates an empty mixer at unity effect gain.
func NewMixer() *Mixer {
	return &Mixer{
		clips: make(map[string][]int32),
		gain:  audio.GainUnity,
	}
}

// AddClip registers stereo interleaved int32 PCM under a name.
func (m *Mixer) AddClip(name string, samples []int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clips[name] = samples
}

// LoadWAV loads one WAV file as a named clip. Samples are left-justified
// into the 24-bit int32 domain and mono clips are upmixed to stereo.
// Clips are played at the stream rate without resampling.
func (m *Mixer) LoadWAV(name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open effect %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("failed to decode effect %s: %w", name, err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 || bitDepth > 24 {
		bitDepth = 16
	}
	shift := uint(24 - bitDepth)

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	samples := make([]int32, frames*audio.Channels)
	for i := 0; i < frames; i++ {
		l := int32(buf.Data[i*channels]) << shift
		r := l
		if channels >= 2 {
			r = int32(buf.Data[i*channels+1]) << shift
		}
		samples[2*i] = l
		samples[2*i+1] = r
	}

	m.AddClip(name, samples)
	log.WithFields(logrus.Fields{
		"effect": name,
		"frames": frames,
	}).Debug("loaded effect clip")
	return nil
}

// LoadDir loads every .wav file in dir, keyed by base name.
func (m *Mixer) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read effects dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wav") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".wav")
		if err := m.LoadWAV(name, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// SetGain sets the gain applied to every effect sample.
func (m *Mixer) SetGain(g audio.Gain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gain = g
}

// Play arms a clip on a free voice. When all voices are busy the
// request is dropped.
func (m *Mixer) Play(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples, ok := m.clips[name]
	if !ok {
		return fmt.Errorf("unknown effect %q", name)
	}

	for i := range m.voices {
		if m.voices[i].samples == nil {
			m.voices[i] = voice{samples: samples}
			return nil
		}
	}

	log.WithField("effect", name).Debug("all effect voices busy, dropped")
	return nil
}

// Active returns the number of currently sounding voices.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for i := range m.voices {
		if m.voices[i].samples != nil {
			n++
		}
	}
	return n
}

// Mix adds the armed voices into out, saturating instead of wrapping.
func (m *Mixer) Mix(out []int32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.voices {
		v := &m.voices[i]
		if v.samples == nil {
			continue
		}

		n := len(v.samples) - v.pos
		if n > len(out) {
			n = len(out)
		}
		for j := 0; j < n; j++ {
			out[j] = audio.ClampAdd(out[j], audio.FixedMul(m.gain, v.samples[v.pos+j]))
		}
		v.pos += n

		if v.pos >= len(v.samples) {
			*v = voice{}
		}
	}
}
