// ABOUTME: Tests for device negotiation and the backend factory
// ABOUTME: Uses a fake backend to exercise the startup device scan
package output

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend supports a configurable subset of its devices.
type fakeBackend struct {
	devices   []Device
	supported map[int]bool
	probes    []int
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Devices() ([]Device, error) { return b.devices, nil }

func (b *fakeBackend) Supports(dev Device, sampleRate int) bool {
	b.probes = append(b.probes, dev.ID)
	return b.supported[dev.ID]
}

func (b *fakeBackend) Open(dev Device, sampleRate int, render RenderFunc, finished func()) (Stream, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBackend) Close() error { return nil }

func TestNegotiateSelectsFirstSupportedDevice(t *testing.T) {
	b := &fakeBackend{
		devices: []Device{
			{ID: 0, Name: "HDMI", HostAPI: "ALSA"},
			{ID: 1, Name: "Speakers", HostAPI: "ALSA", DefaultHighLatency: 80 * time.Millisecond},
			{ID: 2, Name: "USB DAC", HostAPI: "ALSA", DefaultHighLatency: 120 * time.Millisecond},
		},
		supported: map[int]bool{1: true, 2: true},
	}

	dev, err := Negotiate(b)
	require.NoError(t, err)
	assert.Equal(t, 1, dev.ID)
	assert.Equal(t, "Speakers", dev.Name)

	// The high-latency hint of the chosen device travels with it.
	assert.Equal(t, 80*time.Millisecond, dev.DefaultHighLatency)

	// The scan stops at the first supporting device.
	assert.Equal(t, []int{0, 1}, b.probes)
}

func TestNegotiateNoSupportedDevice(t *testing.T) {
	b := &fakeBackend{
		devices:   []Device{{ID: 0, Name: "HDMI", HostAPI: "ALSA"}},
		supported: map[int]bool{},
	}

	_, err := Negotiate(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNegotiateNoDevices(t *testing.T) {
	b := &fakeBackend{}

	_, err := Negotiate(b)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("pulse")
	assert.Error(t, err)
}
