// ABOUTME: Tests for mDNS server discovery
// ABOUTME: Covers lifecycle and the first-server timeout path
package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoveryFirstTimesOut(t *testing.T) {
	d := NewDiscovery()
	defer d.Stop()

	// No browse running, so the channel stays empty.
	_, err := d.First(20 * time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no streaming server")
}

func TestDiscoveryFirstReturnsQueued(t *testing.T) {
	d := NewDiscovery()
	defer d.Stop()

	want := ServerInfo{Name: "den", Host: "192.168.1.20", Port: 9000}
	d.servers <- want

	got, err := d.First(time.Second)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "192.168.1.20:9000", got.Addr())
}

func TestDiscoveryStopUnblocksFirst(t *testing.T) {
	d := NewDiscovery()

	errc := make(chan error, 1)
	go func() {
		_, err := d.First(5 * time.Second)
		errc <- err
	}()

	d.Stop()
	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("First did not unblock on Stop")
	}
}
