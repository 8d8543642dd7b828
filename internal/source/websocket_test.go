// ABOUTME: Tests for the network track source
// ABOUTME: Runs a real websocket server and streams PCM packets through it
package source

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStreamServer serves one websocket session: handshake, the given
// binary packets, then close.
func newStreamServer(t *testing.T, start streamStart, packets [][]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("failed to read hello: %v", err)
			return
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "player/hello" {
			t.Errorf("expected player/hello, got %s (err %v)", msg.Type, err)
			return
		}

		payload, _ := json.Marshal(start)
		if err := conn.WriteJSON(message{Type: "stream/start", Payload: payload}); err != nil {
			t.Errorf("failed to send stream/start: %v", err)
			return
		}

		for _, p := range packets {
			if err := conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
				t.Errorf("failed to send packet: %v", err)
				return
			}
		}
	}))
}

func serverAddr(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestDialHandshakeAndStream(t *testing.T) {
	start := streamStart{SampleRate: 44100, BitDepth: 16, Channels: 2}
	// Two packets of 16-bit LE stereo: frames (256,-256) and (512,-512).
	packets := [][]byte{
		{0x00, 0x01, 0x00, 0xFF},
		{0x00, 0x02, 0x00, 0xFE},
	}
	srv := newStreamServer(t, start, packets)
	defer srv.Close()

	track, err := Dial(NetworkConfig{ServerAddr: serverAddr(srv), Name: "test-player"})
	require.NoError(t, err)
	defer track.Close()

	assert.Equal(t, 44100, track.SampleRate())

	buf := make([]int32, 4)
	total := 0
	var got []int32
	for total < 2 {
		n, err := track.ReadFrames(buf)
		require.NoError(t, err)
		got = append(got, buf[:n*2]...)
		total += n
	}

	require.Len(t, got, 4)
	assert.Equal(t, int32(0x0100<<8), got[0])
	assert.Equal(t, int32(-256<<8), got[1])
	assert.Equal(t, int32(0x0200<<8), got[2])
	assert.Equal(t, int32(-512<<8), got[3])

	// Server closed after the packets: next read reports end of track.
	_, err = track.ReadFrames(buf)
	assert.Equal(t, io.EOF, err)
}

func TestDialRejectsWrongFirstMessage(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
		conn.WriteJSON(message{Type: "server/time"})
	}))
	defer srv.Close()

	track, err := Dial(NetworkConfig{ServerAddr: serverAddr(srv), Name: "test-player"})
	require.Error(t, err)
	assert.Nil(t, track)
	assert.Contains(t, err.Error(), "expected stream/start")
}

func TestDialRejectsUnsupportedFormat(t *testing.T) {
	start := streamStart{SampleRate: 44100, BitDepth: 32, Channels: 2}
	srv := newStreamServer(t, start, nil)
	defer srv.Close()

	track, err := Dial(NetworkConfig{ServerAddr: serverAddr(srv), Name: "test-player"})
	require.Error(t, err)
	assert.Nil(t, track)
	assert.Contains(t, err.Error(), "unsupported stream format")
}

func TestDialRejectsUnknownCodec(t *testing.T) {
	start := streamStart{Codec: "flac", SampleRate: 44100, BitDepth: 16, Channels: 2}
	srv := newStreamServer(t, start, nil)
	defer srv.Close()

	track, err := Dial(NetworkConfig{ServerAddr: serverAddr(srv), Name: "test-player"})
	require.Error(t, err)
	assert.Nil(t, track)
	assert.Contains(t, err.Error(), "unsupported stream format")
}

func TestDialExplicitPCMCodec(t *testing.T) {
	start := streamStart{Codec: "pcm", SampleRate: 48000, BitDepth: 16, Channels: 2}
	srv := newStreamServer(t, start, nil)
	defer srv.Close()

	track, err := Dial(NetworkConfig{ServerAddr: serverAddr(srv), Name: "test-player"})
	require.NoError(t, err)
	defer track.Close()
	assert.Equal(t, 48000, track.SampleRate())
}

func TestCloseUnblocksReadFrames(t *testing.T) {
	// The server handshakes and then goes quiet with the connection
	// held open, leaving a reader with nothing to receive.
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
		payload, _ := json.Marshal(streamStart{SampleRate: 44100, BitDepth: 16, Channels: 2})
		conn.WriteJSON(message{Type: "stream/start", Payload: payload})
		<-release
	}))
	defer srv.Close()
	defer close(release)

	track, err := Dial(NetworkConfig{ServerAddr: serverAddr(srv), Name: "test-player"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		buf := make([]int32, 4)
		_, err := track.ReadFrames(buf)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, track.Close())

	select {
	case err := <-done:
		assert.Equal(t, io.EOF, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadFrames stayed blocked after Close")
	}
}

func TestDialConnectionRefused(t *testing.T) {
	track, err := Dial(NetworkConfig{ServerAddr: "127.0.0.1:1", Name: "test-player"})
	require.Error(t, err)
	assert.Nil(t, track)
}
