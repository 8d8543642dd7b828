// ABOUTME: Network track source streaming PCM over websocket
// ABOUTME: Handles connection, handshake, and binary packet reassembly
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio"
	"github.com/cris-/squeezeos-squeezeplay/pkg/audio/decode"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const handshakeTimeout = 5 * time.Second

// NetworkConfig holds network source configuration.
type NetworkConfig struct {
	ServerAddr string
	Name       string
}

// message is the JSON envelope used on the control channel.
type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// playerHello announces this player to the server.
type playerHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// streamStart describes the format of the binary stream. An absent
// codec means raw PCM.
type streamStart struct {
	Codec      string `json:"codec,omitempty"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
	Channels   int    `json:"channels"`
}

// NetworkTrack streams PCM from a server over a websocket. Text
// messages carry the JSON handshake; binary messages carry raw
// little-endian PCM packets.
type NetworkTrack struct {
	log     *logrus.Entry
	conn    *websocket.Conn
	decoder decode.PacketDecoder
	rate    int

	packets  chan []int32
	leftover []int32

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Dial connects to a streaming server and performs the handshake.
func Dial(cfg NetworkConfig) (*NetworkTrack, error) {
	u := url.URL{Scheme: "ws", Host: cfg.ServerAddr, Path: "/stream"}
	log := logrus.WithField("component", "source.network")
	log.WithField("url", u.String()).Info("connecting to stream server")

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &NetworkTrack{
		log:     log,
		conn:    conn,
		packets: make(chan []int32, 64),
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := t.handshake(cfg); err != nil {
		t.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	go t.readMessages()
	return t, nil
}

// handshake sends player/hello and waits for stream/start.
func (t *NetworkTrack) handshake(cfg NetworkConfig) error {
	hello, err := json.Marshal(playerHello{
		ClientID: uuid.NewString(),
		Name:     cfg.Name,
	})
	if err != nil {
		return err
	}
	if err := t.conn.WriteJSON(message{Type: "player/hello", Payload: hello}); err != nil {
		return fmt.Errorf("failed to send player/hello: %w", err)
	}

	t.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read stream/start: %w", err)
	}
	t.conn.SetReadDeadline(time.Time{})

	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse stream/start: %w", err)
	}
	if msg.Type != "stream/start" {
		return fmt.Errorf("expected stream/start, got %s", msg.Type)
	}

	var start streamStart
	if err := json.Unmarshal(msg.Payload, &start); err != nil {
		return fmt.Errorf("failed to parse stream/start payload: %w", err)
	}

	dec, err := decode.NewPacket(audio.Format{
		Codec:      start.Codec,
		SampleRate: start.SampleRate,
		Channels:   start.Channels,
		BitDepth:   start.BitDepth,
	})
	if err != nil {
		return fmt.Errorf("unsupported stream format: %w", err)
	}

	t.decoder = dec
	t.rate = start.SampleRate
	t.log.WithFields(logrus.Fields{
		"codec":    start.Codec,
		"rate":     start.SampleRate,
		"bits":     start.BitDepth,
		"channels": start.Channels,
	}).Info("stream started")
	return nil
}

// readMessages decodes incoming binary packets until the connection
// drops. Closing the packets channel signals end of track.
func (t *NetworkTrack) readMessages() {
	defer close(t.packets)

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			if t.ctx.Err() == nil {
				t.log.WithError(err).Debug("stream read ended")
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		samples, err := t.decoder.Decode(data)
		if err != nil {
			t.log.WithError(err).Warn("dropping bad packet")
			continue
		}

		select {
		case t.packets <- samples:
		case <-t.ctx.Done():
			return
		}
	}
}

// SampleRate is the negotiated stream rate.
func (t *NetworkTrack) SampleRate() int {
	return t.rate
}

// ReadFrames fills dst with streamed frames. Blocks for the first
// packet, then returns whatever is buffered rather than stalling the
// producer on a slow network. Reports io.EOF once the stream ends or
// the track is closed.
func (t *NetworkTrack) ReadFrames(dst []int32) (int, error) {
	want := len(dst) / audio.Channels * audio.Channels
	filled := 0

	for filled < want {
		if len(t.leftover) == 0 {
			if filled == 0 {
				select {
				case pkt, ok := <-t.packets:
					if !ok {
						return 0, io.EOF
					}
					t.leftover = pkt
				case <-t.ctx.Done():
					return 0, io.EOF
				}
			} else {
				select {
				case pkt, ok := <-t.packets:
					if !ok {
						return filled / audio.Channels, nil
					}
					t.leftover = pkt
				default:
					return filled / audio.Channels, nil
				}
			}
		}

		n := copy(dst[filled:want], t.leftover)
		t.leftover = t.leftover[n:]
		filled += n
	}
	return filled / audio.Channels, nil
}

// Close tears down the connection.
func (t *NetworkTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.cancel()
	err := t.conn.Close()
	if t.decoder != nil {
		t.decoder.Close()
	}
	return err
}
