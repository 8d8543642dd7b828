// ABOUTME: mDNS discovery of PCM streaming servers
// ABOUTME: Browses for the stream service and reports endpoints on a channel
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/sirupsen/logrus"
)

const streamService = "_squeezestream._tcp"

// ServerInfo describes a discovered streaming server.
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// Addr formats the server as a dialable host:port.
func (s ServerInfo) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Discovery browses the local network for streaming servers.
type Discovery struct {
	log     *logrus.Entry
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan ServerInfo
}

// NewDiscovery creates a discovery browser.
func NewDiscovery() *Discovery {
	ctx, cancel := context.WithCancel(context.Background())
	return &Discovery{
		log:     logrus.WithField("component", "source.discovery"),
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan ServerInfo, 10),
	}
}

// Browse starts the background browse loop.
func (d *Discovery) Browse() {
	go d.browseLoop()
}

// browseLoop queries repeatedly until stopped.
func (d *Discovery) browseLoop() {
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				if entry.AddrV4 == nil {
					continue
				}
				server := ServerInfo{
					Name: entry.Name,
					Host: entry.AddrV4.String(),
					Port: entry.Port,
				}
				d.log.WithFields(logrus.Fields{
					"name": server.Name,
					"addr": server.Addr(),
				}).Info("discovered server")

				select {
				case d.servers <- server:
				case <-d.ctx.Done():
					return
				}
			}
		}()

		mdns.Query(&mdns.QueryParam{
			Service: streamService,
			Domain:  "local",
			Timeout: 3 * time.Second,
			Entries: entries,
		})
		close(entries)
		<-done
	}
}

// Servers returns the channel of discovered servers.
func (d *Discovery) Servers() <-chan ServerInfo {
	return d.servers
}

// First blocks until a server is discovered or the timeout expires.
func (d *Discovery) First(timeout time.Duration) (ServerInfo, error) {
	select {
	case s := <-d.servers:
		return s, nil
	case <-time.After(timeout):
		return ServerInfo{}, fmt.Errorf("no streaming server found within %s", timeout)
	case <-d.ctx.Done():
		return ServerInfo{}, fmt.Errorf("discovery stopped")
	}
}

// Stop ends browsing.
func (d *Discovery) Stop() {
	d.cancel()
}
