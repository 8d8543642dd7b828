// ABOUTME: Startup device negotiation
// ABOUTME: Scans enumerated devices for the first one supporting the reference format
package output

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "audio.output")

// Negotiate selects the output device to use: the first enumerated
// device that supports stereo int32 at the reference rate. The chosen
// device's high-latency hint is carried into every stream opened on it.
//
// Negotiation happens once at startup. If no device supports the
// reference format the error wraps ErrUnavailable and the caller must
// treat the whole output backend as disabled.
func Negotiate(b Backend) (Device, error) {
	devs, err := b.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("device enumeration failed: %w", err)
	}

	for _, dev := range devs {
		supported := b.Supports(dev, ReferenceRate)
		log.WithFields(logrus.Fields{
			"device":    dev.Name,
			"host_api":  dev.HostAPI,
			"supported": supported,
		}).Debug("probed output device")

		if supported {
			return dev, nil
		}
	}

	return Device{}, fmt.Errorf("no device supports %d Hz stereo: %w", ReferenceRate, ErrUnavailable)
}
