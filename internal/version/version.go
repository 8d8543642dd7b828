// ABOUTME: Version constants for the player
// ABOUTME: Reported in logs and in the stream handshake
package version

const (
	// Version is the player release version.
	Version = "0.1.0"

	// Product is the player product name.
	Product = "SqueezePlay"

	// Manufacturer identifies the project.
	Manufacturer = "SqueezeOS"
)
