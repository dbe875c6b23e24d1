// Package serial provides the byte link to the plotter board
package serial

import (
	"io"
)

// Port represents a serial port interface.
// Implementations: the native tarm/serial port and MockPort for tests.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unsent output
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (the EBB enumerates as USB CDC and ignores it)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration for an EBB on device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        9600,
		ReadTimeout: 1000,
	}
}
