//go:build !linux

package gps

import (
	"io"

	serial "github.com/jacobsa/go-serial/serial"
)

// openSerial falls back to the portable driver where raw termios is not
// available.
func openSerial(path string, baud int) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:              path,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       1,
		InterCharacterTimeout: 0,
	})
}
