package udp

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// dialBroadcast dials with SO_BROADCAST set; Linux refuses to send to a
// broadcast address without it.
func dialBroadcast(network string, raddr *net.UDPAddr) (udpConn, error) {
	d := net.Dialer{
		Control: func(_, _ string, c syscall.RawConn) error {
			var serr error
			if err := c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			}); err != nil {
				return err
			}
			return serr
		},
	}
	return d.Dial(network, raddr.String())
}
