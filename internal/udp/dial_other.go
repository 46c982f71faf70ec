//go:build !linux

package udp

import "net"

func dialBroadcast(network string, raddr *net.UDPAddr) (udpConn, error) {
	return net.DialUDP(network, nil, raddr)
}
