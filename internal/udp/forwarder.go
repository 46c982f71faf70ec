// Package udp forwards accepted NMEA sentences to navigation apps that
// listen for NMEA-over-UDP (OpenCPN, Navionics and similar).
package udp

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

type udpConn interface {
	Write([]byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, raddr *net.UDPAddr) (udpConn, error)

// Forwarder sends each sentence as one datagram terminated by CRLF. It is
// safe for concurrent use.
type Forwarder struct {
	dest string
	conn udpConn

	mu  sync.Mutex
	buf []byte

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewForwarder resolves dest once. Broadcast destinations such as
// 192.168.1.255:10110 are allowed.
func NewForwarder(dest string) (*Forwarder, error) {
	return newForwarder(dest, net.ResolveUDPAddr, dialBroadcast)
}

func newForwarder(dest string, resolve resolveFunc, dial dialFunc) (*Forwarder, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}
	conn, err := dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Forwarder{dest: dest, conn: conn, buf: make([]byte, 0, 128)}, nil
}

func (f *Forwarder) Dest() string { return f.dest }

// SendSentence writes sentence plus CRLF. Empty sentences are ignored.
func (f *Forwarder) SendSentence(sentence string) error {
	if sentence == "" {
		return nil
	}
	f.mu.Lock()
	f.buf = append(f.buf[:0], sentence...)
	f.buf = append(f.buf, '\r', '\n')
	_, err := f.conn.Write(f.buf)
	f.mu.Unlock()
	if err != nil {
		f.failed.Add(1)
		return err
	}
	f.sent.Add(1)
	return nil
}

// Counts returns datagrams sent and failed writes.
func (f *Forwarder) Counts() (sent, failed uint64) {
	return f.sent.Load(), f.failed.Load()
}

func (f *Forwarder) Close() error {
	if f.conn == nil {
		return nil
	}
	return f.conn.Close()
}
