package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// dialGPSD connects to gpsd over TCP.
func dialGPSD(ctx context.Context, addr string) (net.Conn, error) {
	if strings.TrimSpace(addr) == "" {
		addr = gpsdDefaultAddr
	}
	d := &net.Dialer{Timeout: 2 * time.Second}
	if ctx == nil {
		return d.Dial("tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

// gpsdWatch asks gpsd to relay the receiver's raw NMEA sentences instead of
// its own JSON reports, so the same decoder runs on both sources.
func gpsdWatch(w io.Writer) error {
	_, err := w.Write([]byte("?WATCH={\"enable\":true,\"nmea\":true}\n"))
	return err
}

// pumpGPSD forwards NMEA lines from a watching gpsd connection into p.
// gpsd interleaves its own JSON status objects (VERSION, DEVICES, WATCH);
// those are skipped here rather than counted as malformed sentences.
func pumpGPSD(ctx context.Context, conn io.ReadWriter, p *Parser) error {
	if err := gpsdWatch(conn); err != nil {
		return fmt.Errorf("gpsd watch failed: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) > 0 && line[0] == '{' {
			continue
		}
		_, _ = p.Write(line)
		p.Feed('\n')
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("gpsd read stopped: %w", err)
	}
	return fmt.Errorf("gpsd read stopped: connection closed")
}
