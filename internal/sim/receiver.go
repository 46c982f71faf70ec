package sim

import (
	"fmt"
	"math"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// Receiver renders one NMEA epoch (GGA, RMC, GSA) per call for a point
// moving along Track, the way a GPS talker would emit them.
type Receiver struct {
	Track      Track
	AltM       float64
	Satellites int
}

// Sentences returns complete, checksummed sentences without line
// terminators.
func (r Receiver) Sentences(now time.Time) []string {
	now = now.UTC()
	lat, lon, course, speed := r.Track.Position(now)

	sats := r.Satellites
	if sats < 0 {
		sats = 0
	}
	if sats > 12 {
		sats = 12
	}
	fix := sats >= 4
	hdop := hdopFor(sats)

	hhmmss := fmt.Sprintf("%s.%02d", now.Format("150405"), now.Nanosecond()/int(10*time.Millisecond))
	latStr, ns := formatLat(lat)
	lonStr, ew := formatLon(lon)

	quality, status, fixType := "0", "V", "1"
	if fix {
		quality, status, fixType = "1", "A", "3"
	}

	gga := fmt.Sprintf("GPGGA,%s,%s,%c,%s,%c,%s,%02d,%.1f,%.1f,M,0.0,M,,",
		hhmmss, latStr, ns, lonStr, ew, quality, sats, hdop, r.AltM)
	rmc := fmt.Sprintf("GPRMC,%s,%s,%s,%c,%s,%c,%.1f,%.1f,%s,,,A",
		hhmmss, status, latStr, ns, lonStr, ew, speed, course, now.Format("020106"))

	prns := make([]string, 12)
	for i := 0; i < sats; i++ {
		prns[i] = fmt.Sprintf("%02d", i+1)
	}
	gsa := fmt.Sprintf("GPGSA,A,%s,%s,%.1f,%.1f,%.1f",
		fixType, strings.Join(prns, ","), hdop*1.4, hdop, hdop*1.1)

	return []string{frame(gga), frame(rmc), frame(gsa)}
}

func frame(body string) string {
	return "$" + body + "*" + nmea.Checksum(body)
}

// hdopFor is a rough horizontal dilution for a satellite count.
func hdopFor(sats int) float64 {
	switch {
	case sats >= 7:
		return 0.9
	case sats >= 4:
		return 1.8
	default:
		return 99.9
	}
}

func formatLat(v float64) (string, byte) {
	h := byte('N')
	if v < 0 {
		h = 'S'
	}
	deg, m := splitDeg(v)
	return fmt.Sprintf("%02d%07.4f", deg, m), h
}

func formatLon(v float64) (string, byte) {
	h := byte('E')
	if v < 0 {
		h = 'W'
	}
	deg, m := splitDeg(v)
	return fmt.Sprintf("%03d%07.4f", deg, m), h
}

func splitDeg(v float64) (int, float64) {
	v = math.Abs(v)
	deg := math.Floor(v)
	m := (v - deg) * 60
	if m >= 59.99995 {
		deg++
		m = 0
	}
	return int(deg), m
}
