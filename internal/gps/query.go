package gps

import (
	"fmt"
	"math"
)

const (
	FixNone = 0
	FixGPS  = 1
	FixDGPS = 2
)

func (s *FixState) Latitude() float64  { return s.read().lat.Or(0) }
func (s *FixState) Longitude() float64 { return s.read().lon.Or(0) }
func (s *FixState) Speed() float64     { return s.read().speed.Or(0) }
func (s *FixState) Course() float64    { return s.read().course.Or(0) }
func (s *FixState) Altitude() float64  { return s.read().alt.Or(0) }
func (s *FixState) HasAltitude() bool  { return s.read().alt.Valid() }
func (s *FixState) Satellites() int    { return s.read().satellites.Or(0) }
func (s *FixState) HDOP() float64      { return s.read().hdop.Or(hdopUnset) }
func (s *FixState) HasHDOP() bool      { return s.read().hdop.Valid() }
func (s *FixState) HasFix() bool       { return s.read().hasFix }

// Position returns the last converted coordinates and whether both have
// ever been observed.
func (s *FixState) Position() (lat, lon float64, ok bool) {
	r := s.read()
	return r.lat.Or(0), r.lon.Or(0), r.lat.Valid() && r.lon.Valid()
}

// PDOP, VDOP and GeoidSeparation are reserved; GSA and GGA decoding does
// not fill them.
func (s *FixState) PDOP() float64            { return 0 }
func (s *FixState) VDOP() float64            { return 0 }
func (s *FixState) GeoidSeparation() float64 { return 0 }

func (s *FixState) HasValidPosition() bool {
	return s.read().validPosition()
}

// FixQuality grades the fix by satellite count rather than by the GGA fix
// quality field: 0 without a fix (or under 4 satellites), 1 for 4-6
// satellites, 2 for 7 or more.
func (s *FixState) FixQuality() int {
	return s.read().fixQuality()
}

func (s *FixState) FixTypeString() string {
	return fixTypeString(s.read().fixQuality())
}

func (s *FixState) PositionString() string {
	return s.read().positionString()
}

func (s *FixState) TimeString() string {
	return formatTime(s.read().timeRaw.Or(""))
}

func (s *FixState) DateString() string {
	return formatDate(s.read().dateRaw.Or(""))
}

func (r fixRecord) validPosition() bool {
	return r.hasFix && r.satellites.Or(0) >= 4
}

func (r fixRecord) fixQuality() int {
	if !r.hasFix {
		return FixNone
	}
	sats := r.satellites.Or(0)
	switch {
	case sats >= 7:
		return FixDGPS
	case sats >= 4:
		return FixGPS
	default:
		return FixNone
	}
}

func fixTypeString(q int) string {
	switch q {
	case FixGPS:
		return "GPS Fix"
	case FixDGPS:
		return "DGPS Fix"
	default:
		return "No Fix"
	}
}

func (r fixRecord) positionString() string {
	if !r.hasFix || !r.lat.Valid() || !r.lon.Valid() {
		return "No Fix"
	}
	lat, lon := r.lat.Or(0), r.lon.Or(0)
	ns, ew := byte('N'), byte('E')
	if lat < 0 {
		ns = 'S'
	}
	if lon < 0 {
		ew = 'W'
	}
	latDeg, latMin := degMin(lat)
	lonDeg, lonMin := degMin(lon)
	return fmt.Sprintf("%02d°%05.2f'%c %03d°%05.2f'%c", latDeg, latMin, ns, lonDeg, lonMin, ew)
}

func degMin(v float64) (int, float64) {
	v = math.Abs(v)
	deg := math.Floor(v)
	m := (v - deg) * 60
	// Keep 59.999 from printing as 60.00.
	if m >= 59.995 {
		deg++
		m = 0
	}
	return int(deg), m
}

// formatTime renders HHMMSS[.sss] as HH:MM:SS.
func formatTime(raw string) string {
	if len(raw) < 6 {
		return "00:00:00"
	}
	return raw[0:2] + ":" + raw[2:4] + ":" + raw[4:6]
}

// formatDate renders DDMMYY as DD/MM/YY.
func formatDate(raw string) string {
	if len(raw) < 6 {
		return "01/01/00"
	}
	return raw[0:2] + "/" + raw[2:4] + "/" + raw[4:6]
}
