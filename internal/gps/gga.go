package gps

import "math"

// GGA: Global Positioning System Fix Data
// Fields:
//
//	0: talker+type
//	1: time (hhmmss.sss)
//	2: latitude (ddmm.mmmm)
//	3: N/S
//	4: longitude (dddmm.mmmm)
//	5: E/W
//	6: fix quality (0=invalid)
//	7: number of satellites
//	8: HDOP
//	9: altitude (meters)
//
// Fields after altitude (units, geoid separation, DGPS age) are not read.
func applyGGA(r *fixRecord, sentence string) bool {
	sc := newFieldScanner(sentence)

	tm, ok := sc.next()
	if !ok {
		return false
	}
	if tm != "" {
		r.timeRaw.Set(tm)
		r.newData = true
	}

	if !applyLatLon(r, &sc) {
		return false
	}

	q, ok := sc.next()
	if !ok {
		return false
	}
	r.hasFix = parseInt(q) > 0

	sats, ok := sc.next()
	if !ok {
		return false
	}
	r.satellites.Set(parseInt(sats))

	hdop, ok := sc.next()
	if !ok {
		return false
	}
	if v, ok := parseFloat(hdop); ok {
		r.hdop.Set(v)
	}

	alt, ok := sc.next()
	if !ok {
		return false
	}
	if v, ok := parseFloat(alt); ok {
		r.alt.Set(v)
	}
	return true
}

// applyLatLon reads the four lat/hemi/lon/hemi fields shared by GGA and
// RMC. The position is converted only when both coordinates are present.
func applyLatLon(r *fixRecord, sc *fieldScanner) bool {
	var f [4]string
	for i := range f {
		v, ok := sc.next()
		if !ok {
			return false
		}
		f[i] = v
	}
	if f[0] != "" && f[2] != "" {
		r.lat.Set(ToDecimalDegrees(f[0], hemisphere(f[1])))
		r.lon.Set(ToDecimalDegrees(f[2], hemisphere(f[3])))
	}
	return true
}

// normalizeCourse maps any course into [0,360).
func normalizeCourse(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
