package gps

// RMC: Recommended Minimum Specific GNSS Data
// Fields (NMEA 0183 v2.3):
//
//	0: talker+type
//	1: time (hhmmss.sss)
//	2: status (A=active, V=void)
//	3: latitude (ddmm.mmmm)
//	4: N/S
//	5: longitude (dddmm.mmmm)
//	6: E/W
//	7: speed over ground (knots)
//	8: course over ground (deg)
//	9: date (ddmmyy)
func applyRMC(r *fixRecord, sentence string) bool {
	sc := newFieldScanner(sentence)

	tm, ok := sc.next()
	if !ok {
		return false
	}
	if tm != "" {
		r.timeRaw.Set(tm)
		r.newData = true
	}

	status, ok := sc.next()
	if !ok {
		return false
	}
	switch status {
	case "A":
		r.hasFix = true
	case "V":
		r.hasFix = false
	}

	if !applyLatLon(r, &sc) {
		return false
	}

	// Empty speed and course are reported as zero, not kept.
	spd, ok := sc.next()
	if !ok {
		return false
	}
	v, _ := parseFloat(spd)
	r.speed.Set(v)

	crs, ok := sc.next()
	if !ok {
		return false
	}
	v, _ = parseFloat(crs)
	r.course.Set(normalizeCourse(v))

	date, ok := sc.next()
	if !ok {
		return false
	}
	if date != "" {
		r.dateRaw.Set(date)
	}
	return true
}
