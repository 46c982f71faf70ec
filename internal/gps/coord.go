package gps

import (
	"strconv"
	"strings"
)

// ToDecimalDegrees converts an NMEA coordinate (ddmm.mmmm for latitude,
// dddmm.mmmm for longitude) plus hemisphere into signed decimal degrees.
//
// The two digits immediately before the decimal point start the minutes;
// everything before them is degrees. A value without a decimal point, or
// with unparsable parts, converts to 0. 'S' and 'W' negate the result.
func ToDecimalDegrees(raw string, hemi byte) float64 {
	dot := strings.IndexByte(raw, '.')
	if dot < 2 {
		return 0
	}

	deg := 0.0
	if degPart := raw[:dot-2]; degPart != "" {
		d, err := strconv.Atoi(degPart)
		if err != nil {
			return 0
		}
		deg = float64(d)
	}
	mins, err := strconv.ParseFloat(raw[dot-2:], 64)
	if err != nil {
		return 0
	}

	dec := deg + mins/60.0
	if hemi == 'S' || hemi == 'W' {
		dec = -dec
	}
	return dec
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseInt treats empty or unparsable input as zero.
func parseInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
